package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ledongthuc/pdf"
	"golang.org/x/net/idna"
	"golang.org/x/sync/errgroup"

	"github.com/arvocap/arvochat/internal/bridge"
	"github.com/arvocap/arvochat/internal/contact"
	"github.com/arvocap/arvochat/internal/credentials"
	"github.com/arvocap/arvochat/internal/storage"
)

const (
	maxUploadSize   = 50 << 20 // 50MB
	maxUploadMemory = 32 << 20

	defaultScrapeDepth = 2
	maxScrapeDepth     = 5
)

// ContactLister reads contact submissions back.
type ContactLister interface {
	List(ctx context.Context) ([]contact.Row, error)
}

// InteractionReader is the read side of the interaction log.
type InteractionReader interface {
	ListInteractions(ctx context.Context, limit, offset int) ([]storage.Interaction, error)
	CountByTier(ctx context.Context) ([]storage.TierCount, error)
}

// AdminDeps holds the dependencies of the admin console API.
type AdminDeps struct {
	Bridge       *bridge.Client
	Credentials  *credentials.Store
	Contacts     ContactLister     // optional
	Interactions InteractionReader // optional
	// SpreadsheetURL reports where contacts are stored; optional.
	SpreadsheetURL func() string
	Token          string
	Clock          func() time.Time
}

func NewAdminHandler(deps AdminDeps) http.Handler {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	r := chi.NewRouter()
	r.Use(AdminAuth(deps.Token))

	r.Get("/status", handleAdminStatus(deps))
	r.Get("/training-stats", handleTrainingStats(deps))
	r.Post("/retrain", handleRetrain(deps))
	r.Get("/knowledge-base", handleListKnowledge(deps))
	r.Put("/knowledge-base/{id}", handleUpdateKnowledge(deps))
	r.Delete("/knowledge-base/{id}", handleDeleteKnowledge(deps))
	r.Post("/upload-documents", handleUploadDocuments(deps))
	r.Post("/scrape-website", handleScrapeWebsite(deps))
	r.Post("/add-manual-entry", handleAddManualEntry(deps))
	r.Post("/settings", handleSettings(deps))
	r.Post("/google", handleGoogle(deps))
	r.Get("/contacts", handleListContacts(deps))
	r.Get("/interactions", handleListInteractions(deps))

	return r
}

func (d AdminDeps) now() string {
	return d.Clock().UTC().Format(time.RFC3339)
}

// requireRemote writes a 503 and returns false when the knowledge service
// does not answer its health check.
func requireRemote(ctx context.Context, w http.ResponseWriter, deps AdminDeps) bool {
	h := deps.Bridge.Health(ctx)
	if h.Success {
		return true
	}
	adminError(w, http.StatusServiceUnavailable, "Training system is not available", h.Error)
	return false
}

func handleAdminStatus(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			health bridge.Result
			status bridge.StatusResult
			stats  bridge.TrainingStats
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error { health = deps.Bridge.Health(ctx); return nil })
		g.Go(func() error { status = deps.Bridge.Status(ctx); return nil })
		g.Go(func() error { stats = deps.Bridge.TrainingStats(ctx); return nil })
		g.Wait()

		backend := map[string]any{"healthy": health.Success}
		if health.Error != "" {
			backend["error"] = health.Error
		}
		if status.KnowledgeBaseSize != nil {
			backend["knowledge_base_size"] = *status.KnowledgeBaseSize
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"backend":      backend,
			"training":     stats,
			"last_checked": deps.now(),
		})
	}
}

func handleTrainingStats(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Bridge.TrainingStats(r.Context()))
	}
}

type retrainRequest struct {
	Force bool `json:"force"`
}

func handleRetrain(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req retrainRequest
		if err := decodeJSON(w, r, &req, true); err != nil {
			adminError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		if !requireRemote(r.Context(), w, deps) {
			return
		}

		res := deps.Bridge.Retrain(r.Context(), req.Force)
		if !res.Success {
			slog.Warn("retrain refused", "error", res.Error)
			adminError(w, http.StatusBadGateway, "Failed to trigger retraining", res.Error)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"message":   "Retraining initiated successfully",
			"job_id":    res.JobID,
			"timestamp": deps.now(),
		})
	}
}

func handleListKnowledge(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := deps.Bridge.ListKnowledge(r.Context())
		if list.Items == nil {
			list.Items = []bridge.KnowledgeItem{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type updateKnowledgeRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

func handleUpdateKnowledge(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req updateKnowledgeRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			adminError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		if err := validate.Struct(req); err != nil {
			adminError(w, http.StatusBadRequest, validationMessage(err), "")
			return
		}
		if !requireRemote(r.Context(), w, deps) {
			return
		}

		res := deps.Bridge.UpdateKnowledge(r.Context(), id, req.Title, req.Content)
		if !res.Success {
			adminError(w, http.StatusBadGateway, "Failed to update item", res.Error)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Item updated successfully"})
	}
}

func handleDeleteKnowledge(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !requireRemote(r.Context(), w, deps) {
			return
		}

		res := deps.Bridge.DeleteKnowledge(r.Context(), id)
		if !res.Success {
			adminError(w, http.StatusBadGateway, "Failed to delete item", res.Error)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Item deleted successfully"})
	}
}

func handleUploadDocuments(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			adminError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
			return
		}
		defer r.MultipartForm.RemoveAll()

		headers := r.MultipartForm.File["documents"]
		if len(headers) == 0 {
			adminError(w, http.StatusBadRequest, "No documents provided", "")
			return
		}

		docs := make([]bridge.Document, 0, len(headers))
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				adminError(w, http.StatusBadRequest, "unreadable upload", err.Error())
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				adminError(w, http.StatusBadRequest, "unreadable upload", err.Error())
				return
			}
			if isPDF(fh.Filename, data) {
				if _, err := pdfPageCount(data); err != nil {
					adminError(w, http.StatusBadRequest, fmt.Sprintf("%s is not a readable PDF", fh.Filename), err.Error())
					return
				}
			}
			docs = append(docs, bridge.Document{Filename: fh.Filename, Data: data})
		}

		ocr := r.FormValue("ocrEnabled") == "true"
		chunking := bridge.Chunking{
			Size:    formInt(r, "chunkSize"),
			Overlap: formInt(r, "chunkOverlap"),
		}

		if !requireRemote(r.Context(), w, deps) {
			return
		}

		res := deps.Bridge.UploadDocuments(r.Context(), docs, ocr, chunking)
		if !res.Success {
			adminError(w, http.StatusBadGateway, "Failed to process documents", res.Error)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":             true,
			"message":             fmt.Sprintf("Successfully processed %d document(s)", len(docs)),
			"documents_processed": len(docs),
			"chunks_created":      res.ChunksCreated,
			"timestamp":           deps.now(),
		})
	}
}

func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.FormValue(key))
	if err != nil {
		return 0
	}
	return n
}

func isPDF(name string, data []byte) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf") || bytes.HasPrefix(data, []byte("%PDF-"))
}

// pdfPageCount parses data and returns its page count. The parser panics on
// some malformed input, so panics are reported as errors.
func pdfPageCount(data []byte) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			n, err = 0, fmt.Errorf("parsing pdf: %v", rec)
		}
	}()

	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing pdf: %w", err)
	}
	n = rd.NumPage()
	if n <= 0 {
		return 0, errors.New("pdf has no pages")
	}
	return n, nil
}

type scrapeRequest struct {
	URL          string `json:"url" validate:"required"`
	Depth        int    `json:"depth"`
	ChunkSize    int    `json:"chunkSize"`
	ChunkOverlap int    `json:"chunkOverlap"`
}

// normalizeScrapeURL accepts absolute http(s) URLs and converts an
// internationalized host to its ASCII form.
func normalizeScrapeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return "", errors.New("missing host")
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("invalid host: %w", err)
	}
	if port := u.Port(); port != "" {
		u.Host = ascii + ":" + port
	} else {
		u.Host = ascii
	}
	return u.String(), nil
}

func clampDepth(d int) int {
	if d == 0 {
		return defaultScrapeDepth
	}
	return max(1, min(d, maxScrapeDepth))
}

func handleScrapeWebsite(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scrapeRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			adminError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		if err := validate.Struct(req); err != nil {
			adminError(w, http.StatusBadRequest, "No URL provided", "")
			return
		}
		pageURL, err := normalizeScrapeURL(req.URL)
		if err != nil {
			adminError(w, http.StatusBadRequest, "Invalid URL format", err.Error())
			return
		}
		if !requireRemote(r.Context(), w, deps) {
			return
		}

		chunking := bridge.Chunking{Size: req.ChunkSize, Overlap: req.ChunkOverlap}
		res := deps.Bridge.ScrapeWebsite(r.Context(), pageURL, clampDepth(req.Depth), chunking)
		if !res.Success {
			adminError(w, http.StatusBadGateway, "Failed to scrape website", res.Error)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":         true,
			"message":         fmt.Sprintf("Successfully scraped %d pages", res.PagesProcessed),
			"pages_processed": res.PagesProcessed,
			"chunks_created":  res.ChunksCreated,
			"timestamp":       deps.now(),
		})
	}
}

type manualEntryRequest struct {
	Title        string `json:"title" validate:"required"`
	Content      string `json:"content" validate:"required"`
	ChunkSize    int    `json:"chunkSize"`
	ChunkOverlap int    `json:"chunkOverlap"`
}

func handleAddManualEntry(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req manualEntryRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			adminError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		req.Title = strings.TrimSpace(req.Title)
		req.Content = strings.TrimSpace(req.Content)
		if err := validate.Struct(req); err != nil {
			adminError(w, http.StatusBadRequest, "Title and content are required", validationMessage(err))
			return
		}
		if !requireRemote(r.Context(), w, deps) {
			return
		}

		chunking := bridge.Chunking{Size: req.ChunkSize, Overlap: req.ChunkOverlap}
		res := deps.Bridge.AddManualEntry(r.Context(), req.Title, req.Content, chunking)
		if !res.Success {
			adminError(w, http.StatusBadGateway, "Failed to add manual entry", res.Error)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":        true,
			"message":        "Manual entry added successfully",
			"chunks_created": res.ChunksCreated,
			"timestamp":      deps.now(),
		})
	}
}

type settingsRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey" validate:"required"`
}

func handleSettings(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settingsRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			adminError(w, http.StatusBadRequest, "Invalid request", err.Error())
			return
		}
		req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
		if req.Provider == "" {
			req.Provider = credentials.ProviderOpenAI
		}
		if err := validate.Struct(req); err != nil || req.Provider != credentials.ProviderOpenAI {
			adminError(w, http.StatusBadRequest, "Invalid request", "")
			return
		}

		deps.Credentials.SetProviderKey(req.Provider, req.APIKey)

		res := deps.Bridge.SetAPIKey(r.Context(), req.Provider, req.APIKey)
		if !res.Success {
			slog.Warn("forwarding api key refused", "provider", req.Provider, "error", res.Error)
			adminError(w, http.StatusBadGateway, "Failed to set API key in knowledge service", res.Error)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func handleGoogle(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var g credentials.Google
		if err := decodeJSON(w, r, &g, false); err != nil {
			adminError(w, http.StatusBadRequest, "Missing required fields", err.Error())
			return
		}
		if !g.Complete() {
			adminError(w, http.StatusBadRequest, "Missing required fields", "")
			return
		}
		deps.Credentials.SetGoogle(g)
		slog.Info("google credentials updated", "client_email", g.ClientEmail)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func handleListContacts(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Contacts == nil {
			adminError(w, http.StatusServiceUnavailable, contact.ErrNotConfigured.Error(), "")
			return
		}
		rows, err := deps.Contacts.List(r.Context())
		if errors.Is(err, contact.ErrNotConfigured) {
			adminError(w, http.StatusServiceUnavailable, contact.ErrNotConfigured.Error(), err.Error())
			return
		}
		if err != nil {
			slog.Error("listing contacts", "error", err)
			adminError(w, http.StatusBadGateway, "Failed to read contacts", err.Error())
			return
		}

		body := map[string]any{
			"success":  true,
			"contacts": rows,
			"total":    len(rows),
		}
		if deps.SpreadsheetURL != nil {
			if u := deps.SpreadsheetURL(); u != "" {
				body["spreadsheet_url"] = u
			}
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func handleListInteractions(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Interactions == nil {
			adminError(w, http.StatusServiceUnavailable, "interaction log not configured", "")
			return
		}
		limit := parseIntParam(r, "limit", 50, 500)
		offset := parseIntParam(r, "offset", 0, 0)

		items, err := deps.Interactions.ListInteractions(r.Context(), limit, offset)
		if err != nil {
			slog.Error("listing interactions", "error", err)
			adminError(w, http.StatusInternalServerError, "failed to list interactions", "")
			return
		}
		tiers, err := deps.Interactions.CountByTier(r.Context())
		if err != nil {
			slog.Error("counting interactions", "error", err)
			adminError(w, http.StatusInternalServerError, "failed to count interactions", "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"interactions": items,
			"by_tier":      tiers,
			"limit":        limit,
			"offset":       offset,
		})
	}
}
