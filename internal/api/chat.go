package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arvocap/arvochat/internal/bridge"
	"github.com/arvocap/arvochat/internal/chat"
	"github.com/arvocap/arvochat/internal/contact"
	"github.com/arvocap/arvochat/internal/faq"
	"github.com/arvocap/arvochat/internal/resolver"
	"github.com/arvocap/arvochat/internal/session"
	"github.com/arvocap/arvochat/internal/storage"
)

const (
	defaultKnowledgeResults = 3
	maxKnowledgeResults     = 20
)

// ChatResolver answers one turn.
type ChatResolver interface {
	Resolve(ctx context.Context, req resolver.Request) resolver.Resolution
}

// InteractionLog persists resolved turns.
type InteractionLog interface {
	SaveInteraction(ctx context.Context, i storage.Interaction) error
}

// ContactSubmitter accepts contact requests.
type ContactSubmitter interface {
	Submit(ctx context.Context, sub contact.Submission) (contact.Ack, error)
}

// KnowledgeSearcher is the search side of the knowledge service.
type KnowledgeSearcher interface {
	Search(ctx context.Context, p bridge.SearchParams) ([]bridge.SearchResult, error)
	Health(ctx context.Context) bridge.Result
}

// ChatDeps holds the dependencies of the public widget API.
type ChatDeps struct {
	FAQ          *faq.Store
	Resolver     ChatResolver
	Sessions     *session.Manager
	Contacts     ContactSubmitter
	Knowledge    KnowledgeSearcher // optional; knowledge routes report degraded when nil
	Interactions InteractionLog    // optional
	Clock        func() time.Time
}

func NewChatHandler(deps ChatDeps) http.Handler {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	r := chi.NewRouter()
	r.Get("/faqs", handleFAQs(deps))
	r.Get("/faqs/{id}", handleFAQ(deps))
	r.Post("/chat", handleChat(deps))
	r.Get("/sessions/{id}", handleGetSession(deps))
	r.Delete("/sessions/{id}", handleEndSession(deps))
	r.Post("/save-contact", handleSaveContact(deps))
	r.Post("/knowledge", handleKnowledgeSearch(deps))
	r.Get("/knowledge/health", handleKnowledgeHealth(deps))
	return r
}

func handleFAQs(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"faqs":          deps.FAQ.Records(),
			"quick_replies": deps.FAQ.QuickReplies(),
		})
	}
}

func handleFAQ(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := deps.FAQ.Get(chi.URLParam(r, "id"))
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "faq entry not found")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

type chatRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	resolver.Resolution
	SessionID     string `json:"session_id"`
	ContactPrompt string `json:"contact_prompt,omitempty"`
}

func handleChat(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		req.Message = strings.TrimSpace(req.Message)
		if err := validate.Struct(req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", validationMessage(err))
			return
		}

		start := time.Now()
		sid := deps.Sessions.Ensure(req.SessionID)
		if _, err := deps.Sessions.Append(sid, chat.RoleUser, req.Message, nil); err != nil {
			slog.Warn("appending user message", "session_id", sid, "error", err)
		}

		res := deps.Resolver.Resolve(r.Context(), resolver.Request{Query: req.Message, SessionID: sid})

		if _, err := deps.Sessions.Append(sid, chat.RoleAssistant, res.Message, res.Sources); err != nil {
			slog.Warn("appending assistant message", "session_id", sid, "error", err)
		}

		if deps.Interactions != nil {
			rec := storage.Interaction{
				ID:            uuid.New().String(),
				CreatedAt:     deps.Clock().UTC(),
				SessionID:     sid,
				Query:         req.Message,
				Tier:          string(res.Tier),
				Cached:        res.Cached,
				UsedKnowledge: res.UsedKnowledge,
				FAQID:         res.FAQID,
				Answer:        res.Message,
				LatencyMs:     time.Since(start).Milliseconds(),
			}
			if err := deps.Interactions.SaveInteraction(r.Context(), rec); err != nil {
				slog.Warn("saving interaction", "session_id", sid, "error", err)
			}
		}

		out := chatResponse{Resolution: res, SessionID: sid}
		if res.SuggestContact {
			out.ContactPrompt = resolver.NoMatchPrompt
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGetSession(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		msgs, err := deps.Sessions.Get(id)
		if errors.Is(err, session.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "server_error", "failed to read session")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": id,
			"messages":   msgs,
		})
	}
}

func handleEndSession(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Sessions.End(chi.URLParam(r, "id")); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found", "session not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "server_error", "failed to end session")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleSaveContact(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub contact.Submission
		if err := decodeJSON(w, r, &sub, false); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
			return
		}

		ack, err := deps.Contacts.Submit(r.Context(), sub)
		if errors.Is(err, contact.ErrInvalidSubmission) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
			return
		}
		if err != nil {
			slog.Error("contact submit", "error", err)
			httpError(w, http.StatusInternalServerError, "server_error", "failed to save contact")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"message":   ack.Message,
			"timestamp": ack.Timestamp,
		})
	}
}

type knowledgeRequest struct {
	Query      string `json:"query" validate:"required"`
	MaxResults int    `json:"max_results"`
}

func handleKnowledgeSearch(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req knowledgeRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		req.Query = strings.TrimSpace(req.Query)
		if err := validate.Struct(req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", validationMessage(err))
			return
		}
		if req.MaxResults <= 0 {
			req.MaxResults = defaultKnowledgeResults
		}
		req.MaxResults = min(req.MaxResults, maxKnowledgeResults)

		degraded := map[string]any{
			"results":     []bridge.SearchResult{},
			"has_results": false,
			"message":     "Knowledge base not available",
		}
		if deps.Knowledge == nil {
			writeJSON(w, http.StatusOK, degraded)
			return
		}

		results, err := deps.Knowledge.Search(r.Context(), bridge.SearchParams{Query: req.Query, MaxResults: req.MaxResults})
		if err != nil {
			slog.Warn("knowledge search unavailable", "error", err)
			writeJSON(w, http.StatusOK, degraded)
			return
		}
		if results == nil {
			results = []bridge.SearchResult{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"results":     results,
			"has_results": len(results) > 0,
		})
	}
}

func handleKnowledgeHealth(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, backend := "degraded", "unavailable"
		if deps.Knowledge != nil {
			if deps.Knowledge.Health(r.Context()).Success {
				status, backend = "healthy", "connected"
			} else {
				backend = "disconnected"
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    status,
			"backend":   backend,
			"timestamp": deps.Clock().UTC().Format(time.RFC3339),
		})
	}
}

// HandleHealth is the liveness probe.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
