package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// Chunking defaults used when the caller leaves them zero.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunking controls how the service splits ingested text.
type Chunking struct {
	Size    int
	Overlap int
}

func (c Chunking) withDefaults() Chunking {
	if c.Size <= 0 {
		c.Size = DefaultChunkSize
	}
	if c.Overlap <= 0 {
		c.Overlap = DefaultChunkOverlap
	}
	return c
}

// Health reports whether the service answers GET /health with 2xx.
func (c *Client) Health(ctx context.Context) Result {
	if err := c.callJSON(ctx, http.MethodGet, "/health", HealthTimeout, nil, nil); err != nil {
		return failed(err)
	}
	return Result{Success: true}
}

// StatusResult carries the service's knowledge base size when reported.
type StatusResult struct {
	Result
	KnowledgeBaseSize *int `json:"knowledge_base_size,omitempty"`
}

// Status fetches GET /status. A non-numeric knowledge_base_size is ignored.
func (c *Client) Status(ctx context.Context) StatusResult {
	var raw map[string]json.RawMessage
	if err := c.callJSON(ctx, http.MethodGet, "/status", StatusTimeout, nil, &raw); err != nil {
		return StatusResult{Result: failed(err)}
	}
	res := StatusResult{Result: Result{Success: true}}
	if v, ok := raw["knowledge_base_size"]; ok {
		var n int
		if json.Unmarshal(v, &n) == nil {
			res.KnowledgeBaseSize = &n
		}
	}
	return res
}

// TrainingStats summarizes what the service has been trained on.
type TrainingStats struct {
	Result
	TotalDocuments    int    `json:"total_documents"`
	TotalWebsites     int    `json:"total_websites"`
	ManualEntries     int    `json:"manual_entries"`
	KnowledgeBaseSize int    `json:"knowledge_base_size"`
	LastTrained       string `json:"last_trained,omitempty"`
}

func (c *Client) TrainingStats(ctx context.Context) TrainingStats {
	var resp struct {
		envelope
		TotalDocuments    int    `json:"total_documents"`
		TotalWebsites     int    `json:"total_websites"`
		ManualEntries     int    `json:"manual_entries"`
		KnowledgeBaseSize int    `json:"knowledge_base_size"`
		LastTrained       string `json:"last_trained"`
	}
	if err := c.callJSON(ctx, http.MethodGet, "/admin/training_stats", StatsTimeout, nil, &resp); err != nil {
		return TrainingStats{Result: failed(err)}
	}
	return TrainingStats{
		Result:            resp.result(false),
		TotalDocuments:    resp.TotalDocuments,
		TotalWebsites:     resp.TotalWebsites,
		ManualEntries:     resp.ManualEntries,
		KnowledgeBaseSize: resp.KnowledgeBaseSize,
		LastTrained:       resp.LastTrained,
	}
}

// RetrainResult carries the job token of a triggered retrain.
type RetrainResult struct {
	Result
	JobID string `json:"job_id,omitempty"`
}

// Retrain asks the service to rebuild its knowledge index.
func (c *Client) Retrain(ctx context.Context, force bool) RetrainResult {
	req := map[string]any{
		"background_tasks":    false,
		"processed_data_file": "processed_data.json",
		"force":               force,
	}
	var resp struct {
		envelope
		JobID    string `json:"job_id"`
		JobIDAlt string `json:"jobId"`
	}
	if err := c.callJSON(ctx, http.MethodPost, "/retrain", RetrainTimeout, req, &resp); err != nil {
		return RetrainResult{Result: failed(err)}
	}
	id := resp.JobID
	if id == "" {
		id = resp.JobIDAlt
	}
	return RetrainResult{Result: resp.result(true), JobID: id}
}

// KnowledgeItem is one entry of the service's knowledge base.
type KnowledgeItem struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	SourceType string         `json:"source_type,omitempty"`
	Source     string         `json:"source,omitempty"`
	CreatedAt  string         `json:"created_at,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// KnowledgeList is the result of ListKnowledge.
type KnowledgeList struct {
	Result
	Items      []KnowledgeItem `json:"items"`
	TotalItems int             `json:"total_items"`
}

func (c *Client) ListKnowledge(ctx context.Context) KnowledgeList {
	var resp struct {
		envelope
		Items      []KnowledgeItem `json:"items"`
		TotalItems *int            `json:"total_items"`
	}
	if err := c.callJSON(ctx, http.MethodGet, "/admin/knowledge_base", KnowledgeTimeout, nil, &resp); err != nil {
		return KnowledgeList{Result: failed(err), Items: []KnowledgeItem{}}
	}
	list := KnowledgeList{Result: resp.result(false), Items: resp.Items}
	if list.Items == nil {
		list.Items = []KnowledgeItem{}
	}
	list.TotalItems = len(list.Items)
	if resp.TotalItems != nil {
		list.TotalItems = *resp.TotalItems
	}
	return list
}

// UpdateKnowledge replaces the title and content of an item.
func (c *Client) UpdateKnowledge(ctx context.Context, id, title, content string) Result {
	req := map[string]string{"title": title, "content": content}
	var resp envelope
	if err := c.callJSON(ctx, http.MethodPut, "/admin/knowledge_base/"+url.PathEscape(id), KnowledgeTimeout, req, &resp); err != nil {
		return failed(err)
	}
	return resp.result(false)
}

// DeleteKnowledge removes an item.
func (c *Client) DeleteKnowledge(ctx context.Context, id string) Result {
	var resp envelope
	if err := c.callJSON(ctx, http.MethodDelete, "/admin/knowledge_base/"+url.PathEscape(id), KnowledgeTimeout, nil, &resp); err != nil {
		return failed(err)
	}
	return resp.result(false)
}

// IngestResult reports what an ingest call produced.
type IngestResult struct {
	Result
	ChunksCreated      int `json:"chunks_created"`
	PagesProcessed     int `json:"pages_processed,omitempty"`
	DocumentsProcessed int `json:"documents_processed,omitempty"`
}

type ingestResponse struct {
	envelope
	ChunksCreated  int `json:"chunks_created"`
	PagesProcessed int `json:"pages_processed"`
}

// Document is a file handed to UploadDocuments.
type Document struct {
	Filename string
	Data     []byte
}

// UploadDocuments sends files to the service for OCR/chunking.
func (c *Client) UploadDocuments(ctx context.Context, docs []Document, ocr bool, ch Chunking) IngestResult {
	ch = ch.withDefaults()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, d := range docs {
		fw, err := mw.CreateFormFile("documents", d.Filename)
		if err != nil {
			return IngestResult{Result: failed(fmt.Errorf("building upload: %w", err))}
		}
		if _, err := fw.Write(d.Data); err != nil {
			return IngestResult{Result: failed(fmt.Errorf("building upload: %w", err))}
		}
	}
	fields := map[string]string{
		"ocr_enabled":   strconv.FormatBool(ocr),
		"chunk_size":    strconv.Itoa(ch.Size),
		"chunk_overlap": strconv.Itoa(ch.Overlap),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return IngestResult{Result: failed(fmt.Errorf("building upload: %w", err))}
		}
	}
	if err := mw.Close(); err != nil {
		return IngestResult{Result: failed(fmt.Errorf("building upload: %w", err))}
	}

	var resp ingestResponse
	if err := c.send(ctx, http.MethodPost, "/admin/upload_documents", UploadTimeout, &buf, mw.FormDataContentType(), &resp); err != nil {
		return IngestResult{Result: failed(err)}
	}
	return IngestResult{
		Result:             resp.result(false),
		ChunksCreated:      resp.ChunksCreated,
		DocumentsProcessed: len(docs),
	}
}

// ScrapeWebsite asks the service to crawl pageURL to the given depth.
func (c *Client) ScrapeWebsite(ctx context.Context, pageURL string, depth int, ch Chunking) IngestResult {
	ch = ch.withDefaults()
	req := map[string]any{
		"url":           pageURL,
		"depth":         depth,
		"chunk_size":    ch.Size,
		"chunk_overlap": ch.Overlap,
	}
	var resp ingestResponse
	if err := c.callJSON(ctx, http.MethodPost, "/admin/scrape_website", ScrapeTimeout, req, &resp); err != nil {
		return IngestResult{Result: failed(err)}
	}
	return IngestResult{
		Result:         resp.result(false),
		ChunksCreated:  resp.ChunksCreated,
		PagesProcessed: resp.PagesProcessed,
	}
}

// AddManualEntry adds a hand-written note to the knowledge base.
func (c *Client) AddManualEntry(ctx context.Context, title, content string, ch Chunking) IngestResult {
	ch = ch.withDefaults()
	req := map[string]any{
		"title":         title,
		"content":       content,
		"chunk_size":    ch.Size,
		"chunk_overlap": ch.Overlap,
	}
	var resp ingestResponse
	if err := c.callJSON(ctx, http.MethodPost, "/admin/add_manual_entry", ManualTimeout, req, &resp); err != nil {
		return IngestResult{Result: failed(err)}
	}
	return IngestResult{Result: resp.result(false), ChunksCreated: resp.ChunksCreated}
}

// SetAPIKey stores a provider key in the service's memory. The service must
// answer with an explicit "success": true.
func (c *Client) SetAPIKey(ctx context.Context, provider, key string) Result {
	req := map[string]string{"provider": provider, "api_key": key}
	var resp envelope
	if err := c.callJSON(ctx, http.MethodPost, "/admin/set_api_key", APIKeyTimeout, req, &resp); err != nil {
		return failed(err)
	}
	return resp.result(true)
}
