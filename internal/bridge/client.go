// Package bridge is the typed client for the remote trained-model service
// ("knowledge service"). Chat and Search return Go errors because the
// resolver needs to know why a tier declined; every admin operation instead
// returns a result struct carrying Success and Error and never fails past
// its own boundary.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Per-call timeouts.
const (
	HealthTimeout    = 3 * time.Second
	StatusTimeout    = 3 * time.Second
	StatsTimeout     = 5 * time.Second
	ChatTimeout      = 20 * time.Second
	SearchTimeout    = 15 * time.Second
	RetrainTimeout   = 60 * time.Second
	KnowledgeTimeout = 15 * time.Second
	UploadTimeout    = 120 * time.Second
	ScrapeTimeout    = 120 * time.Second
	ManualTimeout    = 30 * time.Second
	APIKeyTimeout    = 5 * time.Second
)

const maxResponseSize = 8 << 20

// Client talks to the knowledge service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client

	chatTimeout   time.Duration
	searchTimeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithChatTimeout overrides the /chat timeout.
func WithChatTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.chatTimeout = d
		}
	}
}

// WithSearchTimeout overrides the /search timeout.
func WithSearchTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.searchTimeout = d
		}
	}
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// per-call deadlines come from the request context
		httpClient:    &http.Client{Timeout: 0},
		chatTimeout:   ChatTimeout,
		searchTimeout: SearchTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the service root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// statusError is returned when the service answers with a non-2xx status.
type statusError struct {
	status int
	detail string
}

func (e *statusError) Error() string {
	if e.detail == "" {
		return fmt.Sprintf("knowledge service returned HTTP %d", e.status)
	}
	return fmt.Sprintf("knowledge service returned HTTP %d: %s", e.status, e.detail)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.status
	}
	return 0
}

// Result is the envelope shared by every admin operation.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func failed(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// envelope is the common part of the service's JSON replies.
type envelope struct {
	Success *bool           `json:"success"`
	Error   string          `json:"error"`
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// result converts an envelope to a Result. When strict is set a reply without
// an explicit "success": true counts as a failure.
func (e envelope) result(strict bool) Result {
	ok := (e.Success == nil && !strict) || (e.Success != nil && *e.Success)
	if ok {
		return Result{Success: true}
	}
	msg := e.Error
	if msg == "" {
		msg = detailText(e.Detail)
	}
	if msg == "" {
		msg = "knowledge service reported failure"
	}
	return Result{Success: false, Error: msg}
}

func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (c *Client) callJSON(ctx context.Context, method, path string, timeout time.Duration, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	return c.send(ctx, method, path, timeout, body, "application/json", out)
}

func (c *Client) send(ctx context.Context, method, path string, timeout time.Duration, body io.Reader, contentType string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &statusError{status: resp.StatusCode}
		var env envelope
		if json.Unmarshal(data, &env) == nil {
			se.detail = env.Error
			if se.detail == "" {
				se.detail = detailText(env.Detail)
			}
		}
		return se
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}
