package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// ErrNoAPIKey is returned by Complete when no provider key is configured.
var ErrNoAPIKey = errors.New("no completion API key configured")

// ErrNoChoices is returned when the provider answered without any content.
var ErrNoChoices = errors.New("completion returned no content")

// KeyProvider supplies the bearer token for each request. The key may change
// at runtime when an admin sets a new one.
type KeyProvider interface {
	APIKey() string
}

// StaticKey is a KeyProvider with a fixed key.
type StaticKey string

func (k StaticKey) APIKey() string { return string(k) }

// Client talks to an OpenAI-compatible chat completions API.
type Client struct {
	keys       KeyProvider
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a client for the provider at baseURL. An empty baseURL
// selects the OpenAI endpoint.
func NewClient(baseURL string, keys KeyProvider) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		keys:    keys,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
		// deadline comes from the per-call context
		httpClient: &http.Client{},
	}
}

// WithTimeout sets the per-call deadline. Retries on 429 share it.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// Ready reports whether a key is available.
func (c *Client) Ready() bool {
	return c.keys != nil && c.keys.APIKey() != ""
}

// Complete sends a non-streaming chat completion request and returns the
// first choice's content.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if !c.Ready() {
		return "", ErrNoAPIKey
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	for attempt := range maxRetries {
		text, err := c.doComplete(ctx, body)
		if err == nil {
			return text, nil
		}

		if !isRateLimit(err) {
			return "", err
		}

		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return "", fmt.Errorf("rate limited after %d retries: %w", maxRetries, lastErr)
}

// rateLimitError is returned on HTTP 429.
type rateLimitError struct {
	status int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d)", e.status)
}

func isRateLimit(err error) bool {
	var rl *rateLimitError
	return errors.As(err, &rl)
}

func (c *Client) doComplete(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &rateLimitError{status: resp.StatusCode}
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var out CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding completion: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrNoChoices
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.keys.APIKey())
}
