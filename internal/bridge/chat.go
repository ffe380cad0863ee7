package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/arvocap/arvochat/internal/chat"
)

// ErrEmptyReply is returned by Chat when the service answered without text.
var ErrEmptyReply = errors.New("knowledge service returned an empty reply")

// ChatReply is a successful answer from the trained model.
type ChatReply struct {
	Message        string
	ConversationID string
	Sources        []chat.SourceRef
}

type chatRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id"`
}

type chatResponse struct {
	Response       string           `json:"response"`
	Message        string           `json:"message"`
	ConversationID string           `json:"conversation_id"`
	Sources        []chat.SourceRef `json:"sources"`
}

// Chat asks the trained model directly. conversationID may be empty.
func (c *Client) Chat(ctx context.Context, message, conversationID string) (ChatReply, error) {
	req := chatRequest{Message: message}
	if conversationID != "" {
		req.ConversationID = &conversationID
	}

	var resp chatResponse
	if err := c.callJSON(ctx, http.MethodPost, "/chat", c.chatTimeout, req, &resp); err != nil {
		return ChatReply{}, err
	}

	text := resp.Response
	if strings.TrimSpace(text) == "" {
		text = resp.Message
	}
	if strings.TrimSpace(text) == "" {
		return ChatReply{}, ErrEmptyReply
	}
	return ChatReply{
		Message:        text,
		ConversationID: resp.ConversationID,
		Sources:        resp.Sources,
	}, nil
}

// SearchParams controls a semantic search.
type SearchParams struct {
	Query          string
	MaxResults     int
	ScoreThreshold float64
}

// SearchResult is one normalized semantic-search hit.
type SearchResult struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

type searchRequest struct {
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
}

type rawSearchItem struct {
	Content  string         `json:"content"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Score    *float64       `json:"score"`
	Distance *float64       `json:"distance"`
}

// Search runs a semantic search. Results are normalized: content falls back
// to text, metadata defaults to an empty map, score falls back to distance
// and then to zero.
func (c *Client) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	req := searchRequest{Query: strings.TrimSpace(p.Query), MaxResults: p.MaxResults}
	if p.ScoreThreshold > 0 {
		req.ScoreThreshold = &p.ScoreThreshold
	}

	var resp struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := c.callJSON(ctx, http.MethodPost, "/search", c.searchTimeout, req, &resp); err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(resp.Results))
	for _, raw := range resp.Results {
		var item rawSearchItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		out = append(out, normalize(item))
	}
	return out, nil
}

func normalize(item rawSearchItem) SearchResult {
	r := SearchResult{Content: item.Content, Metadata: item.Metadata}
	if r.Content == "" {
		r.Content = item.Text
	}
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	switch {
	case item.Score != nil && *item.Score != 0:
		r.Score = *item.Score
	case item.Distance != nil:
		r.Score = *item.Distance
	}
	return r
}
