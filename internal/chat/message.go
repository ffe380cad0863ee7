// Package chat holds the message types shared by the session log, the
// resolver and the HTTP layer.
package chat

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a session transcript.
type Message struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Sources   []SourceRef `json:"sources,omitempty"`
}

// Source types reported by the knowledge service.
const (
	SourceWebpage  = "webpage"
	SourceDocument = "document"
	SourceManual   = "manual"
)

// SourceRef is a citation returned by the knowledge service. It is passed
// through untouched; fields this service does not know about are kept in
// Extra and written back out on marshal.
type SourceRef struct {
	Label          string   `json:"label"`
	SourceType     string   `json:"source_type,omitempty"`
	URL            string   `json:"url,omitempty"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var knownSourceFields = map[string]bool{
	"label":           true,
	"source_type":     true,
	"url":             true,
	"relevance_score": true,
}

// MarshalJSON merges Extra fields with the known fields.
func (s SourceRef) MarshalJSON() ([]byte, error) {
	type alias SourceRef
	base, err := json.Marshal(alias(s))
	if err != nil {
		return nil, err
	}
	if len(s.Extra) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage, len(s.Extra)+4)
	for k, v := range s.Extra {
		merged[k] = v
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(base, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes known fields and keeps everything else in Extra.
func (s *SourceRef) UnmarshalJSON(data []byte) error {
	type alias SourceRef
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = SourceRef(a)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if knownSourceFields[k] {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]json.RawMessage)
		}
		s.Extra[k] = v
	}
	return nil
}
