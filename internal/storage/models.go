package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction is one resolved chat turn.
type Interaction struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	SessionID     string    `json:"session_id"`
	Query         string    `json:"query"`
	Tier          string    `json:"tier"`
	Cached        bool      `json:"cached"`
	UsedKnowledge bool      `json:"used_knowledge"`
	FAQID         string    `json:"faq_id,omitempty"`
	Answer        string    `json:"answer"`
	LatencyMs     int64     `json:"latency_ms"`
}

// TierCount is the number of interactions answered by one tier.
type TierCount struct {
	Tier  string `json:"tier"`
	Count int    `json:"count"`
}
