package faq

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyKeywords is returned by NewStore when a record has no keywords.
var ErrEmptyKeywords = errors.New("faq record has no keywords")

// Record is one entry of the FAQ list. Records are immutable once loaded.
type Record struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
}

// Store holds the FAQ list in display order.
type Store struct {
	records      []Record
	byID         map[string]int
	quickReplies []string

	// precomputed lowercase forms used by the matcher
	questions []string
	keywords  [][]string
}

// NewStore validates records and builds a store. Record order is preserved.
func NewStore(records []Record, quickReplies []string) (*Store, error) {
	s := &Store{
		records:      make([]Record, 0, len(records)),
		byID:         make(map[string]int, len(records)),
		quickReplies: append([]string(nil), quickReplies...),
		questions:    make([]string, 0, len(records)),
		keywords:     make([][]string, 0, len(records)),
	}
	for _, r := range records {
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				kws = append(kws, k)
			}
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("record %q: %w", r.ID, ErrEmptyKeywords)
		}
		if _, dup := s.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate faq id %q", r.ID)
		}

		rec := r
		rec.Keywords = append([]string(nil), r.Keywords...)
		s.byID[r.ID] = len(s.records)
		s.records = append(s.records, rec)
		s.questions = append(s.questions, strings.ToLower(strings.TrimSpace(r.Question)))
		s.keywords = append(s.keywords, kws)
	}
	return s, nil
}

// Default returns the store built from the compiled-in FAQ list.
func Default() *Store {
	s, err := NewStore(defaultRecords, defaultQuickReplies)
	if err != nil {
		panic(fmt.Sprintf("faq: built-in records invalid: %v", err))
	}
	return s
}

// Records returns a copy of the FAQ list.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		r.Keywords = append([]string(nil), r.Keywords...)
		out[i] = r
	}
	return out
}

// Get looks up a record by id.
func (s *Store) Get(id string) (Record, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// QuickReplies returns the canned prompts offered by the widget.
func (s *Store) QuickReplies() []string {
	return append([]string(nil), s.quickReplies...)
}
