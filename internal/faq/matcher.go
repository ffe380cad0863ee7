package faq

import (
	"strings"
	"unicode/utf8"
)

// Kind tags a match outcome.
type Kind int

const (
	NoMatch Kind = iota
	ExactMatch
	KeywordMatch
)

func (k Kind) String() string {
	switch k {
	case ExactMatch:
		return "exact"
	case KeywordMatch:
		return "keyword"
	default:
		return "none"
	}
}

// longKeyword is the rune length at which a single keyword hit is enough.
const longKeyword = 4

// Outcome is the result of a match. Record and Hits are zero for NoMatch.
type Outcome struct {
	Kind   Kind
	Record Record
	Hits   int
}

// Found reports whether the outcome carries a record.
func (o Outcome) Found() bool { return o.Kind != NoMatch }

// Matcher maps free-text queries to FAQ records.
type Matcher struct {
	store *Store
}

func NewMatcher(store *Store) *Matcher {
	return &Matcher{store: store}
}

// Match returns the best record for query. An exact (case-insensitive)
// question match wins outright. Otherwise a record qualifies if the query
// contains at least two of its keywords, or one keyword of four or more
// runes; the record with the most hits wins and ties keep the earlier record.
func (m *Matcher) Match(query string) Outcome {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Outcome{Kind: NoMatch}
	}

	for i, question := range m.store.questions {
		if question == q {
			return Outcome{Kind: ExactMatch, Record: m.store.records[i]}
		}
	}

	best, bestHits := -1, 0
	for i, kws := range m.store.keywords {
		hits, long := 0, false
		for _, kw := range kws {
			if strings.Contains(q, kw) {
				hits++
				if utf8.RuneCountInString(kw) >= longKeyword {
					long = true
				}
			}
		}
		if hits < 2 && !long {
			continue
		}
		if hits > bestHits {
			best, bestHits = i, hits
		}
	}
	if best < 0 {
		return Outcome{Kind: NoMatch}
	}
	return Outcome{Kind: KeywordMatch, Record: m.store.records[best], Hits: bestHits}
}
