// Package session keeps the in-memory, per-visitor chat transcripts.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arvocap/arvochat/internal/chat"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 30 * time.Minute

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type session struct {
	messages []chat.Message
	lastSeen time.Time
}

// Manager owns all live sessions. Transcripts are append-only and never
// persisted; a session disappears after ttl of inactivity or on End.
type Manager struct {
	clock Clock
	ttl   time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

func NewManager(ttl time.Duration) *Manager {
	return NewManagerWithClock(realClock{}, ttl)
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(clock Clock, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		clock:    clock,
		ttl:      ttl,
		sessions: make(map[string]*session),
	}
}

// Ensure returns id when it names a live session. Otherwise it starts a new
// session under a fresh id; callers never choose the id of a new session.
func (m *Manager) Ensure(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if s, ok := m.sessions[id]; ok {
		if !m.expired(s, now) {
			s.lastSeen = now
			return id
		}
		delete(m.sessions, id)
	}
	id = uuid.New().String()
	m.sessions[id] = &session{lastSeen: now}
	return id
}

// Append adds a message to the session log and returns it with its id and
// timestamp filled in. Timestamps never go backwards within a session.
func (m *Manager) Append(id string, role chat.Role, content string, sources []chat.SourceRef) (chat.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	s, ok := m.sessions[id]
	if !ok || m.expired(s, now) {
		delete(m.sessions, id)
		return chat.Message{}, ErrNotFound
	}

	ts := now
	if n := len(s.messages); n > 0 && ts.Before(s.messages[n-1].Timestamp) {
		ts = s.messages[n-1].Timestamp
	}
	msg := chat.Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: ts,
		Sources:   sources,
	}
	s.messages = append(s.messages, msg)
	s.lastSeen = now
	return msg, nil
}

// Get returns a copy of the session transcript.
func (m *Manager) Get(id string) ([]chat.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || m.expired(s, m.clock.Now()) {
		delete(m.sessions, id)
		return nil, ErrNotFound
	}
	out := make([]chat.Message, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

// End destroys a session. Ending an unknown session returns ErrNotFound.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Sweep removes expired sessions and reports how many were dropped.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	n := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked sessions, expired or not.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) expired(s *session, now time.Time) bool {
	return now.Sub(s.lastSeen) >= m.ttl
}
