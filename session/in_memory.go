package session

import (
	"context"
	"slices"
	"sync"

	"github.com/hupe1980/healthbot/core"
)

// DefaultMaxTurns bounds the number of messages kept per session.
const DefaultMaxTurns = 20

// InMemoryStore is a volatile SessionStore storing turns in a process local
// map. It is safe for concurrent access and best suited for tests or
// single-instance servers. Returned slices are copies.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]core.Message
	maxTurns int
}

var _ core.SessionStore = (*InMemoryStore)(nil)

// InMemoryOptions configures an InMemoryStore.
type InMemoryOptions struct {
	// MaxTurns is the number of newest messages kept per session.
	MaxTurns int
}

// NewInMemoryStore constructs an empty in‑memory session store.
func NewInMemoryStore(optFns ...func(o *InMemoryOptions)) *InMemoryStore {
	opts := InMemoryOptions{MaxTurns: DefaultMaxTurns}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &InMemoryStore{
		sessions: make(map[string][]core.Message),
		maxTurns: opts.MaxTurns,
	}
}

// Turns returns the stored messages of a session, oldest first.
func (s *InMemoryStore) Turns(_ context.Context, sessionID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.sessions[sessionID]), nil
}

// AppendTurns adds messages to a session, dropping the oldest ones beyond
// MaxTurns.
func (s *InMemoryStore) AppendTurns(_ context.Context, sessionID string, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[sessionID], msgs...)
	if s.maxTurns > 0 && len(turns) > s.maxTurns {
		turns = slices.Clone(turns[len(turns)-s.maxTurns:])
	}

	s.sessions[sessionID] = turns

	return nil
}

// Clear forgets a session.
func (s *InMemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)

	return nil
}
