package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/healthbot/core"
)

// InMemoryStore is a naive process‑local core.LongTermStore. It offers:
//  1. Per-user symptom logs with substring frequency counting
//  2. Per-user append-only conversation records
//
// Concurrency: protected by RWMutex. Returned values are copies.
// Suitable for tests, demos and database-less runs; data is lost on exit.
type InMemoryStore struct {
	mu            sync.RWMutex
	symptoms      map[string][]core.SymptomRecord      // userID -> records in insertion order
	conversations map[string][]core.ConversationRecord // userID -> records in insertion order
	now           func() time.Time
}

var _ core.LongTermStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates a new in-memory long-term store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		symptoms:      make(map[string][]core.SymptomRecord),
		conversations: make(map[string][]core.ConversationRecord),
		now:           time.Now,
	}
}

// LogSymptoms appends a symptom record. A zero timestamp is set to now.
func (m *InMemoryStore) LogSymptoms(_ context.Context, rec core.SymptomRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = m.now()
	}

	rec.Timestamp = rec.Timestamp.UTC()
	rec.Symptoms = slices.Clone(rec.Symptoms)
	m.symptoms[rec.UserID] = append(m.symptoms[rec.UserID], rec)

	return nil
}

// SymptomFrequencies counts records since the given time whose joined
// symptom list contains the symptom (case-insensitive).
func (m *InMemoryStore) SymptomFrequencies(_ context.Context, userID string, symptoms []string, since time.Time) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	freq := make(map[string]int, len(symptoms))

	for _, symptom := range symptoms {
		needle := strings.ToLower(symptom)
		count := 0

		for _, rec := range m.symptoms[userID] {
			if rec.Timestamp.Before(since) {
				continue
			}

			if strings.Contains(strings.ToLower(strings.Join(rec.Symptoms, ", ")), needle) {
				count++
			}
		}

		freq[symptom] = count
	}

	return freq, nil
}

// MessageHistory returns up to limit most recent interactions, oldest first.
func (m *InMemoryStore) MessageHistory(_ context.Context, userID string, limit int) ([]core.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := tail(m.symptomsByTime(userID), limit)

	out := make([]core.HistoryEntry, 0, len(recs))
	for _, r := range recs {
		out = append(out, core.HistoryEntry{Symptoms: strings.Join(r.Symptoms, ", "), Response: r.FinalResponse, Timestamp: r.Timestamp})
	}

	return out, nil
}

// RecentQueries returns up to limit most recent queries, oldest first.
func (m *InMemoryStore) RecentQueries(_ context.Context, userID string, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := tail(m.symptomsByTime(userID), limit)

	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Query)
	}

	return out, nil
}

// StoreConversation appends a conversation record.
func (m *InMemoryStore) StoreConversation(_ context.Context, rec core.ConversationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = m.now()
	}

	rec.Timestamp = rec.Timestamp.UTC()
	rec.Intents = slices.Clone(rec.Intents)
	rec.Results = maps.Clone(rec.Results)
	m.conversations[rec.UserID] = append(m.conversations[rec.UserID], rec)

	return nil
}

// MemoryPairs returns up to limit most recent turns, oldest first.
func (m *InMemoryStore) MemoryPairs(_ context.Context, userID string, limit int) ([]core.MemoryPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := slices.Clone(m.conversations[userID])
	slices.SortStableFunc(recs, func(a, b core.ConversationRecord) int { return a.Timestamp.Compare(b.Timestamp) })
	recs = tail(recs, limit)

	out := make([]core.MemoryPair, 0, len(recs))
	for _, r := range recs {
		out = append(out, core.MemoryPair{User: r.Message, Assistant: core.FinalAnswer(r.Results)})
	}

	return out, nil
}

// Clear removes everything stored for the user.
func (m *InMemoryStore) Clear(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.symptoms, userID)
	delete(m.conversations, userID)
}

func (m *InMemoryStore) symptomsByTime(userID string) []core.SymptomRecord {
	recs := slices.Clone(m.symptoms[userID])
	slices.SortStableFunc(recs, func(a, b core.SymptomRecord) int { return a.Timestamp.Compare(b.Timestamp) })

	return recs
}

func tail[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[len(s)-limit:]
	}

	return s
}
