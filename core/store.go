package core

import (
	"context"
	"maps"
	"slices"
	"time"
)

// SymptomRecord is one logged symptom interaction.
type SymptomRecord struct {
	UserID        string
	Query         string
	Symptoms      []string
	StressLevel   string
	RiskScore     float64
	Timestamp     time.Time
	FinalResponse string
}

// HistoryEntry is a past interaction as presented to the user.
type HistoryEntry struct {
	Symptoms  string    `json:"symptoms"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationRecord is one stored chat turn with all agent outputs.
type ConversationRecord struct {
	UserID    string
	Message   string
	Intents   []string
	Results   map[string]string
	Timestamp time.Time
}

// MemoryPair is a past user message together with the assistant's answer.
type MemoryPair struct {
	User      string
	Assistant string
}

// SymptomStore persists symptom interactions and answers frequency queries
// over them.
type SymptomStore interface {
	LogSymptoms(ctx context.Context, rec SymptomRecord) error
	// SymptomFrequencies counts, per symptom, the logged interactions of the
	// user since the given time whose symptoms mention it (case-insensitive).
	SymptomFrequencies(ctx context.Context, userID string, symptoms []string, since time.Time) (map[string]int, error)
	// MessageHistory returns up to limit most recent interactions, oldest first.
	MessageHistory(ctx context.Context, userID string, limit int) ([]HistoryEntry, error)
	// RecentQueries returns up to limit most recent user queries, oldest first.
	RecentQueries(ctx context.Context, userID string, limit int) ([]string, error)
}

// MemoryStore is the long-term conversational memory.
type MemoryStore interface {
	StoreConversation(ctx context.Context, rec ConversationRecord) error
	// MemoryPairs returns up to limit most recent turns, oldest first.
	MemoryPairs(ctx context.Context, userID string, limit int) ([]MemoryPair, error)
}

// LongTermStore bundles both long-term persistence concerns. The relational
// store and the in-memory store implement it.
type LongTermStore interface {
	SymptomStore
	MemoryStore
}

// SessionStore is the short-term memory: the recent turns of a session.
type SessionStore interface {
	Turns(ctx context.Context, sessionID string) ([]Message, error)
	AppendTurns(ctx context.Context, sessionID string, msgs ...Message) error
	Clear(ctx context.Context, sessionID string) error
}

// Services groups the stores exposed to agents through the RunContext.
// Any of them may be nil; agents skip the related work in that case.
type Services struct {
	Symptoms SymptomStore
	Memory   MemoryStore
	Sessions SessionStore
}

// FinalAnswer picks the answer shown to the user from stored agent outputs:
// the final summary when present, else the longest output.
func FinalAnswer(results map[string]string) string {
	if v := results["final_summary"]; v != "" {
		return v
	}

	best := ""
	for _, k := range slices.Sorted(maps.Keys(results)) {
		if v := results[k]; len(v) > len(best) {
			best = v
		}
	}

	return best
}
