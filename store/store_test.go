package store

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/healthbot/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(Config{Type: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, s.Migrate())

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Type: "oracle"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestStore_SymptomFrequencies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	logs := []core.SymptomRecord{
		{UserID: "u1", Query: "q1", Symptoms: []string{"Headache", "fever"}, Timestamp: now.Add(-1 * time.Hour)},
		{UserID: "u1", Query: "q2", Symptoms: []string{"headache"}, Timestamp: now.Add(-48 * time.Hour)},
		{UserID: "u1", Query: "q3", Symptoms: []string{"headache"}, Timestamp: now.Add(-10 * 24 * time.Hour)},
		{UserID: "u2", Query: "q4", Symptoms: []string{"headache"}, Timestamp: now},
	}
	for _, l := range logs {
		require.NoError(t, s.LogSymptoms(ctx, l))
	}

	freq, err := s.SymptomFrequencies(ctx, "u1", []string{"headache", "fever", "rash"}, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"headache": 2, "fever": 1, "rash": 0}, freq)

	freq, err = s.SymptomFrequencies(ctx, "u1", []string{"HEADACHE"}, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, freq["HEADACHE"], "matching is case-insensitive")
}

func TestStore_HistoryOldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	for i, q := range []string{"first", "second", "third"} {
		require.NoError(t, s.LogSymptoms(ctx, core.SymptomRecord{
			UserID:        "u1",
			Query:         q,
			Symptoms:      []string{"cough"},
			Timestamp:     base.Add(time.Duration(i) * time.Minute),
			FinalResponse: "resp " + q,
		}))
	}

	queries, err := s.RecentQueries(ctx, "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "third"}, queries)

	history, err := s.MessageHistory(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "cough", history[0].Symptoms)
	assert.Equal(t, "resp first", history[0].Response)
	assert.True(t, history[2].Timestamp.Equal(base.Add(2*time.Minute)))

	empty, err := s.MessageHistory(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_ConversationMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, s.StoreConversation(ctx, core.ConversationRecord{
		UserID:    "u1",
		Message:   "back pain",
		Intents:   []string{"home_remedy", "physical_relief"},
		Results:   map[string]string{"home_remedy": "rest", "final_summary": "Rest and stretch."},
		Timestamp: base,
	}))
	require.NoError(t, s.StoreConversation(ctx, core.ConversationRecord{
		UserID:    "u1",
		Message:   "hospital near me",
		Results:   map[string]string{"info_search": "City Hospital"},
		Timestamp: base.Add(time.Minute),
	}))

	pairs, err := s.MemoryPairs(ctx, "u1", 5)
	require.NoError(t, err)
	assert.Equal(t, []core.MemoryPair{
		{User: "back pain", Assistant: "Rest and stretch."},
		{User: "hospital near me", Assistant: "City Hospital"},
	}, pairs)

	var stored ConversationLog
	require.NoError(t, s.DB().First(&stored).Error)
	assert.Equal(t, "home_remedy, physical_relief", stored.Intents)
}

func TestStore_MemoryPairsCorruptResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.DB().Create(&ConversationLog{
		UserID:    "u1",
		Message:   "hello",
		Results:   datatypes.JSON(`{"final_summary": 42}`),
		Timestamp: time.Now().UTC(),
	}).Error)

	_, err := s.MemoryPairs(ctx, "u1", 5)
	assert.ErrorIs(t, err, ErrCorruptRecord)
}
