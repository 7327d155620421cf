package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/healthbot/core"
)

func TestInMemoryStore_SymptomFrequencies(t *testing.T) {
	svc := NewInMemoryStore()
	ctx := context.Background()
	now := time.Now()

	_ = svc.LogSymptoms(ctx, core.SymptomRecord{UserID: "u1", Symptoms: []string{"Chest Pain"}, Timestamp: now.Add(-time.Hour)})
	_ = svc.LogSymptoms(ctx, core.SymptomRecord{UserID: "u1", Symptoms: []string{"chest pain", "nausea"}, Timestamp: now.Add(-20 * 24 * time.Hour)})
	_ = svc.LogSymptoms(ctx, core.SymptomRecord{UserID: "u2", Symptoms: []string{"chest pain"}})

	freq, err := svc.SymptomFrequencies(ctx, "u1", []string{"chest pain", "nausea"}, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if freq["chest pain"] != 1 || freq["nausea"] != 0 {
		t.Fatalf("unexpected 7 day frequencies: %#v", freq)
	}

	freq, _ = svc.SymptomFrequencies(ctx, "u1", []string{"chest pain", "nausea"}, now.Add(-30*24*time.Hour))
	if freq["chest pain"] != 2 || freq["nausea"] != 1 {
		t.Fatalf("unexpected 30 day frequencies: %#v", freq)
	}
}

func TestInMemoryStore_HistoryOrdering(t *testing.T) {
	svc := NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	// inserted out of order on purpose
	for _, i := range []int{2, 0, 1} {
		_ = svc.LogSymptoms(ctx, core.SymptomRecord{
			UserID:        "u1",
			Query:         fmt.Sprintf("q%d", i),
			Symptoms:      []string{"cough"},
			FinalResponse: fmt.Sprintf("r%d", i),
			Timestamp:     base.Add(time.Duration(i) * time.Minute),
		})
	}

	queries, _ := svc.RecentQueries(ctx, "u1", 2)
	if len(queries) != 2 || queries[0] != "q1" || queries[1] != "q2" {
		t.Fatalf("unexpected recent queries: %#v", queries)
	}

	history, _ := svc.MessageHistory(ctx, "u1", 10)
	if len(history) != 3 || history[0].Response != "r0" || history[0].Symptoms != "cough" {
		t.Fatalf("unexpected history: %#v", history)
	}
}

func TestInMemoryStore_MemoryPairs(t *testing.T) {
	svc := NewInMemoryStore()
	ctx := context.Background()

	results := map[string]string{"final_summary": "Take rest."}
	_ = svc.StoreConversation(ctx, core.ConversationRecord{UserID: "u1", Message: "tired", Results: results})

	// mutation safety (stored map is a copy)
	results["final_summary"] = "changed"

	pairs, err := svc.MemoryPairs(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 1 || pairs[0].User != "tired" || pairs[0].Assistant != "Take rest." {
		t.Fatalf("unexpected pairs: %#v", pairs)
	}

	svc.Clear("u1")
	pairs, _ = svc.MemoryPairs(ctx, "u1", 5)
	if len(pairs) != 0 {
		t.Fatalf("expected no pairs after clear, got %#v", pairs)
	}
}

func TestInMemoryStore_Concurrency(t *testing.T) {
	svc := NewInMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = svc.LogSymptoms(ctx, core.SymptomRecord{UserID: "u1", Query: fmt.Sprintf("q%d", i), Symptoms: []string{"fever"}})
			_ = svc.StoreConversation(ctx, core.ConversationRecord{UserID: "u1", Message: fmt.Sprintf("m%d", i)})
			_, _ = svc.SymptomFrequencies(ctx, "u1", []string{"fever"}, time.Time{})
		}(i)
	}
	wg.Wait()

	freq, _ := svc.SymptomFrequencies(ctx, "u1", []string{"fever"}, time.Time{})
	if freq["fever"] != 20 {
		t.Fatalf("expected 20 records, got %d", freq["fever"])
	}

	pairs, _ := svc.MemoryPairs(ctx, "u1", 0)
	if len(pairs) != 20 {
		t.Fatalf("expected 20 pairs, got %d", len(pairs))
	}
}
