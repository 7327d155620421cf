package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/healthbot/core"
)

func TestInMemoryStore_AppendAndTrim(t *testing.T) {
	s := NewInMemoryStore(func(o *InMemoryOptions) { o.MaxTurns = 3 })
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendTurns(ctx, "s1", core.Message{Role: core.RoleUser, Content: fmt.Sprintf("m%d", i)}))
	}

	turns, err := s.Turns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "m2", turns[0].Content)
	assert.Equal(t, "m4", turns[2].Content)

	// returned slice is a copy
	turns[0].Content = "changed"
	again, _ := s.Turns(ctx, "s1")
	assert.Equal(t, "m2", again[0].Content)

	require.NoError(t, s.Clear(ctx, "s1"))
	empty, _ := s.Turns(ctx, "s1")
	assert.Empty(t, empty)
}

func TestInMemoryStore_Concurrency(t *testing.T) {
	s := NewInMemoryStore(func(o *InMemoryOptions) { o.MaxTurns = 0 })
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AppendTurns(ctx, "s1", core.Message{Role: core.RoleUser, Content: "x"})
			_, _ = s.Turns(ctx, "s1")
		}()
	}
	wg.Wait()

	turns, _ := s.Turns(ctx, "s1")
	assert.Len(t, turns, 50)
}
