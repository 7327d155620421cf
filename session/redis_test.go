package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/healthbot/core"
)

func newTestRedisStore(t *testing.T, optFns ...func(o *RedisOptions)) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, optFns...), mr
}

func TestRedisStore_AppendTrimAndTTL(t *testing.T) {
	s, mr := newTestRedisStore(t, func(o *RedisOptions) {
		o.MaxTurns = 2
		o.TTL = time.Hour
	})
	ctx := context.Background()

	require.NoError(t, s.AppendTurns(ctx, "u1",
		core.Message{Role: core.RoleUser, Content: "I have a headache"},
		core.Message{Role: core.RoleAssistant, Content: "Drink water."},
	))
	require.NoError(t, s.AppendTurns(ctx, "u1", core.Message{Role: core.RoleUser, Content: "still hurts"}))

	turns, err := s.Turns(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []core.Message{
		{Role: core.RoleAssistant, Content: "Drink water."},
		{Role: core.RoleUser, Content: "still hurts"},
	}, turns)

	assert.Equal(t, time.Hour, mr.TTL("healthbot:session:u1"))

	mr.FastForward(2 * time.Hour)

	turns, err = s.Turns(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestRedisStore_Clear(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendTurns(ctx, "u1", core.Message{Role: core.RoleUser, Content: "hi"}))
	require.True(t, mr.Exists("healthbot:session:u1"))

	require.NoError(t, s.Clear(ctx, "u1"))
	assert.False(t, mr.Exists("healthbot:session:u1"))
	require.NoError(t, s.Ping(ctx))
}

func TestRedisStore_CorruptEntry(t *testing.T) {
	s, mr := newTestRedisStore(t)

	_, err := mr.Push("healthbot:session:u1", "not json")
	require.NoError(t, err)

	_, err = s.Turns(context.Background(), "u1")
	assert.Error(t, err)
}

func TestNewRedisStoreFromURL_Invalid(t *testing.T) {
	_, err := NewRedisStoreFromURL("://bad")
	assert.Error(t, err)
}
