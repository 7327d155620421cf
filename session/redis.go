package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/healthbot/core"
)

// DefaultTTL is how long an idle session survives in Redis.
const DefaultTTL = 24 * time.Hour

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	// Prefix is prepended to every session key.
	Prefix string
	// MaxTurns is the number of newest messages kept per session.
	MaxTurns int
	// TTL is refreshed on every append. Zero disables expiry.
	TTL time.Duration
}

// RedisStore is a SessionStore backed by one Redis list per session.
type RedisStore struct {
	client redis.UniversalClient
	opts   RedisOptions
}

var _ core.SessionStore = (*RedisStore)(nil)

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, optFns ...func(o *RedisOptions)) *RedisStore {
	opts := RedisOptions{
		Prefix:   "healthbot:session:",
		MaxTurns: DefaultMaxTurns,
		TTL:      DefaultTTL,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &RedisStore{client: client, opts: opts}
}

// NewRedisStoreFromURL parses a redis:// URL and connects lazily.
func NewRedisStoreFromURL(url string, optFns ...func(o *RedisOptions)) (*RedisStore, error) {
	ro, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return NewRedisStore(redis.NewClient(ro), optFns...), nil
}

func (s *RedisStore) key(sessionID string) string { return s.opts.Prefix + sessionID }

// Turns returns the stored messages of a session, oldest first.
func (s *RedisStore) Turns(ctx context.Context, sessionID string) ([]core.Message, error) {
	raw, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	msgs := make([]core.Message, 0, len(raw))

	for _, r := range raw {
		var m core.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("decode session %s turn: %w", sessionID, err)
		}

		msgs = append(msgs, m)
	}

	return msgs, nil
}

// AppendTurns pushes messages, trims the list to MaxTurns and refreshes the
// TTL in one transaction.
func (s *RedisStore) AppendTurns(ctx context.Context, sessionID string, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))

	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode session turn: %w", err)
		}

		values = append(values, b)
	}

	key := s.key(sessionID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)

		if s.opts.MaxTurns > 0 {
			pipe.LTrim(ctx, key, int64(-s.opts.MaxTurns), -1)
		}

		if s.opts.TTL > 0 {
			pipe.Expire(ctx, key, s.opts.TTL)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("append session %s: %w", sessionID, err)
	}

	return nil
}

// Clear deletes a session.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear session %s: %w", sessionID, err)
	}

	return nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

// Close closes the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }
