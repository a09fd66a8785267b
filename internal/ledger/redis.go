package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the ledger in Redis so dispatch history survives
// poller restarts. Keys are pilot:ledger:<issue>, value is the triggering
// comment ID (may be empty for zero-comment dispatches).
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisStore connects to Redis at addr and verifies the connection.
func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client, ctx: ctx}, nil
}

func (s *RedisStore) key(issue int) string {
	return fmt.Sprintf("pilot:ledger:%d", issue)
}

func (s *RedisStore) Has(issue int) (bool, error) {
	n, err := s.client.Exists(s.ctx, s.key(issue)).Result()
	if err != nil {
		return false, fmt.Errorf("ledger exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Mark(issue int, lastCommentID string) error {
	if err := s.client.Set(s.ctx, s.key(issue), lastCommentID, 0).Err(); err != nil {
		return fmt.Errorf("ledger mark: %w", err)
	}
	return nil
}

func (s *RedisStore) LastCommentID(issue int) (string, error) {
	val, err := s.client.Get(s.ctx, s.key(issue)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ledger get: %w", err)
	}
	return val, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
