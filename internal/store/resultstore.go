package store

import (
	"time"

	"context"

	"github.com/redis/go-redis/v9"
)

// ResultStore is a thin TTL-bounded key/value wrapper used to retain
// task results for at most keep_result seconds, per spec.md §4.3.
type ResultStore struct {
	rdb *redis.Client
}

// NewResultStore wraps an existing go-redis client.
func NewResultStore(rdb *redis.Client) *ResultStore {
	return &ResultStore{rdb: rdb}
}

// Set stores an already-encoded result record under the task id, with
// an expiry of ttl seconds.
func (s *ResultStore) Set(ctx context.Context, id string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, id, value, ttl).Err()
}

// Get fetches a result record. Returns (nil, nil) if no record exists
// (expired or never set).
func (s *ResultStore) Get(ctx context.Context, id string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
