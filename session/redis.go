package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage persists the session record under a namespaced Redis key, for
// deployments where several trusted processes share one staff session.
type RedisStorage struct {
	redis redis.UniversalClient
	key   string
	ttl   time.Duration
}

// NewRedisStorage creates a Redis-backed storage. An empty prefix defaults to
// "gs"; a zero ttl stores the record without expiry.
func NewRedisStorage(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStorage {
	if prefix == "" {
		prefix = "gs"
	}
	return &RedisStorage{
		redis: client,
		key:   prefix + ":session",
		ttl:   ttl,
	}
}

// Save writes the record as JSON under the session key.
func (s *RedisStorage) Save(ctx context.Context, rec *Record) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := s.redis.Set(ctx, s.key, encoded, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Load reads the record. A missing key is an absent record; a corrupt blob is
// treated as absent, matching the file backend.
func (s *RedisStorage) Load(ctx context.Context) (*Record, error) {
	raw, err := s.redis.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	rec := &Record{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, nil
	}
	return rec, nil
}

// Clear deletes the session key. Idempotent.
func (s *RedisStorage) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
