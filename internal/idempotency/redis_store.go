package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
)

type redisStore struct {
	log *logger.Logger
	rdb goredis.UniversalClient
	now func() time.Time
}

func NewRedisStore(log *logger.Logger, rdb goredis.UniversalClient) Store {
	return &redisStore{
		log: log.With("service", "RedisIdempotencyStore"),
		rdb: rdb,
		now: time.Now,
	}
}

func (s *redisStore) Get(ctx context.Context, key string) (*Entry, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		s.log.Warn("bad idempotency entry, ignoring", "key", key, "error", err)
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *redisStore) Reserve(ctx context.Context, key, bodyHash string, ttl time.Duration) (bool, error) {
	now := s.now().UTC()
	raw, err := json.Marshal(Entry{
		State:           StateProcessing,
		RequestBodyHash: bodyHash,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return false, err
	}
	ok, err := s.rdb.SetNX(ctx, key, raw, ttlOrDefault(ttl)).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (s *redisStore) Put(ctx context.Context, key string, entry Entry, ttl time.Duration) error {
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = s.now().UTC()
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key, raw, ttlOrDefault(ttl)).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *redisStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Close is a no-op; the client is shared with the event bus and closed by the app.
func (s *redisStore) Close() error { return nil }

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
