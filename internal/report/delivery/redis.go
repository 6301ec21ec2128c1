package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"report-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "report:delivery:"

// RedisIdempotencyStore shares suppression state between worker processes.
type RedisIdempotencyStore struct {
	client redis.Cmdable
}

func NewRedisIdempotencyStore(client redis.Cmdable) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Open(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis idempotency store: %w", err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (s *RedisIdempotencyStore) Close() error { return nil }

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*models.DeliveryOutcome, bool, error) {
	raw, err := s.client.Get(ctx, idempotencyKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get idempotency key: %w", err)
	}
	var out models.DeliveryOutcome
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, fmt.Errorf("decode idempotency entry: %w", err)
	}
	return &out, true, nil
}

func (s *RedisIdempotencyStore) Put(ctx context.Context, key string, outcome *models.DeliveryOutcome, ttl time.Duration) error {
	raw, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode idempotency entry: %w", err)
	}
	if err := s.client.Set(ctx, idempotencyKeyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}
	return nil
}
