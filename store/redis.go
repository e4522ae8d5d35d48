package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps results as JSON values with a TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore on an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "agentfactory:result:", ttl: ttl}
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, res Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+res.TraceID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store result %s: %w", res.TraceID, err)
	}

	return nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, traceID string) (Result, error) {
	data, err := s.client.Get(ctx, s.prefix+traceID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Result{}, ErrNotFound
		}
		return Result{}, fmt.Errorf("load result %s: %w", traceID, err)
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("decode result %s: %w", traceID, err)
	}

	return res, nil
}
