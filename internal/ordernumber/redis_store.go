package ordernumber

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ordernumber:counter:"

// RedisStore keeps counters in Redis so several processes share one sequence
// per key. INCR is atomic on the server.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps a redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: redisKeyPrefix}
}

// Incr implements CounterStore.
func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	if s == nil || s.client == nil {
		return 0, errors.New("ordernumber: redis store not initialised")
	}
	val, err := s.client.Incr(ctx, s.prefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("ordernumber: redis incr: %w", err)
	}
	return val, nil
}

// Get implements CounterStore.
func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	if s == nil || s.client == nil {
		return 0, errors.New("ordernumber: redis store not initialised")
	}
	val, err := s.client.Get(ctx, s.prefix+key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ordernumber: redis get: %w", err)
	}
	return val, nil
}

// Reset implements CounterStore by deleting every counter key.
func (s *RedisStore) Reset(ctx context.Context) error {
	if s == nil || s.client == nil {
		return errors.New("ordernumber: redis store not initialised")
	}
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("ordernumber: redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("ordernumber: redis del: %w", err)
	}
	return nil
}
