package http

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Limiter counts hits on key within a fixed window starting at the first hit.
type Limiter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			return count, fmt.Errorf("expire %s: %w", key, err)
		}
	}

	return count, nil
}

// MemoryLimiter is the single-instance fallback when Redis is disabled.
type MemoryLimiter struct {
	counters *cache.Cache
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{counters: cache.New(time.Minute, 5*time.Minute)}
}

func (l *MemoryLimiter) Hit(_ context.Context, key string, window time.Duration) (int64, error) {
	for range 2 {
		if err := l.counters.Add(key, int64(1), window); err == nil {
			return 1, nil
		}

		// The entry can expire between Add and IncrementInt64.
		if n, err := l.counters.IncrementInt64(key, 1); err == nil {
			return n, nil
		}
	}

	return 0, fmt.Errorf("counter %s kept changing", key)
}
