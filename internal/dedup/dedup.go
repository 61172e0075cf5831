// Package dedup remembers processed webhook event ids so a redelivered
// event is handled at most once.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL covers the provider's redelivery window.
const DefaultTTL = 72 * time.Hour

type Store interface {
	// Claim records key and reports true when it was not seen before.
	Claim(ctx context.Context, key string) (bool, error)

	// Forget drops key so a failed event can be retried.
	Forget(ctx context.Context, key string) error
}

type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "webhook:seen:",
		ttl:    ttl,
	}
}

func (s *RedisStore) Claim(ctx context.Context, key string) (bool, error) {
	const op = "internal.dedup.RedisStore.Claim"

	ok, err := s.client.SetNX(ctx, s.prefix+key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

func (s *RedisStore) Forget(ctx context.Context, key string) error {
	const op = "internal.dedup.RedisStore.Forget"

	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// MemoryStore is process local. It is used when Redis is disabled.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (s *MemoryStore) Claim(_ context.Context, key string) (bool, error) {
	// Add fails when the key is already present and not expired.
	return s.cache.Add(key, struct{}{}, cache.DefaultExpiration) == nil, nil
}

func (s *MemoryStore) Forget(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
