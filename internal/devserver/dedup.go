package devserver

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type MemoryDeduper struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{keys: map[string]struct{}{}}
}

func (m *MemoryDeduper) Add(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = struct{}{}
	return true, nil
}

func (m *MemoryDeduper) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

// RedisDeduper stores processed idempotency keys in Redis so several dev servers can share them.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(k string) string { return "leadboard:idem:" + k }

func (r *RedisDeduper) Add(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(key), 1, r.ttl).Result()
}

func (r *RedisDeduper) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
