package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers keys for a while. FirstSeen returns true only the first
// time a key is offered within the TTL.
type Deduper interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type RedisDeduper struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisDeduper(rdb *redis.Client, prefix string, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, key string) (bool, error) {
	return d.rdb.SetNX(ctx, d.prefix+key, 1, d.ttl).Result()
}

func (d *RedisDeduper) Forget(ctx context.Context, key string) error {
	return d.rdb.Del(ctx, d.prefix+key).Err()
}

type MemoryDeduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

func (d *MemoryDeduper) FirstSeen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, exp := range d.seen {
		if now.After(exp) {
			delete(d.seen, k)
		}
	}
	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = now.Add(d.ttl)
	return true, nil
}

func (d *MemoryDeduper) Forget(_ context.Context, key string) error {
	d.mu.Lock()
	delete(d.seen, key)
	d.mu.Unlock()
	return nil
}

// NewDeduper prefers Redis and falls back to process memory.
func NewDeduper(rdb *redis.Client, prefix string, ttl time.Duration) Deduper {
	if rdb == nil {
		return NewMemoryDeduper(ttl)
	}
	return NewRedisDeduper(rdb, prefix, ttl)
}
