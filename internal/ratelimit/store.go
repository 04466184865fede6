package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/cache"
)

// Store is a fixed-window counter shared by all instances (Redis) or local
// to one process (memory, for single-instance deployments and tests).
type Store interface {
	// Incr bumps the counter for key, starting a new window of the given
	// length on first hit. It returns the count inside the current window
	// and how long until the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisStore keeps counters in Redis so limits hold across instances.
type RedisStore struct {
	redis *cache.RedisCache
}

func NewRedisStore(redis *cache.RedisCache) *RedisStore {
	return &RedisStore{redis: redis}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return s.redis.IncrWindow(ctx, "ratelimit:"+key, window)
}

type bucket struct {
	windowStart time.Time
	count       int64
}

// MemoryStore is the in-process fallback used when Redis is absent.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time // injectable clock for tests
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok || now.Sub(b.windowStart) >= window {
		b = &bucket{windowStart: now}
		s.buckets[key] = b
	}
	b.count++
	remaining := window - now.Sub(b.windowStart)
	return b.count, remaining, nil
}

// Sweep drops buckets whose window elapsed; call it periodically from a
// long-lived process to bound memory.
func (s *MemoryStore) Sweep(window time.Duration) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, b := range s.buckets {
		if now.Sub(b.windowStart) >= window {
			delete(s.buckets, key)
		}
	}
}
