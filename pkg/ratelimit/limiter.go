package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Info describes the state of a key after an attempt.
type Info struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter counts attempts per key inside a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Info, error)
}

// MemoryLimiter keeps fixed window counters in process memory.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count int
	reset time.Time
}

// NewMemoryLimiter builds a limiter allowing limit attempts per window.
func NewMemoryLimiter(limit int, windowSize time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  windowSize,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow implements Limiter.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.reset) {
		m.sweep(now)
		w = &window{reset: now.Add(m.window)}
		m.windows[key] = w
	}
	w.count++
	return info(m.limit, w.count, w.reset), nil
}

// sweep drops expired windows so idle keys do not accumulate.
func (m *MemoryLimiter) sweep(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.reset) {
			delete(m.windows, key)
		}
	}
}

// RedisLimiter shares counters between replicas through Redis.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisLimiter builds a Redis backed limiter. Keys are namespaced by prefix.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: prefix}
}

// Allow implements Limiter.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (Info, error) {
	redisKey := r.prefix + ":" + key

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, r.window)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Info{}, fmt.Errorf("rate limit %s: %w", redisKey, err)
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = r.window
	}
	return info(r.limit, int(incr.Val()), time.Now().Add(remaining)), nil
}

func info(limit, count int, reset time.Time) Info {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Info{Allowed: count <= limit, Limit: limit, Remaining: remaining, Reset: reset}
}
