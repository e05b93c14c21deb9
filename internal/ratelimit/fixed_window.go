// Package ratelimit caps how often a client may hit the model-backed
// endpoints.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

const defaultPrefix = "youtube-agent:ratelimit"

// Limiter decides whether key may proceed. retryAfter is the time left in
// the current window when it may not.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration)
}

// RedisLimiter counts requests per key in fixed windows shared across
// processes through Redis.
type RedisLimiter struct {
	limit  int
	window time.Duration
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(addr, password, prefix string, limit int, window time.Duration) (*RedisLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisLimiter{
		limit:  limit,
		window: window,
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: prefix,
		now:    time.Now,
	}, nil
}

// Allow fails closed: a Redis error denies the request.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if l == nil {
		return false, 0
	}
	slot, retry := windowSlot(l.now(), l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, normalizeKey(key), slot)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, retry
	}
	if count > int64(l.limit) {
		return false, retry
	}
	return true, 0
}

// Close releases the Redis connection pool.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// MemoryLimiter is the single-process equivalent of RedisLimiter.
type MemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	slot   int64
	counts map[string]int
	now    func() time.Time
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter(limit int, window time.Duration) (*MemoryLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	return &MemoryLimiter{limit: limit, window: window, counts: make(map[string]int), now: time.Now}, nil
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration) {
	slot, retry := windowSlot(l.now(), l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	if slot != l.slot {
		l.slot = slot
		l.counts = make(map[string]int)
	}
	key = normalizeKey(key)
	l.counts[key]++
	if l.counts[key] > l.limit {
		return false, retry
	}
	return true, 0
}

func windowSlot(now time.Time, window time.Duration) (int64, time.Duration) {
	windowMs := window.Milliseconds()
	if windowMs <= 0 {
		windowMs = 1
	}
	ms := now.UTC().UnixMilli()
	slot := ms / windowMs
	retry := time.Duration((slot+1)*windowMs-ms) * time.Millisecond
	return slot, retry
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "unknown"
	}
	return key
}
