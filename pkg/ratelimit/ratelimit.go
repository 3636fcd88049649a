package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/mhkarimi/portfolio-backend/pkg/logger"
	"github.com/mhkarimi/portfolio-backend/pkg/redis"
)

// Policy is a fixed-window counting policy. Requests beyond Limit within
// a window are refused; there is no queueing.
type Policy struct {
	Name   string
	Limit  int64
	Window time.Duration
}

type Limiter interface {
	// Allow reports whether the caller identified by key may proceed
	// under the given policy.
	Allow(key string, p Policy) bool
}

/* ------------------------------- in-memory -------------------------------- */

type bucket struct {
	windowStart int64
	count       int64
}

// MemoryLimiter is the default single-process limiter.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(key string, p Policy) bool {
	window := l.now().Unix() / int64(p.Window.Seconds())
	k := p.Name + ":" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[k]
	if !ok || b.windowStart != window {
		l.buckets[k] = &bucket{windowStart: window, count: 1}
		l.sweep(window)
		return p.Limit >= 1
	}
	b.count++
	return b.count <= p.Limit
}

// sweep drops buckets from earlier windows; called under the lock.
func (l *MemoryLimiter) sweep(current int64) {
	if len(l.buckets) < 10_000 {
		return
	}
	for k, b := range l.buckets {
		if b.windowStart < current {
			delete(l.buckets, k)
		}
	}
}

/* ------------------------------ redis-backed ------------------------------ */

// RedisLimiter counts in redis so limits survive restarts. On redis
// failure it fails open: refusing legitimate visitors is worse than
// letting a burst through.
type RedisLimiter struct {
	adapter redis.Adapter
}

func NewRedisLimiter(adapter redis.Adapter) *RedisLimiter {
	return &RedisLimiter{adapter: adapter}
}

func (l *RedisLimiter) Allow(key string, p Policy) bool {
	window := time.Now().Unix() / int64(p.Window.Seconds())
	k := fmt.Sprintf("ratelimit:%s:%s:%d", p.Name, key, window)

	count, err := l.adapter.IncrWindow(k, p.Window)
	if err != nil {
		logger.Warn("rate limiter redis error, failing open", "policy", p.Name, "error", err)
		return true
	}
	return count <= p.Limit
}
