package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mhkarimi/portfolio-backend/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_AllowsUpToLimit(t *testing.T) {
	l := NewMemoryLimiter()
	p := Policy{Name: "contact", Limit: 5, Window: time.Hour}

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("203.0.113.7", p), "request %d should pass", i+1)
	}
	assert.False(t, l.Allow("203.0.113.7", p), "sixth request should be refused")
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter()
	p := Policy{Name: "contact", Limit: 1, Window: time.Hour}

	assert.True(t, l.Allow("10.0.0.1", p))
	assert.False(t, l.Allow("10.0.0.1", p))
	assert.True(t, l.Allow("10.0.0.2", p))
}

func TestMemoryLimiter_PoliciesAreIndependent(t *testing.T) {
	l := NewMemoryLimiter()
	contact := Policy{Name: "contact", Limit: 1, Window: time.Hour}
	global := Policy{Name: "global", Limit: 100, Window: 15 * time.Minute}

	assert.True(t, l.Allow("10.0.0.1", contact))
	assert.False(t, l.Allow("10.0.0.1", contact))
	assert.True(t, l.Allow("10.0.0.1", global))
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }
	p := Policy{Name: "contact", Limit: 1, Window: time.Minute}

	assert.True(t, l.Allow("10.0.0.1", p))
	assert.False(t, l.Allow("10.0.0.1", p))

	now = now.Add(2 * time.Minute)
	assert.True(t, l.Allow("10.0.0.1", p), "counter should reset in a new window")
}

func TestMemoryLimiter_SweepDropsStaleBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }
	p := Policy{Name: "global", Limit: 100, Window: time.Minute}

	for i := 0; i < 10_000; i++ {
		l.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256), p)
	}
	require.GreaterOrEqual(t, len(l.buckets), 10_000)

	now = now.Add(2 * time.Minute)
	l.Allow("10.99.99.99", p)
	assert.Less(t, len(l.buckets), 10)
}

func TestRedisLimiter_AllowsUpToLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	adapter, err := redis.NewAdapter("ratelimit-test", "test", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	l := NewRedisLimiter(adapter)
	p := Policy{Name: "contact", Limit: 3, Window: time.Hour}

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("203.0.113.7", p))
	}
	assert.False(t, l.Allow("203.0.113.7", p))
	assert.True(t, l.Allow("203.0.113.8", p), "other clients are unaffected")
}

func TestRedisLimiter_WindowKeyExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	adapter, err := redis.NewAdapter("ratelimit-expiry-test", "test", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	l := NewRedisLimiter(adapter)
	p := Policy{Name: "contact", Limit: 1, Window: time.Minute}

	assert.True(t, l.Allow("10.0.0.1", p))
	assert.False(t, l.Allow("10.0.0.1", p))

	// the counter key carries a ttl so abandoned windows clean themselves up
	mr.FastForward(2 * time.Minute)
	keys := mr.Keys()
	assert.Empty(t, keys)
}

func TestRedisLimiter_FailsOpenOnRedisError(t *testing.T) {
	mr := miniredis.RunT(t)
	adapter, err := redis.NewAdapter("ratelimit-failopen-test", "test", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	mr.Close()

	l := NewRedisLimiter(adapter)
	p := Policy{Name: "contact", Limit: 1, Window: time.Hour}

	assert.True(t, l.Allow("10.0.0.1", p))
	assert.True(t, l.Allow("10.0.0.1", p))
}
