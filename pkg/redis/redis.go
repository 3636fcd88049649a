package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var NilError = goredis.Nil

type Options = goredis.UniversalOptions

// Adapter is the thin surface the application needs from redis: windowed
// counters for rate limiting plus basic key/value access.
type Adapter interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
	Del(key string) error
	// IncrWindow increments a counter key and, on first increment, arms its
	// expiry so the whole window disappears on its own.
	IncrWindow(key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
	Client() goredis.UniversalClient
}

type redisAdapter struct {
	prefix   string
	conn     goredis.UniversalClient
	connName string
}

var redisLock = &sync.RWMutex{}
var redisInstance map[string]Adapter

func NewAdapter(connName string, keysPrefix string, opts *goredis.UniversalOptions) (Adapter, error) {
	redisLock.RLock()
	if redisInstance != nil {
		if adapter, ok := redisInstance[connName]; ok {
			redisLock.RUnlock()
			return adapter, nil
		}
	}
	redisLock.RUnlock()

	redisLock.Lock()
	defer redisLock.Unlock()

	if redisInstance == nil {
		redisInstance = make(map[string]Adapter)
	}
	if adapter, ok := redisInstance[connName]; ok {
		return adapter, nil
	}

	conn := goredis.NewUniversalClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	adapter := &redisAdapter{
		prefix:   keysPrefix,
		conn:     conn,
		connName: connName,
	}
	redisInstance[connName] = adapter
	return adapter, nil
}

func (r *redisAdapter) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *redisAdapter) Get(key string) ([]byte, error) {
	return r.conn.Get(context.Background(), r.key(key)).Bytes()
}

func (r *redisAdapter) Set(key string, value []byte, ttl time.Duration) error {
	return r.conn.Set(context.Background(), r.key(key), value, ttl).Err()
}

func (r *redisAdapter) Del(key string) error {
	return r.conn.Del(context.Background(), r.key(key)).Err()
}

func (r *redisAdapter) IncrWindow(key string, ttl time.Duration) (int64, error) {
	ctx := context.Background()
	k := r.key(key)

	pipe := r.conn.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (r *redisAdapter) Ping(ctx context.Context) error {
	return r.conn.Ping(ctx).Err()
}

func (r *redisAdapter) Client() goredis.UniversalClient {
	return r.conn
}
