package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrNotAcquired = errors.New("lock is held by another worker")
	ErrNotOwned    = errors.New("lock is not owned by this holder")
)

// Locker grants short-lived exclusive leases on a key
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

// Lease is a held lock
type Lease interface {
	Release(ctx context.Context) error
}

const releaseScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`

// RedisLocker implements Locker with SETNX and an owner-checked delete
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisLocker creates a new RedisLocker; leases expire after ttl if never released
func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// keyFor namespaces key under the prefix with a single separator
func (l *RedisLocker) keyFor(key string) string {
	return strings.TrimSuffix(l.prefix, ":") + ":" + key
}

// NewRedisClient parses a redis:// URL and checks the connection
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Acquire takes the lease on key or returns ErrNotAcquired
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	lockKey := l.keyFor(key)
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return &redisLease{client: l.client, key: lockKey, token: token}, nil
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
}

func (l *redisLease) Release(ctx context.Context) error {
	result, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if result == 0 {
		return ErrNotOwned
	}
	return nil
}

// NoopLocker always grants the lease. Used when Redis is not configured.
type NoopLocker struct{}

func (NoopLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	return noopLease{}, nil
}

type noopLease struct{}

func (noopLease) Release(ctx context.Context) error { return nil }
