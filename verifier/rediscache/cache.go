// Package rediscache provides a Redis-backed signing key cache so that
// several API instances can share fetched keys.
package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/upb/todo-app/verifier"
)

// DefaultKeyPrefix namespaces cached signing keys
const DefaultKeyPrefix = "todo-api:signing-key:"

var _ verifier.KeyCache = (*Cache)(nil)

// Cache stores PEM-encoded signing keys in Redis using SET EX / GET
type Cache struct {
	pool   *redis.Pool
	prefix string
}

// New returns a Cache using pool. An empty prefix selects DefaultKeyPrefix.
func New(pool *redis.Pool, prefix string) *Cache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Cache{pool: pool, prefix: prefix}
}

// NewPool returns a connection pool for addr
func NewPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr)
		},
	}
}

// Get returns the cached PEM for kid. A missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, kid string) (string, bool, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return "", false, fmt.Errorf("redis connection: %w", err)
	}
	defer conn.Close()

	pem, err := redis.String(redis.DoContext(conn, ctx, "GET", c.key(kid)))
	if err == redis.ErrNil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis GET: %w", err)
	}
	return pem, true, nil
}

// Set stores pem for kid with the given ttl, rounded up to whole seconds.
// A non-positive ttl is a no-op.
func (c *Cache) Set(ctx context.Context, kid, pem string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	secs := int64((ttl + time.Second - 1) / time.Second)

	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connection: %w", err)
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "SET", c.key(kid), pem, "EX", secs); err != nil {
		return fmt.Errorf("redis SET: %w", err)
	}
	return nil
}

func (c *Cache) key(kid string) string {
	return c.prefix + kid
}
