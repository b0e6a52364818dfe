package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setUpTest(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	pool := &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", s.Addr())
		},
	}
	t.Cleanup(func() { pool.Close() })

	return s, New(pool, "")
}

func TestCache_GetMiss(t *testing.T) {
	_, cache := setUpTest(t)

	pem, ok, err := cache.Get(context.Background(), "K1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, pem)
}

func TestCache_SetGet(t *testing.T) {
	s, cache := setUpTest(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "K1", "-----BEGIN CERTIFICATE-----", time.Hour))

	pem, ok, err := cache.Get(ctx, "K1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "-----BEGIN CERTIFICATE-----", pem)

	stored, err := s.Get(DefaultKeyPrefix + "K1")
	require.NoError(t, err)
	assert.Equal(t, "-----BEGIN CERTIFICATE-----", stored)
	assert.Equal(t, time.Hour, s.TTL(DefaultKeyPrefix+"K1"))
}

func TestCache_TTLRoundsUp(t *testing.T) {
	s, cache := setUpTest(t)

	require.NoError(t, cache.Set(context.Background(), "K1", "pem", 1500*time.Millisecond))
	assert.Equal(t, 2*time.Second, s.TTL(DefaultKeyPrefix+"K1"))
}

func TestCache_NonPositiveTTL(t *testing.T) {
	s, cache := setUpTest(t)

	require.NoError(t, cache.Set(context.Background(), "K1", "pem", 0))
	assert.False(t, s.Exists(DefaultKeyPrefix+"K1"))
}

func TestCache_CustomPrefix(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	pool := &redis.Pool{
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", s.Addr())
		},
	}
	cache := New(pool, "tenant-a:")

	require.NoError(t, cache.Set(context.Background(), "K1", "pem", time.Minute))
	assert.True(t, s.Exists("tenant-a:K1"))
}

func TestCache_ConnectionError(t *testing.T) {
	s, cache := setUpTest(t)
	s.Close()

	_, ok, err := cache.Get(context.Background(), "K1")
	assert.Error(t, err)
	assert.False(t, ok)

	err = cache.Set(context.Background(), "K1", "pem", time.Minute)
	assert.Error(t, err)
}
