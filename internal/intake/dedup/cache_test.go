// internal/intake/dedup/cache_test.go
package dedup

import (
	"context"
	"testing"
	"time"

	"application-intake/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func setupRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

// ==========================
// RedisCache Tests
// ==========================

func TestRedisCache_SeenAfterMark(t *testing.T) {
	client := setupRedis(t)
	cache := NewRedisCache(client, time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	assert.False(t, cache.Seen(ctx, "abc123"))

	cache.Mark(ctx, "abc123")
	assert.True(t, cache.Seen(ctx, "abc123"))
	assert.False(t, cache.Seen(ctx, "other"))
}

func TestRedisCache_ErrorTreatedAsMiss(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client, time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	cache.Mark(ctx, "abc123")
	mr.Close()

	// A degraded redis must never block intake
	assert.False(t, cache.Seen(ctx, "abc123"))
}

func TestRedisCache_EntriesExpire(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	cache.Mark(ctx, "abc123")
	require.True(t, cache.Seen(ctx, "abc123"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, cache.Seen(ctx, "abc123"))
}

func TestRedisCache_MarkSetsTTL(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, 24*time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	mock.ExpectSet("processed:abc123", "1", 24*time.Hour).SetVal("OK")
	cache.Mark(ctx, "abc123")

	mock.ExpectExists("processed:abc123").SetVal(1)
	assert.True(t, cache.Seen(ctx, "abc123"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// MemoryCache Tests
// ==========================

func TestMemoryCache_SeenAfterMark(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	assert.False(t, cache.Seen(ctx, "abc123"))
	cache.Mark(ctx, "abc123")
	assert.True(t, cache.Seen(ctx, "abc123"))
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			cache.Mark(ctx, "shared")
			cache.Seen(ctx, "shared")
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	assert.True(t, cache.Seen(ctx, "shared"))
}
