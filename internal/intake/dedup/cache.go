// internal/intake/dedup/cache.go
package dedup

import (
	"context"
	"sync"
	"time"

	"application-intake/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// Cache remembers content hashes of already-processed events so a duplicate
// delivery short-circuits to the stored record instead of re-entering the
// pipeline. Distinct from identity-based resume: the cache keys on event
// content, not on application_id.
type Cache interface {
	Seen(ctx context.Context, hash string) bool
	Mark(ctx context.Context, hash string)
}

const keyPrefix = "processed:"

// RedisCache is the durable implementation.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "dedup"}),
	}
}

// Seen treats a cache error as a miss so a degraded redis never blocks intake.
func (c *RedisCache) Seen(ctx context.Context, hash string) bool {
	val, err := c.client.Exists(ctx, keyPrefix+hash).Result()
	if err != nil {
		c.logger.Warn("dedup lookup failed, treating as unseen", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	return val > 0
}

func (c *RedisCache) Mark(ctx context.Context, hash string) {
	if err := c.client.Set(ctx, keyPrefix+hash, "1", c.ttl).Err(); err != nil {
		c.logger.Warn("dedup mark failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// MemoryCache is the in-process fallback used when redis is unavailable and
// in tests. Entries never expire; the process lifetime bounds growth.
type MemoryCache struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{seen: make(map[string]struct{})}
}

func (c *MemoryCache) Seen(_ context.Context, hash string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.seen[hash]
	return ok
}

func (c *MemoryCache) Mark(_ context.Context, hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[hash] = struct{}{}
}
