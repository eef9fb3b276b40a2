// Package rediscache implements cache.Cache against Redis using
// github.com/redis/go-redis/v9. Grounded on
// ethereum-go-ethereum/ethdb/redisdb (its simpleClient seam and SCAN-based
// key enumeration), adapted here for best-effort value caching rather than
// a KV-store backend: every operation swallows its own error after logging
// it, since a cache miss must never become an API failure.
package rediscache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/cache"
)

// Cache wraps a *redis.Client.
type Cache struct {
	client *redis.Client
	log    *slog.Logger
}

// Connect parses redisURL and returns a ready Cache. Connection is
// lazy — go-redis dials on first command — so a Redis outage at startup
// does not prevent the process from serving traffic in a degraded mode.
func Connect(redisURL string, log *slog.Logger) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Cache{client: redis.NewClient(opt), log: log}, nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return val, true
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.log.Warn("cache set failed", "key", key, "error", err)
	}
}

func (c *Cache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warn("cache delete failed", "key", key, "error", err)
	}
}

// InvalidatePattern uses SCAN rather than KEYS: KEYS blocks the Redis
// event loop for the duration of a full keyspace walk, which is
// unacceptable against a cache shared with live traffic.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) {
	var cursor uint64
	var toDelete []string
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.log.Warn("cache scan failed", "pattern", pattern, "error", err)
			return
		}
		toDelete = append(toDelete, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(toDelete) == 0 {
		return
	}
	if err := c.client.Del(ctx, toDelete...).Err(); err != nil {
		c.log.Warn("cache invalidate failed", "pattern", pattern, "error", err)
	}
}

func (c *Cache) Close() error {
	return c.client.Close()
}

var _ cache.Cache = (*Cache)(nil)
