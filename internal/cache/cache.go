// Package cache defines the hot-cache contract (spec.md §6, §4.9): a
// best-effort, TTL'd read-through layer in front of the durable store.
// Misses and errors from the cache must never surface as API failures —
// every caller falls back to the store on a cache error.
package cache

import (
	"context"
	"time"
)

// Cache is the hot-cache seam. internal/cache/rediscache provides the
// concrete Redis-backed implementation.
type Cache interface {
	// Get returns the raw bytes stored at key and true, or nil and false on
	// a miss or error.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value at key with the given TTL. Errors are logged by the
	// implementation and never returned — callers treat Set as fire-and-forget.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Delete removes a single key.
	Delete(ctx context.Context, key string)

	// InvalidatePattern deletes every key matching a glob pattern (e.g.
	// "balance_alice*"), used after a block commit to evict the query
	// surfaces spec.md §4.9 lists as cache-invalidated: latest_block*,
	// chain_info*, balance_<miner>*.
	InvalidatePattern(ctx context.Context, pattern string)
}
