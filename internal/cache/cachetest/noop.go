// Package cachetest provides an in-memory cache.Cache for tests that need
// a collaborator but not real TTL or network behavior.
package cachetest

import (
	"context"
	"time"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/cache"
)

// Noop stores everything in a plain map and never expires it; good enough
// to exercise callers that read-through on miss and invalidate on write.
type Noop struct {
	values map[string][]byte
}

// New returns an empty Noop cache.
func New() *Noop {
	return &Noop{values: make(map[string][]byte)}
}

func (n *Noop) Get(ctx context.Context, key string) ([]byte, bool) {
	v, ok := n.values[key]
	return v, ok
}

func (n *Noop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	n.values[key] = value
}

func (n *Noop) Delete(ctx context.Context, key string) {
	delete(n.values, key)
}

func (n *Noop) InvalidatePattern(ctx context.Context, pattern string) {
	prefix := pattern
	for i, c := range pattern {
		if c == '*' {
			prefix = pattern[:i]
			break
		}
	}
	for k := range n.values {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(n.values, k)
		}
	}
}

var _ cache.Cache = (*Noop)(nil)
