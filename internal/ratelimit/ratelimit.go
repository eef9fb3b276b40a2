// Package ratelimit implements a per-client token-bucket limiter for the
// HTTP surface, grounded on original_source's flask_limiter usage (a
// remote-address-keyed limiter wrapping every route) and expressed with
// golang.org/x/time/rate, the stdlib-adjacent limiter the rest of the
// Go ecosystem reaches for in place of a bespoke bucket implementation.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter tracks one token bucket per client key (typically remote
// address), evicting idle entries lazily on access.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New builds a Limiter allowing perHour requests per hour per client, with
// a burst equal to the hourly rate (matching flask-limiter's fixed-window
// semantics closely enough for a token-bucket approximation).
func New(perHour int) *Limiter {
	if perHour <= 0 {
		perHour = 1000
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		rps:     rate.Limit(float64(perHour) / 3600.0),
		burst:   perHour,
		idleTTL: time.Hour,
	}
}

// Allow reports whether a request from key may proceed, consuming a token
// if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	l.evictLocked()
	return b.limiter.Allow()
}

// evictLocked drops buckets idle longer than idleTTL. Must be called with
// l.mu held.
func (l *Limiter) evictLocked() {
	cutoff := time.Now().Add(-l.idleTTL)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}
