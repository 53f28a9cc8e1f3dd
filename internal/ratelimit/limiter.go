// Package ratelimit throttles callers with one token bucket per key
// (user id or peer address).
package ratelimit

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const sweepEvery = 512

// Limiter allows at most maxRequests per window for every key, refilling
// continuously. Idle keys are evicted lazily.
type Limiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu    sync.Mutex
	byKey map[string]*bucket
	hits  uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New returns nil (which allows everything) when window or maxRequests is
// not positive.
func New(window time.Duration, maxRequests int) *Limiter {
	if window <= 0 || maxRequests <= 0 {
		return nil
	}
	idle := 2 * window
	if idle < time.Minute {
		idle = time.Minute
	}
	return &Limiter{
		limit:   rate.Every(window / time.Duration(maxRequests)),
		burst:   maxRequests,
		idleTTL: idle,
		byKey:   make(map[string]*bucket),
	}
}

// Allow reports whether one more request for key is permitted at now.
// A nil Limiter and an empty key are never throttled.
func (l *Limiter) Allow(key string, now time.Time) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byKey[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%sweepEvery == 0 {
		l.evictIdle(now)
	}
	return allowed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byKey)
}

func (l *Limiter) evictIdle(now time.Time) {
	cutoff := now.Add(-l.idleTTL)
	for k, b := range l.byKey {
		if b.lastSeen.Before(cutoff) {
			delete(l.byKey, k)
		}
	}
}
