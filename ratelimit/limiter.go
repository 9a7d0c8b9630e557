// Package ratelimit implements per-caller token bucket rate limiting on
// golang.org/x/time/rate.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxIdleBuckets is the bucket count above which idle callers are evicted.
const maxIdleBuckets = 1024

// idleAfter is how long a bucket must go unused before eviction.
const idleAfter = time.Minute

// Limiter keeps one rate.Limiter per caller.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// New creates a new rate limiter.
func New() *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow checks whether key may proceed. A rateLimit of 0 means unlimited.
// Each caller refills at rateLimit per second and bursts up to rateLimit.
func (l *Limiter) Allow(key string, rateLimit int) bool {
	if rateLimit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.buckets) > maxIdleBuckets {
		l.evictIdle(now)
	}

	b := l.bucketFor(key, rateLimit, now)
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

// Len reports how many callers are being tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) bucketFor(key string, rateLimit int, now time.Time) *bucket {
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(rateLimit), rateLimit)}
		l.buckets[key] = b
		return b
	}
	if b.lim.Burst() != rateLimit {
		b.lim.SetLimitAt(now, rate.Limit(rateLimit))
		b.lim.SetBurstAt(now, rateLimit)
	}
	return b
}

func (l *Limiter) evictIdle(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleAfter {
			delete(l.buckets, k)
		}
	}
}
