// Package ratelimit limits request rates per client using token buckets.
package ratelimit

import (
	"sync"
	"time"
)

// bucket is a token bucket: up to capacity tokens, refilled at refillRate per second
type bucket struct {
	capacity   int
	refillRate float64
	tokens     float64
	lastRefill time.Time
	lastAccess time.Time
}

func newBucket(capacity int, refillRate float64, now time.Time) *bucket {
	return &bucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: now,
		lastAccess: now,
	}
}

// take refills the bucket, consumes a token when one is available and reports the resulting state.
// retryAfter is the wait until the next token when the request was refused.
func (b *bucket) take(now time.Time) (allowed bool, remaining int, resetAt time.Time, retryAfter time.Duration) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(float64(b.capacity), b.tokens+elapsed*b.refillRate)
	b.lastRefill = now
	b.lastAccess = now

	if b.tokens >= 1 {
		b.tokens--
		allowed = true
	} else {
		retryAfter = time.Duration((1 - b.tokens) / b.refillRate * float64(time.Second))
	}

	resetAt = now
	if missing := float64(b.capacity) - b.tokens; missing > 0 {
		resetAt = now.Add(time.Duration(missing / b.refillRate * float64(time.Second)))
	}
	return allowed, int(b.tokens), resetAt, retryAfter
}

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter manages one token bucket per client and rule.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  Config
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter creates a limiter. When enabled with a cleanup interval, idle buckets are
// swept in the background until Stop is called.
func NewLimiter(config Config) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		config:  config,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		go l.sweepLoop(config.CleanupInterval)
	}
	return l
}

// Allow consumes one request for clientID against the rule matching path and method
func (l *Limiter) Allow(clientID, path, method string) Info {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return Info{Allowed: false}
	}

	rule := l.config.match(path, method)
	if rule.Limit <= 0 || rule.Window <= 0 {
		return Info{Allowed: true}
	}

	now := l.now()
	key := clientID + "|" + rule.Method + "|" + rule.Prefix

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		capacity := rule.Burst
		if capacity <= 0 {
			capacity = rule.Limit
		}
		b = newBucket(capacity, float64(rule.Limit)/rule.Window.Seconds(), now)
		l.buckets[key] = b
	}
	allowed, remaining, resetAt, retryAfter := b.take(now)
	l.mu.Unlock()

	return Info{
		Allowed:    allowed,
		Limit:      rule.Limit,
		Remaining:  remaining,
		ResetTime:  resetAt,
		RetryAfter: retryAfter,
	}
}

// Sweep removes buckets idle for longer than the configured idle timeout and returns how many were removed
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-l.config.IdleTimeout)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-l.stop:
			return
		}
	}
}

// Stop ends background cleanup. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
