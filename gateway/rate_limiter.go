package gateway

import (
	"context"
	"sync"
	"time"
)

// RateLimiter gates outbound upstream requests. Keys partition the budget,
// one bucket per credential partition, so a single busy character cannot
// starve the rest.
type RateLimiter interface {
	// Allow checks if a request should be allowed
	Allow(ctx context.Context, key string) (bool, error)
	// Status returns the current rate limit state for a key
	Status(ctx context.Context, key string) (*RateLimitStatus, error)
}

// RateLimitStatus provides information about current rate limit state
type RateLimitStatus struct {
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// TokenBucketLimiter implements the token bucket algorithm
type TokenBucketLimiter struct {
	buckets  map[string]*bucket
	mu       sync.Mutex
	rate     int
	interval time.Duration
	burst    int
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewTokenBucketLimiter creates a limiter allowing rate requests per
// interval with the given burst capacity.
func NewTokenBucketLimiter(rate int, interval time.Duration, burst int) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 100
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if burst <= 0 {
		burst = rate * 2
	}
	return &TokenBucketLimiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		interval: interval,
		burst:    burst,
	}
}

// Allow consumes one token from the key's bucket when available.
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key, time.Now())
	if b.tokens >= 1 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

// Status returns the current rate limit state for a key.
func (l *TokenBucketLimiter) Status(ctx context.Context, key string) (*RateLimitStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key, time.Now())

	var retryAfter time.Duration
	if b.tokens < 1 {
		secondsPerToken := l.interval.Seconds() / float64(l.rate)
		retryAfter = time.Duration((1 - b.tokens) * secondsPerToken * float64(time.Second))
	}

	return &RateLimitStatus{
		Limit:      l.rate,
		Remaining:  int(b.tokens),
		RetryAfter: retryAfter,
	}, nil
}

// refill tops up the key's bucket for the time elapsed since its last
// refill. Callers hold l.mu.
func (l *TokenBucketLimiter) refill(key string, now time.Time) *bucket {
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastRefill: now}
		l.buckets[key] = b
		return b
	}

	elapsed := now.Sub(b.lastRefill)
	added := elapsed.Seconds() * (float64(l.rate) / l.interval.Seconds())
	b.tokens = min(b.tokens+added, float64(l.burst))
	b.lastRefill = now
	return b
}
