package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// InMemoryRateLimiter is a sliding-window limiter keyed by client IP.
type InMemoryRateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewInMemoryRateLimiter starts a background sweeper that stops when ctx is done.
func NewInMemoryRateLimiter(ctx context.Context, limit int, window time.Duration) *InMemoryRateLimiter {
	r := &InMemoryRateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
	go r.cleanup(ctx)
	return r
}

func (r *InMemoryRateLimiter) Allow(key string) bool {
	if r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	valid := r.prune(r.requests[key], now.Add(-r.window))
	if len(valid) >= r.limit {
		r.requests[key] = valid
		return false
	}
	r.requests[key] = append(valid, now)
	return true
}

func (r *InMemoryRateLimiter) prune(times []time.Time, cutoff time.Time) []time.Time {
	valid := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}

func (r *InMemoryRateLimiter) cleanup(ctx context.Context) {
	tick := time.NewTicker(time.Minute)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		r.mu.Lock()
		cutoff := r.now().Add(-r.window)
		for k, times := range r.requests {
			if valid := r.prune(times, cutoff); len(valid) == 0 {
				delete(r.requests, k)
			} else {
				r.requests[k] = valid
			}
		}
		r.mu.Unlock()
	}
}

// RateLimit rejects clients that exceed the limiter with 429.
func RateLimit(limiter *InMemoryRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
