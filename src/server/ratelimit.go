package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Sliding-window rate limiter
// -----------------------------------------------------------------------------

// RateLimiter admits at most limit requests per identity within any trailing
// window (strict sliding window, not a periodically-reset bucket). Windows
// are created on first request and kept for the process lifetime.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

// -----------------------------------------------------------------------------

// NewRateLimiter creates a limiter allowing perMinute requests per identity
// within any trailing 60 seconds.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		limit:  perMinute,
		window: time.Minute,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// -----------------------------------------------------------------------------

// Allow reports whether a request for identity is admitted. Rejected
// requests are not recorded. The check-and-append runs under the lock so
// concurrent calls for the same identity can never over-admit.
func (rl *RateLimiter) Allow(identity string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	window := rl.hits[identity]

	// Evict entries older than the trailing window
	kept := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rl.limit {
		rl.hits[identity] = kept
		return false
	}

	rl.hits[identity] = append(kept, now)
	return true
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

// RateLimitMiddleware rejects over-limit clients with 429, keyed by client IP.
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
