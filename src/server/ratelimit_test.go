package server

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// -----------------------------------------------------------------------------

func newTestLimiter(limit int) (*RateLimiter, *time.Time) {
	rl := NewRateLimiter(limit)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	return rl, &clock
}

// -----------------------------------------------------------------------------

func TestRateLimiter_AdmitsUpToLimit(t *testing.T) {
	rl, _ := newTestLimiter(100)

	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), "request %d should be admitted", i)
	}
	assert.False(t, rl.Allow("1.2.3.4"), "request 101 should be rejected")
}

func TestRateLimiter_IdentitiesAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(1)

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl, clock := newTestLimiter(2)

	assert.True(t, rl.Allow("ip"))

	*clock = clock.Add(30 * time.Second)
	assert.True(t, rl.Allow("ip"))
	assert.False(t, rl.Allow("ip"))

	// 61s after the first request only the second one is still in the window
	*clock = clock.Add(31 * time.Second)
	assert.True(t, rl.Allow("ip"))
	assert.False(t, rl.Allow("ip"))
}

func TestRateLimiter_RejectedRequestsNotRecorded(t *testing.T) {
	rl, clock := newTestLimiter(1)

	assert.True(t, rl.Allow("ip"))
	for i := 0; i < 50; i++ {
		assert.False(t, rl.Allow("ip"))
	}

	// Rejections above must not have extended the window
	*clock = clock.Add(61 * time.Second)
	assert.True(t, rl.Allow("ip"))
}

func TestRateLimiter_ConcurrentNeverOverAdmits(t *testing.T) {
	rl := NewRateLimiter(100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("shared") {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, admitted)
}
