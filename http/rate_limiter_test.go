package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, capacity int, window time.Duration) (*RateLimiter, *time.Time) {
	t.Helper()
	rl := NewRateLimiter(capacity, window)
	t.Cleanup(rl.Stop)

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_AllowsUpToCapacity(t *testing.T) {
	rl, _ := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "clients have separate buckets")
	assert.Zero(t, rl.RetryAfter("unknown"))
}

func TestRateLimiter_RefillsWithElapsedTime(t *testing.T) {
	rl, now := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		rl.Allow("a")
	}
	assert.Equal(t, 20*time.Second, rl.RetryAfter("a"), "one token every window/capacity")

	*now = now.Add(10 * time.Second)
	assert.False(t, rl.Allow("a"), "half a token is not enough")
	assert.Equal(t, 10*time.Second, rl.RetryAfter("a"))

	*now = now.Add(10 * time.Second)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	*now = now.Add(time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("a"), "request %d after a long pause", i+1)
	}
	assert.False(t, rl.Allow("a"), "refill is capped at capacity")
}

func TestRateLimiter_ZeroCapacityDeniesEverything(t *testing.T) {
	rl, _ := newTestLimiter(t, 0, time.Minute)
	assert.False(t, rl.Allow("a"))
	assert.Zero(t, rl.RetryAfter("a"))
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	rl, now := newTestLimiter(t, 1, time.Minute)

	rl.Allow("a")
	*now = now.Add(2 * time.Hour)
	rl.Allow("b")
	rl.evictIdle()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "a")
	assert.Contains(t, rl.clients, "b")
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Stop()
	rl.Stop()
}
