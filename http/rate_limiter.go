package http

import (
	"sync"
	"time"
)

const (
	bucketCleanupThreshold = 1 * time.Hour
	cleanupInterval        = 30 * time.Minute
)

type clientBucket struct {
	tokens  float64
	updated time.Time
}

// RateLimiter is a per-client token bucket. Each bucket holds up to capacity
// tokens and regains them continuously, capacity per window, so a client
// that spends its burst gets one request back every window/capacity.
type RateLimiter struct {
	mu       sync.Mutex
	capacity float64
	window   time.Duration
	clients  map[string]*clientBucket
	now      func() time.Time

	stopOnce    sync.Once
	stopCleanup chan struct{}
	done        chan struct{}
}

func NewRateLimiter(capacity int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		capacity:    float64(capacity),
		window:      window,
		clients:     make(map[string]*clientBucket),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
		done:        make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (r *RateLimiter) cleanupLoop() {
	defer close(r.done)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.stopCleanup:
			return
		}
	}
}

// evictIdle forgets clients that have been quiet for the threshold. Their
// buckets would be full again anyway.
func (r *RateLimiter) evictIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-max(bucketCleanupThreshold, r.window))
	for client, bucket := range r.clients {
		if bucket.updated.Before(cutoff) {
			delete(r.clients, client)
		}
	}
}

// Stop ends the cleanup goroutine and waits for it. Safe to call twice.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stopCleanup) })
	<-r.done
}

// bucket returns client's bucket topped up for the time since it was last
// touched. Callers hold r.mu.
func (r *RateLimiter) bucket(client string, now time.Time) *clientBucket {
	b, ok := r.clients[client]
	if !ok {
		b = &clientBucket{tokens: r.capacity, updated: now}
		r.clients[client] = b
		return b
	}
	if elapsed := now.Sub(b.updated); elapsed > 0 && r.window > 0 {
		b.tokens = min(r.capacity, b.tokens+float64(elapsed)*r.capacity/float64(r.window))
		b.updated = now
	}
	return b
}

// Allow consumes a token for client and reports whether one was available.
func (r *RateLimiter) Allow(client string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.bucket(client, r.now())
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RetryAfter is how long client has to wait until its next token.
func (r *RateLimiter) RetryAfter(client string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[client]; !ok || r.capacity <= 0 {
		return 0
	}
	b := r.bucket(client, r.now())
	if b.tokens >= 1 {
		return 0
	}
	return time.Duration((1 - b.tokens) * float64(r.window) / r.capacity)
}
