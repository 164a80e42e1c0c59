package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket allows burst traffic while maintaining an average rate.
// Refill is lazy: computed from elapsed wall time at each access, never
// via a background timer.
type TokenBucket struct {
	mu       sync.Mutex
	rate     float64 // tokens per second
	capacity float64
	tokens   float64
	last     time.Time
}

// NewTokenBucket creates a full bucket with the given refill rate
// (tokens/second) and capacity.
func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	return &TokenBucket{
		rate:     rate,
		capacity: float64(capacity),
		tokens:   float64(capacity),
		last:     time.Now(),
	}
}

// Acquire takes n tokens from the bucket and returns the wait the caller
// must honor before proceeding. A zero wait means the tokens were
// available immediately. When the bucket is short, the deficit is
// committed (the balance goes negative, a reservation honored as time
// passes) and the computed wait is returned.
func (b *TokenBucket) Acquire(n int) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()

	need := float64(n)
	if b.tokens >= need {
		b.tokens -= need
		return 0
	}

	deficit := need - b.tokens
	wait := time.Duration(deficit / b.rate * float64(time.Second))
	b.tokens -= need
	return wait
}

// TryAcquire takes n tokens only if they are already available. It never
// commits a deficit.
func (b *TokenBucket) TryAcquire(n int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()

	need := float64(n)
	if b.tokens >= need {
		b.tokens -= need
		return true
	}
	return false
}

// Tokens returns the current balance (may be negative while reservations
// drain).
func (b *TokenBucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	return b.tokens
}

// refill credits tokens for elapsed time, capped at capacity.
// Callers must hold b.mu.
func (b *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.rate)
	}
	b.last = now
}
