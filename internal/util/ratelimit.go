package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements a token-bucket rate limiter that replenishes tokens
// at a fixed rate. The bucket holds at most one token, so calls are spread
// evenly rather than bursting.
type RateLimiter struct {
	interval time.Duration // time to earn one token
	next     time.Time     // when the next token is available
	mu       sync.Mutex
	now      func() time.Time
}

// NewRateLimiter creates a RateLimiter that allows perMinute operations per
// minute. The first call never waits.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{
		interval: time.Minute / time.Duration(perMinute),
		now:      time.Now,
	}
}

// reserve claims the next slot and returns how long the caller must wait
// for it.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if rl.next.Before(now) {
		rl.next = now
	}
	wait := rl.next.Sub(now)
	rl.next = rl.next.Add(rl.interval)
	return wait
}

// Wait blocks until a rate-limit token is available or the context is
// cancelled. A cancelled wait still consumes its slot.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wait := rl.reserve()
	if wait <= 0 {
		return nil
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
