package gateway

import (
	"context"
	"sync"
	"time"
)

// Bucket is a simple token-bucket rate limiter. It is the one piece of
// domain logic in the gateway deliberately left off a library: cooldown and
// drain semantics tied to the quote policy below have no off-the-shelf
// equivalent that exposes both operations on the same clock.
type Bucket struct {
	mu           sync.Mutex
	capacity     float64
	tokens       float64
	refillPerSec float64
	lastRefill   time.Time
}

// NewBucket builds a bucket that starts full.
func NewBucket(capacity, refillPerSec float64) *Bucket {
	return &Bucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPerSec: refillPerSec,
		lastRefill:   time.Now(),
	}
}

func (b *Bucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.lastRefill = now
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.refillPerSec
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
}

// Acquire blocks the caller until a token is available or ctx is done.
func (b *Bucket) Acquire(ctx context.Context) error {
	for {
		b.mu.Lock()
		b.refill()
		if b.tokens >= 1.0 {
			b.tokens -= 1.0
			b.mu.Unlock()
			return nil
		}
		wait := time.Duration((1.0 - b.tokens) / b.refillPerSec * float64(time.Second))
		b.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire takes a token if one is immediately available, without
// blocking. Used where a caller would rather skip the work than wait
// (e.g. rate-limiting expensive log-triggered parses).
func (b *Bucket) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true
	}
	return false
}

// Drain zeroes the bucket and resets the refill clock, forcing every
// subsequent Acquire to wait a full refill cycle.
func (b *Bucket) Drain() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = 0
	b.lastRefill = time.Now()
}
