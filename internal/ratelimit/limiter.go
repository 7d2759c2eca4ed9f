// Package ratelimit bounds concurrent calls to upstream services.
package ratelimit

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter caps the number of in-flight calls to one upstream. It is a
// concurrency budget, not a blocking global lock: callers acquire a slot
// around each call and independent upstreams get independent limiters.
type Limiter struct {
	sem *semaphore.Weighted
}

// New creates a limiter allowing at most n concurrent holders.
func New(n int) *Limiter {
	if n <= 0 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n))}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// Release returns a slot to the limiter.
func (l *Limiter) Release() {
	l.sem.Release(1)
}

// Do runs fn while holding a slot.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return fn()
}
