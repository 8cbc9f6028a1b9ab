package orchestrator

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxInFlight bounds concurrent agent invocations when unset.
const DefaultMaxInFlight = 4

// Limiter bounds agent invocations in flight across every run of an
// orchestrator.
type Limiter struct {
	sem      *semaphore.Weighted
	size     int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewLimiter creates a limiter admitting at most n concurrent invocations.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		n = DefaultMaxInFlight
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), size: int64(n)}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	cur := l.inFlight.Add(1)
	for {
		p := l.peak.Load()
		if cur <= p || l.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	return nil
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.inFlight.Add(-1)
	l.sem.Release(1)
}

// Size returns the configured bound.
func (l *Limiter) Size() int {
	return int(l.size)
}

// InFlight returns the number of slots currently held.
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}

// Peak returns the highest number of slots held at once.
func (l *Limiter) Peak() int {
	return int(l.peak.Load())
}
