package translate

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds simultaneous remote calls across all files of a run.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter returns a limiter allowing n concurrent calls; n <= 0 means 1.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n))}
}

// Acquire blocks for a slot. The returned release must be called once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if l == nil {
		return func() {}, ctx.Err()
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { l.sem.Release(1) }, nil
}
