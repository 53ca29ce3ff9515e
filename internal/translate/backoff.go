package translate

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

// Backoff is the retry state shared by every chunk of a run. It computes
// jittered exponential delays and holds a run-wide pause set by server
// Retry-After hints.
type Backoff struct {
	base     time.Duration
	maxDelay time.Duration

	mu       sync.Mutex
	paused   atomic.Bool
	pauseEnd time.Time

	retries  atomic.Int64
	attempts atomic.Int64
	jitter   func(time.Duration) time.Duration
}

// NewBackoff builds shared backoff state. A non-positive max disables capping.
func NewBackoff(base, maxDelay time.Duration) *Backoff {
	if base < 0 {
		base = 0
	}
	return &Backoff{base: base, maxDelay: maxDelay, jitter: equalJitter}
}

// equalJitter spreads d uniformly over [d/2, d].
func equalJitter(d time.Duration) time.Duration {
	if d <= 1 {
		return d
	}
	half := d / 2
	return half + rand.N(d-half+1)
}

// Delay returns the wait before the attempt following the given 1-based
// attempt number: base, 2*base, 4*base, ... capped at max, then jittered.
func (b *Backoff) Delay(attempt int) time.Duration {
	if b == nil || b.base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := b.base
	for i := 1; i < attempt; i++ {
		if b.maxDelay > 0 && delay > b.maxDelay/2 {
			delay = b.maxDelay
			break
		}
		delay *= 2
	}
	delay = b.capDelay(delay)
	return b.jitter(delay)
}

func (b *Backoff) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if b.maxDelay > 0 && delay > b.maxDelay {
		return b.maxDelay
	}
	return delay
}

// Pause holds every caller of Wait until d has elapsed. A shorter pause never
// cuts an existing longer one.
func (b *Backoff) Pause(d time.Duration) {
	if b == nil || d <= 0 {
		return
	}
	d = b.capDelay(d)
	b.mu.Lock()
	defer b.mu.Unlock()
	end := time.Now().Add(d)
	if b.paused.Load() && b.pauseEnd.After(end) {
		return
	}
	b.pauseEnd = end
	b.paused.Store(true)
}

// Paused reports whether a run-wide pause is active.
func (b *Backoff) Paused() bool {
	return b != nil && b.paused.Load()
}

// Wait blocks until any active pause is over or ctx is done.
func (b *Backoff) Wait(ctx context.Context) error {
	if b == nil {
		return ctx.Err()
	}
	for b.paused.Load() {
		b.mu.Lock()
		remaining := time.Until(b.pauseEnd)
		if remaining <= 0 {
			b.paused.Store(false)
			b.mu.Unlock()
			return nil
		}
		b.mu.Unlock()
		timer := time.NewTimer(min(remaining, 100*time.Millisecond))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return ctx.Err()
}

func (b *Backoff) recordAttempt(retry bool) {
	if b == nil {
		return
	}
	b.attempts.Add(1)
	if retry {
		b.retries.Add(1)
	}
}

// Attempts returns the number of remote calls made through this state.
func (b *Backoff) Attempts() int64 {
	if b == nil {
		return 0
	}
	return b.attempts.Load()
}

// Retries returns how many of those calls were retries.
func (b *Backoff) Retries() int64 {
	if b == nil {
		return 0
	}
	return b.retries.Load()
}
