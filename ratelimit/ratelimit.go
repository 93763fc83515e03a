// Package ratelimit spaces outbound requests with randomized jitter so the
// crawl never shows a fixed cadence to the target service.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter enforces a minimum spacing between request slots. Each completed
// Wait reserves the next allowed time as now + minDelay + fresh jitter, so two
// completions are never closer together than minDelay.
type Limiter struct {
	minDelay time.Duration
	jitter   time.Duration

	mu          sync.Mutex
	nextAllowed time.Time
}

// New returns a limiter with the given base delay and jitter upper bound.
func New(minDelay, jitter time.Duration) *Limiter {
	return &Limiter{
		minDelay: minDelay,
		jitter:   jitter,
	}
}

// Wait suspends the caller until the next request slot is free, then reserves
// the slot after it. The first call proceeds immediately. Returns early with
// ctx.Err() if the context is canceled while suspended.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	jitter := l.drawJitter()

	if l.nextAllowed.IsZero() || !now.Before(l.nextAllowed) {
		l.nextAllowed = now.Add(l.minDelay + jitter)
		return nil
	}

	timer := time.NewTimer(l.nextAllowed.Sub(now))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	l.nextAllowed = time.Now().Add(l.minDelay + jitter)
	return nil
}

func (l *Limiter) drawJitter() time.Duration {
	if l.jitter <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(l.jitter)))
}
