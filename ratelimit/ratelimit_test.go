package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestFirstWaitProceedsImmediately(t *testing.T) {
	l := New(time.Hour, 0)

	start := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("first wait took %v, want immediate", elapsed)
	}
}

func TestWaitSpacing(t *testing.T) {
	const (
		minDelay = 50 * time.Millisecond
		jitter   = 20 * time.Millisecond
	)
	l := New(minDelay, jitter)

	completions := make([]time.Time, 0, 4)
	for i := 0; i < 4; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
		completions = append(completions, time.Now())
	}

	for i := 1; i < len(completions); i++ {
		gap := completions[i].Sub(completions[i-1])
		if gap < minDelay {
			t.Fatalf("gap %d = %v, want >= %v", i, gap, minDelay)
		}
		// Scheduling adds slack on top of minDelay+jitter, so only a loose
		// upper bound is asserted.
		if gap > minDelay+jitter+200*time.Millisecond {
			t.Fatalf("gap %d = %v, want < %v", i, gap, minDelay+jitter+200*time.Millisecond)
		}
	}
}

func TestIdleGapResetsReservation(t *testing.T) {
	const minDelay = 30 * time.Millisecond
	l := New(minDelay, 0)

	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}

	// Let the reservation lapse; the next wait should proceed immediately.
	time.Sleep(2 * minDelay)

	start := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Fatalf("wait after idle took %v, want immediate", elapsed)
	}
}

func TestWaitContextCanceled(t *testing.T) {
	l := New(time.Hour, 0)

	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Wait(ctx); err != context.Canceled {
		t.Fatalf("wait = %v, want context.Canceled", err)
	}
}

func TestZeroJitterIsDeterministic(t *testing.T) {
	l := New(10*time.Millisecond, 0)
	if got := l.drawJitter(); got != 0 {
		t.Fatalf("jitter = %v, want 0", got)
	}
}
