// Package scheduler provides cooperative yielding for long-running
// synchronous work. Builds process files in chunks and hand control back to
// the runtime between chunks so a single session never starves its peers.
package scheduler

import (
	"context"
	"runtime"
	"time"
)

// Strategy selects the yield primitive.
type Strategy int

const (
	// StrategyAuto prefers the cheap scheduler handoff and falls back to a
	// zero-delay timer when a real suspension point is required.
	StrategyAuto Strategy = iota
	// StrategyGosched always uses the runtime scheduler handoff.
	StrategyGosched
	// StrategyTimer always parks on a zero-delay timer, the universal
	// fallback.
	StrategyTimer
)

// Options tunes a Yielder.
type Options struct {
	Strategy Strategy
	// TimerDelay is the park duration for the timer strategy; 0 means a
	// zero-delay timer.
	TimerDelay time.Duration
}

// Yielder is the single always-available suspension point for
// otherwise-synchronous loops.
type Yielder interface {
	Yield(ctx context.Context) error
}

// RuntimeYielder yields through the Go runtime scheduler and timers.
type RuntimeYielder struct {
	strategy Strategy
	delay    time.Duration
}

var _ Yielder = (*RuntimeYielder)(nil)

// New creates a RuntimeYielder.
func New(opts Options) *RuntimeYielder {
	return &RuntimeYielder{strategy: opts.Strategy, delay: opts.TimerDelay}
}

// Yield suspends the caller and resumes at the next opportunity the runtime
// gives background work. It returns early with the context error when ctx is
// already cancelled.
func (y *RuntimeYielder) Yield(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch y.strategy {
	case StrategyGosched:
		runtime.Gosched()
		return nil
	case StrategyTimer:
		return y.parkTimer(ctx)
	default:
		runtime.Gosched()
		// Gosched alone does not guarantee other work ran; a zero-delay
		// timer park does.
		return y.parkTimer(ctx)
	}
}

func (y *RuntimeYielder) parkTimer(ctx context.Context) error {
	timer := time.NewTimer(y.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessInChunks applies fn to each item in order, yielding after every
// chunkSize-th item but never after the last. Output order matches input
// order. The first fn error or a context cancellation stops processing.
func ProcessInChunks[T, R any](ctx context.Context, y Yielder, items []T, fn func(context.Context, T) (R, error), chunkSize int) ([]R, error) {
	if chunkSize <= 0 {
		chunkSize = 1
	}

	results := make([]R, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		r, err := fn(ctx, item)
		if err != nil {
			return results, err
		}
		results = append(results, r)

		if (i+1)%chunkSize == 0 && i != len(items)-1 {
			if err := y.Yield(ctx); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}
