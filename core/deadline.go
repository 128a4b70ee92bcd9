package core

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// WithDeadline runs fn with a context bounded by d and returns a *TimeoutError once d elapses,
// whether or not fn honours its context. A zero or negative d runs fn without a deadline.
//
// fn keeps running in the background after a timeout; its results must not be read by the caller in that case.
func WithDeadline(ctx context.Context, d time.Duration, op string, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &TimeoutError{Op: op, Timeout: d}
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &TimeoutError{Op: op, Timeout: d}
		}
		return ctx.Err()
	}
}
