package coro

import (
	"context"
)

// SyncWait is the one blocking-wait primitive in this module: every other
// primitive composes via Await/Schedule/Set. It spawns exactly one driver
// goroutine to run aw.Await, and blocks the calling (non-managed) goroutine
// on an internal Event that the driver Sets on completion — the Go-native
// shape of "wrap in a task whose final suspension signals a condition
// variable, then block the calling thread on that condition variable."
func SyncWait[T any](ctx context.Context, aw Awaitable[T]) (T, error) {
	var (
		result T
		err    error
	)
	ev := NewEvent(false)
	go func() {
		defer ev.Set(ResumePolicyFIFO, nil)
		result, err = aw.Await(ctx)
	}()
	if waitErr := ev.Await(context.Background()); waitErr != nil {
		var zero T
		return zero, waitErr
	}
	return result, err
}
