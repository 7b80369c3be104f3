package coro

import (
	"context"
	"sync/atomic"
)

// whenAllLatch is a countdown latch: N+1 (one extra count held by the
// constructing goroutine itself, released once all children are wired up,
// mirroring the "arm everything before any child can fire the last
// decrement" protocol) decremented to 0 exactly once by the last finisher,
// which then Sets the completion Event. No child's failure short-circuits
// any other child — every child always runs to completion.
type whenAllLatch struct {
	remaining atomic.Int64
	done      *Event
}

func newWhenAllLatch(n int) *whenAllLatch {
	l := &whenAllLatch{done: NewEvent(false)}
	l.remaining.Store(int64(n) + 1)
	return l
}

// arrive decrements the latch; the goroutine observing the 1→0 transition
// sets the completion Event exactly once.
func (l *whenAllLatch) arrive() {
	if l.remaining.Add(-1) == 0 {
		l.done.Set(ResumePolicyFIFO, nil)
	}
}

func (l *whenAllLatch) await(ctx context.Context) error {
	if l.remaining.Load() <= 0 {
		return nil
	}
	return l.done.Await(ctx)
}

// WhenAllResult is the dynamic-arity, homogeneous-sequence result of
// WhenAllSlice: one result/error slot per participating Task, none of which
// short-circuit each other on failure.
type WhenAllResult[T any] struct {
	latch   *whenAllLatch
	values  []T
	errs    []error
}

// WhenAllSlice starts awaiting every task concurrently (one goroutine per
// task) and returns a result handle; call Await to block until all are
// done.
func WhenAllSlice[T any](tasks ...Awaitable[T]) *WhenAllResult[T] {
	r := &WhenAllResult[T]{
		latch:  newWhenAllLatch(len(tasks)),
		values: make([]T, len(tasks)),
		errs:   make([]error, len(tasks)),
	}
	for i, t := range tasks {
		i, t := i, t
		go func() {
			defer r.latch.arrive()
			v, err := t.Await(context.Background())
			r.values[i] = v
			r.errs[i] = err
		}()
	}
	r.latch.arrive() // release the constructor's own held count
	return r
}

// Values returns the per-child result slice (the "ready" view — callers
// decide for themselves whether per-child errors matter).
func (r *WhenAllResult[T]) Values() []T { return r.values }

// Errors returns the per-child error slice, one slot per task, nil where
// that task succeeded.
func (r *WhenAllResult[T]) Errors() []error { return r.errs }

// Await blocks until every child has completed (already-complete latches
// return immediately without blocking, per the skip-if-already-at-zero
// protocol) and returns the value slice plus an aggregate error if any
// child failed.
func (r *WhenAllResult[T]) Await(ctx context.Context) ([]T, error) {
	if err := r.latch.await(ctx); err != nil {
		return nil, err
	}
	var failed []error
	for _, e := range r.errs {
		if e != nil {
			failed = append(failed, e)
		}
	}
	if len(failed) > 0 {
		return r.values, &AggregateError{Errors: failed}
	}
	return r.values, nil
}

// WhenAllTask2 is the fixed-arity, heterogeneous-tuple result of WhenAll2.
type WhenAllTask2[A, B any] struct {
	latch *whenAllLatch
	a     A
	aErr  error
	b     B
	bErr  error
}

// WhenAll2 starts awaiting both tasks concurrently.
func WhenAll2[A, B any](a Awaitable[A], b Awaitable[B]) *WhenAllTask2[A, B] {
	r := &WhenAllTask2[A, B]{latch: newWhenAllLatch(2)}
	go func() {
		defer r.latch.arrive()
		r.a, r.aErr = a.Await(context.Background())
	}()
	go func() {
		defer r.latch.arrive()
		r.b, r.bErr = b.Await(context.Background())
	}()
	r.latch.arrive()
	return r
}

// Await blocks until both children finish, returning the tuple of results
// and, if any child failed, an *AggregateError holding every failure in
// child order (Cause is the first) — every child still ran to completion
// regardless.
func (r *WhenAllTask2[A, B]) Await(ctx context.Context) (A, B, error) {
	if err := r.latch.await(ctx); err != nil {
		var zeroA A
		var zeroB B
		return zeroA, zeroB, err
	}
	var failed []error
	if r.aErr != nil {
		failed = append(failed, r.aErr)
	}
	if r.bErr != nil {
		failed = append(failed, r.bErr)
	}
	if len(failed) > 0 {
		return r.a, r.b, &AggregateError{Errors: failed}
	}
	return r.a, r.b, nil
}

// Result returns the raw per-child outcome without raising, matching the
// dynamic WhenAllResult's "ready" view for the fixed-arity case.
func (r *WhenAllTask2[A, B]) Result() (A, error, B, error) {
	return r.a, r.aErr, r.b, r.bErr
}

// WhenAllTask3 is the three-way fixed-arity variant of WhenAllTask2.
type WhenAllTask3[A, B, C any] struct {
	latch *whenAllLatch
	a     A
	aErr  error
	b     B
	bErr  error
	c     C
	cErr  error
}

// WhenAll3 starts awaiting all three tasks concurrently.
func WhenAll3[A, B, C any](a Awaitable[A], b Awaitable[B], c Awaitable[C]) *WhenAllTask3[A, B, C] {
	r := &WhenAllTask3[A, B, C]{latch: newWhenAllLatch(3)}
	go func() {
		defer r.latch.arrive()
		r.a, r.aErr = a.Await(context.Background())
	}()
	go func() {
		defer r.latch.arrive()
		r.b, r.bErr = b.Await(context.Background())
	}()
	go func() {
		defer r.latch.arrive()
		r.c, r.cErr = c.Await(context.Background())
	}()
	r.latch.arrive()
	return r
}

// Await blocks until all three children finish.
func (r *WhenAllTask3[A, B, C]) Await(ctx context.Context) (A, B, C, error) {
	if err := r.latch.await(ctx); err != nil {
		var zeroA A
		var zeroB B
		var zeroC C
		return zeroA, zeroB, zeroC, err
	}
	var failed []error
	if r.aErr != nil {
		failed = append(failed, r.aErr)
	}
	if r.bErr != nil {
		failed = append(failed, r.bErr)
	}
	if r.cErr != nil {
		failed = append(failed, r.cErr)
	}
	if len(failed) > 0 {
		return r.a, r.b, r.c, &AggregateError{Errors: failed}
	}
	return r.a, r.b, r.c, nil
}
