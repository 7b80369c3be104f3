package coro

import (
	"context"
	"sync/atomic"
)

// ResumePolicy controls the order in which Event waiters are resumed when
// Set is called.
type ResumePolicy int

const (
	// ResumePolicyLIFO resumes waiters in claimed order, which is the
	// reverse of their arrival order (the natural order of a CAS-built
	// intrusive stack).
	ResumePolicyLIFO ResumePolicy = iota
	// ResumePolicyFIFO reverses the claimed chain before resuming, so
	// waiters observe the order they arrived in.
	ResumePolicyFIFO
)

// Executor is the capability both ThreadPool and ioscheduler.IOScheduler
// implement, letting Event, WhenAll, and TaskContainer dispatch resumptions
// without depending on a concrete executor type.
type Executor interface {
	// Schedule blocks the caller until a worker/reactor grants it a turn,
	// then returns; the caller then continues on its own goroutine, not
	// on the worker or reactor goroutine.
	Schedule(ctx context.Context) error
	// Yield re-schedules the calling unit of work, letting other queued
	// work run first.
	Yield(ctx context.Context) error
	// Resume enqueues a bare resumption handle for later execution.
	Resume(h ResumeHandle)
}

// ResumeHandle is a bare continuation handed to an Executor.
type ResumeHandle func()

// coroWaiter is one node of the intrusive, CAS-built waiter stack an Event
// maintains while unset. eventSetSentinel is a distinguished *coroWaiter
// value (never pushed as a real waiter) that marks the Event as set.
type coroWaiter struct {
	next   *coroWaiter
	resume ResumeHandle
}

var eventSetSentinel = &coroWaiter{}

// Event is a lock-free, single-word, set-once-then-resettable completion
// signal. Its state is one of: unset/no-waiters (nil), unset/waiters
// (pointer to the head of a CAS-built intrusive waiter stack), or set (the
// package-level sentinel pointer).
type Event struct {
	state atomic.Pointer[coroWaiter]
}

// NewEvent constructs an Event, initially set or unset per the argument.
func NewEvent(set bool) *Event {
	e := &Event{}
	if set {
		e.state.Store(eventSetSentinel)
	}
	return e
}

// IsSet reports whether the Event is currently set.
func (e *Event) IsSet() bool {
	return e.state.Load() == eventSetSentinel
}

// Await blocks until the Event is set, or ctx is done. If the Event is
// already set, Await returns immediately.
func (e *Event) Await(ctx context.Context) error {
	done := make(chan struct{})
	w := &coroWaiter{resume: func() { close(done) }}

	for {
		old := e.state.Load()
		if old == eventSetSentinel {
			return nil
		}
		w.next = old
		if e.state.CompareAndSwap(old, w) {
			break
		}
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Set marks the Event set and resumes every current waiter exactly once.
// If exec is nil, waiters are resumed inline on the calling goroutine (each
// waiter's resume closure simply closes its own done channel, which is
// cheap); if exec is non-nil, each waiter's resumption is handed to
// exec.Resume instead, so resumed goroutines don't pile up on the setter's
// call stack.
func (e *Event) Set(policy ResumePolicy, exec Executor) {
	old := e.state.Swap(eventSetSentinel)
	if old == eventSetSentinel || old == nil {
		return
	}

	waiters := make([]*coroWaiter, 0, 8)
	for w := old; w != nil; w = w.next {
		waiters = append(waiters, w)
	}
	// waiters is now in claimed (LIFO / arrival-reversed) order.
	if policy == ResumePolicyFIFO {
		for i, j := 0, len(waiters)-1; i < j; i, j = i+1, j-1 {
			waiters[i], waiters[j] = waiters[j], waiters[i]
		}
	}

	for _, w := range waiters {
		if exec == nil {
			w.resume()
		} else {
			exec.Resume(w.resume)
		}
	}
}

// Reset clears the set flag if the Event is currently set with no waiters
// registered; if waiters are present (a CAS contention window during a
// concurrent Await), Reset is a no-op — a partially-drained waiter chain
// must never be observed as un-set.
func (e *Event) Reset() {
	e.state.CompareAndSwap(eventSetSentinel, nil)
}
