package coro

import (
	"context"
	"sync"
)

// Generator is a pull-iterated producer: its body runs on a dedicated
// goroutine that is never more than one step ahead of the consumer,
// suspending after every yielded value until Next is called again. This is
// the Go-native shape of a suspend-always coroutine generator — the
// producer goroutine blocks on an unbuffered handoff rather than a compiler
// "suspend point", but the observable one-step-ahead invariant is identical.
//
// A Generator body receives only a yield function, never a scheduler or
// context capable of awaiting other coro primitives — awaiting from inside
// a generator body is therefore a compile-time impossibility rather than a
// runtime-checked restriction.
type Generator[T any] struct {
	values chan T
	pull   chan struct{}
	done   chan struct{}

	closeOnce sync.Once
	stopped   chan struct{}

	finalErr error
	errMu    sync.Mutex
}

// NewGenerator starts the producer goroutine running body and returns a
// Generator ready for Next. body must call yield to publish a value; yield
// returns false once the consumer has called Close, signaling the body to
// return without yielding again.
func NewGenerator[T any](body func(yield func(T) bool)) *Generator[T] {
	g := &Generator[T]{
		values:  make(chan T),
		pull:    make(chan struct{}),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	yield := func(v T) bool {
		select {
		case <-g.stopped:
			return false
		default:
		}
		select {
		case <-g.pull:
		case <-g.stopped:
			return false
		}
		select {
		case g.values <- v:
			return true
		case <-g.stopped:
			return false
		}
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				g.errMu.Lock()
				g.finalErr = &PanicError{Value: r, Stack: capturedStack()}
				g.errMu.Unlock()
				logError("generator", "generator body panicked", g.finalErr)
			}
			close(g.done)
		}()
		body(yield)
	}()

	return g
}

// Next pulls the next value. ok is false once the body has returned (the
// generator is exhausted) or ctx is canceled first.
func (g *Generator[T]) Next(ctx context.Context) (value T, ok bool, err error) {
	select {
	case <-g.done:
		g.errMu.Lock()
		err = g.finalErr
		g.errMu.Unlock()
		return value, false, err
	default:
	}

	select {
	case g.pull <- struct{}{}:
	case <-g.done:
		g.errMu.Lock()
		err = g.finalErr
		g.errMu.Unlock()
		return value, false, err
	case <-ctx.Done():
		return value, false, ctx.Err()
	}

	select {
	case v := <-g.values:
		return v, true, nil
	case <-g.done:
		g.errMu.Lock()
		err = g.finalErr
		g.errMu.Unlock()
		return value, false, err
	case <-ctx.Done():
		return value, false, ctx.Err()
	}
}

// Close stops the producer goroutine. It must be called if the consumer
// stops pulling before the generator is exhausted, so the body's next
// blocked yield call observes stopped and the goroutine can return.
func (g *Generator[T]) Close() {
	g.closeOnce.Do(func() {
		close(g.stopped)
	})
	<-g.done
}
