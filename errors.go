// Package coro provides a Go coordination core for asynchronous computation
// graphs: lazily-started tasks, pull iterators, a lock-free completion
// event, a worker pool, fan-in combinators, a blocking bridge, and a
// container for detached fire-and-forget tasks.
package coro

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolShutdown is returned by ThreadPool.Schedule and ThreadPool.Go
	// once Shutdown has been called or is in progress.
	ErrPoolShutdown = errors.New("coro: thread pool is shut down")

	// ErrTaskAlreadyRunning is returned when a caller attempts an operation
	// that requires a Task not currently running (e.g. Drop) on a Task whose
	// body is currently executing.
	ErrTaskAlreadyRunning = errors.New("coro: task is running")

	// ErrGoexit is recorded as a Task's error when its body exits via
	// runtime.Goexit rather than returning normally.
	ErrGoexit = errors.New("coro: goroutine exited via runtime.Goexit")

	// ErrContainerClosed is returned by TaskContainer.Start when the
	// container has no slot table. Draining a container with
	// GarbageCollectAndYieldUntilEmpty does not close it; Start still
	// accepts tasks afterwards.
	ErrContainerClosed = errors.New("coro: task container is closed")

	// ErrInvalidOption is the cause wrapped by option constructors that
	// reject an out-of-range argument.
	ErrInvalidOption = errors.New("coro: invalid option value")

	// ErrChannelClosed is returned by a FromChannel adapter's Await once
	// the underlying channel is closed without delivering a value.
	ErrChannelClosed = errors.New("coro: channel closed")
)

// PanicError wraps a value recovered from a panic inside a Task body,
// ThreadPool worker, or TaskContainer cleanup wrapper, so the panic can be
// observed as an ordinary error without crashing the process.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("coro: panic recovered: %v", e.Value)
}

// Unwrap returns the underlying error if the recovered panic value is
// itself an error, enabling errors.Is/errors.As through the cause chain.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// AggregateError collects one error per failed child of a WhenAll
// combinator, in child order. Its Errors slice holds only the failures;
// callers that need the per-child outcome should prefer
// WhenAllResult.Errors, which preserves empty slots for successful
// children, over this type's compacted Errors field.
type AggregateError struct {
	Errors []error
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "coro: aggregate error (no errors)"
	case 1:
		return fmt.Sprintf("coro: 1 task failed: %v", e.Errors[0])
	default:
		return fmt.Sprintf("coro: %d tasks failed (first: %v)", len(e.Errors), e.Errors[0])
	}
}

// Cause returns the first error in Errors, if any.
func (e *AggregateError) Cause() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// Unwrap returns the errors slice for multi-error unwrapping (Go 1.20+),
// so errors.Is/errors.As can match against any contained failure.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// Is reports whether target is an *AggregateError, regardless of contents.
// errors.Is already walks Unwrap() []error for matching a specific cause;
// this lets callers also test "did anything fail" with errors.Is against a
// bare *AggregateError{}.
func (e *AggregateError) Is(target error) bool {
	var aggTarget *AggregateError
	return errors.As(target, &aggTarget)
}

// PollStatus values that are not EVENT/TIMEOUT carry a *PollError.
type PollError struct {
	Status int
	Cause  error
}

// Error implements the error interface.
func (e *PollError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("coro: poll error: %v", e.Cause)
	}
	return "coro: poll error"
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *PollError) Unwrap() error {
	return e.Cause
}

// WrapError wraps an error with a message, preserving the cause chain so
// errors.Is(result, cause) == true.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
