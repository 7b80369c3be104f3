// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package coro

// threadPoolOptions holds configuration for ThreadPool creation.
type threadPoolOptions struct {
	onWorkerStart  func(workerIndex int)
	onWorkerStop   func(workerIndex int)
	metricsEnabled bool
}

// ThreadPoolOption configures a ThreadPool instance.
type ThreadPoolOption interface {
	applyThreadPool(*threadPoolOptions) error
}

type threadPoolOptionImpl struct {
	apply func(*threadPoolOptions) error
}

func (o *threadPoolOptionImpl) applyThreadPool(opts *threadPoolOptions) error {
	return o.apply(opts)
}

// WithOnWorkerStart registers a callback invoked once per worker goroutine,
// immediately before it begins draining the shared queue. workerIndex is
// the worker's real position in [0, n) — unlike the literal index value the
// original implementation passed to this hook, this is the loop variable.
func WithOnWorkerStart(fn func(workerIndex int)) ThreadPoolOption {
	return &threadPoolOptionImpl{func(opts *threadPoolOptions) error {
		opts.onWorkerStart = fn
		return nil
	}}
}

// WithOnWorkerStop registers a callback invoked once per worker goroutine,
// immediately after it observes shutdown and before it returns.
func WithOnWorkerStop(fn func(workerIndex int)) ThreadPoolOption {
	return &threadPoolOptionImpl{func(opts *threadPoolOptions) error {
		opts.onWorkerStop = fn
		return nil
	}}
}

// WithPoolMetrics enables latency/queue-depth metrics collection on a
// ThreadPool. See (*ThreadPool).Metrics.
func WithPoolMetrics(enabled bool) ThreadPoolOption {
	return &threadPoolOptionImpl{func(opts *threadPoolOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

func resolveThreadPoolOptions(opts []ThreadPoolOption) (*threadPoolOptions, error) {
	cfg := &threadPoolOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyThreadPool(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// taskContainerOptions holds configuration for TaskContainer creation.
type taskContainerOptions struct {
	growthFactor    float64
	initialCapacity int
}

// TaskContainerOption configures a TaskContainer instance.
type TaskContainerOption interface {
	applyTaskContainer(*taskContainerOptions) error
}

type taskContainerOptionImpl struct {
	apply func(*taskContainerOptions) error
}

func (o *taskContainerOptionImpl) applyTaskContainer(opts *taskContainerOptions) error {
	return o.apply(opts)
}

// WithGrowthFactor sets the multiplier applied to a TaskContainer's slot
// slice when it must grow (default 2.0). Panics via the returned error path
// if f <= 1.0.
func WithGrowthFactor(f float64) TaskContainerOption {
	return &taskContainerOptionImpl{func(opts *taskContainerOptions) error {
		if f <= 1.0 {
			return WrapError("coro: invalid growth factor", ErrInvalidOption)
		}
		opts.growthFactor = f
		return nil
	}}
}

// WithInitialCapacity sets the initial slot count for a TaskContainer
// (default 16).
func WithInitialCapacity(n int) TaskContainerOption {
	return &taskContainerOptionImpl{func(opts *taskContainerOptions) error {
		if n < 0 {
			return WrapError("coro: invalid initial capacity", ErrInvalidOption)
		}
		opts.initialCapacity = n
		return nil
	}}
}

func resolveTaskContainerOptions(opts []TaskContainerOption) (*taskContainerOptions, error) {
	cfg := &taskContainerOptions{
		growthFactor:    2.0,
		initialCapacity: 16,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyTaskContainer(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
