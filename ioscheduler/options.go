package ioscheduler

import "github.com/joeycumines/coro"

// ExecutionStrategy selects how a scheduled continuation is resumed once
// the reactor observes it is ready to run.
type ExecutionStrategy int

const (
	// ExecutionInline resumes continuations on the reactor goroutine
	// itself (the Schedule()/Resume() awaiter pushes onto an internal
	// mutex-protected list, drained the next time the reactor wakes).
	ExecutionInline ExecutionStrategy = iota
	// ExecutionThreadPool hands every resumed continuation to an attached
	// *coro.ThreadPool instead of running it on the reactor goroutine.
	ExecutionThreadPool
)

type config struct {
	strategy      ExecutionStrategy
	pool          *coro.ThreadPool
	spawnReactor  bool
	maxEvents     int
	metrics       bool
	containerOpts []coro.TaskContainerOption
}

// Option configures an IOScheduler at construction.
type Option interface {
	apply(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) apply(c *config) error { return f(c) }

// WithThreadPool attaches pool and selects ExecutionThreadPool: every
// Schedule()/Resume() dispatch, and every readiness/timeout resumption,
// is handed to pool instead of run inline on the reactor goroutine.
func WithThreadPool(pool *coro.ThreadPool) Option {
	return optionFunc(func(c *config) error {
		c.pool = pool
		c.strategy = ExecutionThreadPool
		return nil
	})
}

// WithSpawnReactor controls whether New spawns a dedicated reactor
// goroutine (spawn == true, the default) or leaves the caller to drive the
// reactor manually via ProcessEvents (spawn == false).
func WithSpawnReactor(spawn bool) Option {
	return optionFunc(func(c *config) error {
		c.spawnReactor = spawn
		return nil
	})
}

// WithMaxEvents sets the maximum number of readiness events drained per
// reactor iteration (default 256).
func WithMaxEvents(n int) Option {
	return optionFunc(func(c *config) error {
		if n < 1 {
			n = 1
		}
		c.maxEvents = n
		return nil
	})
}

// WithMetrics enables queue-depth/poll-batch metrics collection.
func WithMetrics(enabled bool) Option {
	return optionFunc(func(c *config) error {
		c.metrics = enabled
		return nil
	})
}

// WithContainerOptions forwards options to the owning TaskContainer (e.g.
// coro.WithGrowthFactor, coro.WithInitialCapacity).
func WithContainerOptions(opts ...coro.TaskContainerOption) Option {
	return optionFunc(func(c *config) error {
		c.containerOpts = append(c.containerOpts, opts...)
		return nil
	})
}

func resolveOptions(opts []Option) (*config, error) {
	cfg := &config{
		strategy:     ExecutionInline,
		spawnReactor: true,
		maxEvents:    256,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
