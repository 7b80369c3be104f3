package coro

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ThreadPool is a fixed-size worker pool draining one shared FIFO queue.
// Ordering is strict FIFO per worker's own dequeue sequence; there is no
// ordering guarantee between items handed to different workers.
type ThreadPool struct {
	n            int
	shuttingDown atomic.Bool
	shutdownOnce sync.Once
	size         atomic.Int64
	metrics      *Metrics

	mu      sync.Mutex
	queue   *workQueue
	wake    chan struct{}
	stopped chan struct{}

	wg sync.WaitGroup

	onStart func(int)
	onStop  func(int)
}

// NewThreadPool spawns n worker goroutines immediately; a pool's workers
// are always live once constructed (unlike a Task, which starts suspended).
func NewThreadPool(n int, opts ...ThreadPoolOption) *ThreadPool {
	if n < 1 {
		n = 1
	}
	cfg, err := resolveThreadPoolOptions(opts)
	if err != nil {
		// Option constructors only fail on out-of-range values; callers
		// that hit this during construction have a programming error.
		panic(err)
	}

	p := &ThreadPool{
		n:       n,
		queue:   newWorkQueue(),
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		onStart: cfg.onWorkerStart,
		onStop:  cfg.onWorkerStop,
	}
	if cfg.metricsEnabled {
		p.metrics = &Metrics{}
	}

	p.wg.Add(n)
	for i := 0; i < n; i++ {
		// i is the real per-worker loop index, passed by value into the
		// goroutine closure — earlier implementations of this pattern in
		// the wild have been caught passing a single literal instead of
		// the loop variable to this hook, silently collapsing every
		// worker's identity to the same value.
		go p.runWorker(i)
	}
	return p
}

func (p *ThreadPool) runWorker(index int) {
	defer p.wg.Done()
	if p.onStart != nil {
		p.onStart(index)
	}
	defer func() {
		if p.onStop != nil {
			p.onStop(index)
		}
	}()

	for {
		p.mu.Lock()
		h, ok := p.queue.Pop()
		qlen := p.queue.Length()
		p.mu.Unlock()

		if p.metrics != nil {
			p.metrics.Queue.UpdatePool(qlen)
		}

		if ok {
			p.runHandle(h)
			continue
		}

		select {
		case <-p.wake:
			continue
		case <-p.stopped:
			// Drain whatever remains so no submitted work is silently
			// dropped on shutdown.
			p.mu.Lock()
			h, ok := p.queue.Pop()
			p.mu.Unlock()
			if ok {
				p.runHandle(h)
				continue
			}
			return
		}
	}
}

func (p *ThreadPool) runHandle(h ResumeHandle) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logError("pool", "worker panic recovered", &PanicError{Value: r, Stack: capturedStack()})
		}
		p.size.Add(-1)
		if p.metrics != nil {
			p.metrics.Latency.Record(time.Since(start))
		}
	}()
	h()
}

// enqueue pushes h onto the shared queue and wakes exactly one worker.
func (p *ThreadPool) enqueue(h ResumeHandle) {
	p.size.Add(1)
	p.mu.Lock()
	p.queue.Push(h)
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Schedule suspends the caller (via a channel handoff) until a worker picks
// it up and resumes it. This is the awaitable enqueue-self operation
// underlying Yield.
func (p *ThreadPool) Schedule(ctx context.Context) error {
	if p.shuttingDown.Load() {
		return ErrPoolShutdown
	}
	done := make(chan struct{})
	p.enqueue(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Yield is an alias for Schedule: re-queue the caller so other pending work
// gets a turn before it resumes.
func (p *ThreadPool) Yield(ctx context.Context) error {
	return p.Schedule(ctx)
}

// Resume enqueues a bare resumption handle, used by Event/WhenAll/
// TaskContainer to dispatch continuations onto this pool.
func (p *ThreadPool) Resume(h ResumeHandle) {
	p.enqueue(h)
}

// Go returns a Task that, when awaited, queues fn on the pool and waits for
// a worker to run it. A panic in fn is returned as a *PanicError.
func (p *ThreadPool) Go(ctx context.Context, fn func(context.Context)) *Task[struct{}] {
	return NewTask(func(ctx context.Context) (struct{}, error) {
		if p.shuttingDown.Load() {
			return struct{}{}, ErrPoolShutdown
		}
		done := make(chan struct{})
		var panicErr error
		p.enqueue(func() {
			defer close(done)
			defer func() {
				if r := recover(); r != nil {
					panicErr = &PanicError{Value: r, Stack: capturedStack()}
				}
			}()
			fn(ctx)
		})
		select {
		case <-done:
			return struct{}{}, panicErr
		case <-ctx.Done():
			return struct{}{}, ctx.Err()
		}
	})
}

// Size returns the current in-flight (queued + running) work count.
func (p *ThreadPool) Size() int {
	return int(p.size.Load())
}

// Metrics returns the pool's metrics, or nil if WithPoolMetrics was not
// enabled at construction.
func (p *ThreadPool) Metrics() *Metrics {
	return p.metrics
}

// Shutdown requests every worker to stop once its current work item and the
// queue are drained, then waits for all workers to join or ctx to expire.
// Shutdown is idempotent.
func (p *ThreadPool) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.shuttingDown.Store(true)
		close(p.stopped)
		// Wake every potentially-sleeping worker so it observes stopped.
		for i := 0; i < p.n; i++ {
			select {
			case p.wake <- struct{}{}:
			default:
			}
		}
	})

	joined := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(joined)
	}()

	select {
	case <-joined:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
