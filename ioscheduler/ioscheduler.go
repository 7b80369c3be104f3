package ioscheduler

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/coro"
)

// readyEvent is the platform-neutral shape every reactorBackend.wait
// implementation normalizes its native event type into, so the dispatch
// logic below never touches epoll_event/kevent/WSAPollFD directly.
type readyEvent struct {
	fd       int32
	readable bool
	writable bool
	errored  bool
	closed   bool
}

// IOScheduler is the reactor: it multiplexes timers, schedule-wakeups, and
// fd readiness onto a single control loop (run on a dedicated goroutine
// when spawned, or driven one iteration at a time via ProcessEvents), and
// owns a *coro.TaskContainer for detached computations.
type IOScheduler struct {
	cfg     *config
	backend *reactorBackend

	shutdownFD int
	timerFD    int
	scheduleFD int

	container *coro.TaskContainer
	pool      *coro.ThreadPool
	metrics   *coro.Metrics

	mu        sync.Mutex
	fdWaiters map[int]*pollInfo
	timers    timerHeap

	inlineMu          sync.Mutex
	inline            []func()
	scheduleTriggered atomic.Bool

	size              atomic.Int64
	shutdownRequested atomic.Bool
	shutdownOnce      sync.Once
	closed            atomic.Bool

	reactorDone chan struct{}
}

// New creates the epoll/kqueue/WSAPoll backend, the three control descriptors
// (shutdown, timer, schedule-wakeup eventfd-equivalents), and the owning
// TaskContainer, then — unless WithSpawnReactor(false) was given — spawns
// the dedicated reactor goroutine.
func New(opts ...Option) (*IOScheduler, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	backend, err := newReactorBackend(cfg.maxEvents)
	if err != nil {
		return nil, err
	}

	s := &IOScheduler{
		cfg:       cfg,
		backend:   backend,
		fdWaiters: make(map[int]*pollInfo),
		pool:      cfg.pool,
	}
	if cfg.metrics {
		s.metrics = &coro.Metrics{}
	}

	if s.shutdownFD, err = createEventFD(); err != nil {
		_ = backend.close()
		return nil, err
	}
	if s.timerFD, err = createTimerFD(); err != nil {
		_ = closeFD(s.shutdownFD)
		_ = backend.close()
		return nil, err
	}
	if s.scheduleFD, err = createEventFD(); err != nil {
		_ = closeFD(s.shutdownFD)
		_ = closeFD(s.timerFD)
		_ = backend.close()
		return nil, err
	}

	for _, fd := range [...]int{s.shutdownFD, s.timerFD, s.scheduleFD} {
		if err := backend.registerFD(fd, OpRead); err != nil {
			_ = s.closeFDs()
			return nil, err
		}
	}

	s.container = coro.NewTaskContainer(s, cfg.containerOpts...)

	if cfg.spawnReactor {
		s.reactorDone = make(chan struct{})
		go s.runReactor()
	}
	return s, nil
}

func (s *IOScheduler) closeFDs() error {
	_ = s.backend.close()
	_ = closeFD(s.shutdownFD)
	_ = closeFD(s.timerFD)
	_ = closeFD(s.scheduleFD)
	return nil
}

// --- coro.Executor implementation -----------------------------------------

// Schedule suspends the caller until the reactor resumes it — via the
// attached ThreadPool when ExecutionThreadPool is selected, or inline on
// the reactor goroutine otherwise.
func (s *IOScheduler) Schedule(ctx context.Context) error {
	if s.shutdownRequested.Load() {
		return ErrShutdown
	}
	if s.cfg.strategy == ExecutionThreadPool && s.pool != nil {
		return s.pool.Schedule(ctx)
	}
	done := make(chan struct{})
	s.pushInline(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Yield re-schedules the calling unit of work, exactly like Schedule.
func (s *IOScheduler) Yield(ctx context.Context) error {
	return s.Schedule(ctx)
}

// Resume enqueues a bare resumption handle for dispatch on the next reactor
// wake (or immediately onto the pool, under ExecutionThreadPool).
func (s *IOScheduler) Resume(h coro.ResumeHandle) {
	if s.cfg.strategy == ExecutionThreadPool && s.pool != nil {
		s.pool.Resume(h)
		return
	}
	s.pushInline(h)
}

func (s *IOScheduler) pushInline(h func()) {
	s.inlineMu.Lock()
	s.inline = append(s.inline, h)
	s.inlineMu.Unlock()
	s.size.Add(1)
	s.signalSchedule()
}

func (s *IOScheduler) signalSchedule() {
	if s.scheduleTriggered.CompareAndSwap(false, true) {
		_ = signalEventFD(s.scheduleFD)
	}
}

func (s *IOScheduler) drainInline() []func() {
	s.inlineMu.Lock()
	batch := s.inline
	s.inline = nil
	s.inlineMu.Unlock()
	return batch
}

// --- task container -------------------------------------------------------

// Spawn starts t as a detached, fire-and-forget computation owned by the
// scheduler's TaskContainer. It is the Go name for the original library's
// overloaded spawn()/schedule(task) entry point — kept distinct from the
// Executor-capability Schedule(ctx) above, since Go cannot overload methods
// by parameter type the way the original header does.
func (s *IOScheduler) Spawn(ctx context.Context, t coro.Awaitable[any]) error {
	if s.shutdownRequested.Load() {
		return ErrShutdown
	}
	return s.container.Start(ctx, t)
}

// --- polling ---------------------------------------------------------------

// Poll waits for fd to satisfy op, or for timeout to elapse (timeout < 0
// means wait indefinitely). It resumes with StatusEvent the instant fd
// becomes ready, or StatusTimeout once the deadline passes — never both,
// per the processed-flag race contract.
func (s *IOScheduler) Poll(ctx context.Context, fd int, op PollOp, timeout time.Duration) (PollStatus, error) {
	if fd < 0 {
		return StatusError, ErrInvalidFD
	}
	if s.shutdownRequested.Load() {
		return StatusError, ErrShutdown
	}

	pi := &pollInfo{fd: fd, op: op, heapIndex: -1, done: make(chan struct{})}
	pi.resume = func() { close(pi.done) }

	s.mu.Lock()
	s.fdWaiters[fd] = pi
	if timeout >= 0 {
		pi.deadline = time.Now().Add(timeout)
		pi.hasTimeout = true
		heap.Push(&s.timers, pi)
		s.updateTimeoutLocked()
	}
	s.mu.Unlock()
	s.size.Add(1)

	if err := s.backend.registerFD(fd, op); err != nil {
		s.mu.Lock()
		s.cancelLocked(pi)
		s.mu.Unlock()
		s.size.Add(-1)
		return StatusError, err
	}

	select {
	case <-pi.done:
		if pi.err != nil {
			return pi.status, pi.err
		}
		return pi.status, nil
	case <-ctx.Done():
		if pi.processed.CompareAndSwap(false, true) {
			s.mu.Lock()
			s.cancelLocked(pi)
			s.mu.Unlock()
			s.size.Add(-1)
			return StatusError, ctx.Err()
		}
		<-pi.done
		return pi.status, pi.err
	}
}

// cancelLocked removes pi's fd registration and heap entry. Caller holds
// s.mu (or pi has not yet been published to either structure).
func (s *IOScheduler) cancelLocked(pi *pollInfo) {
	if pi.fd >= 0 {
		delete(s.fdWaiters, pi.fd)
		_ = s.backend.unregisterFD(pi.fd)
	}
	if pi.heapIndex >= 0 {
		heap.Remove(&s.timers, pi.heapIndex)
	}
}

// YieldFor suspends the caller for d, independent of any fd.
func (s *IOScheduler) YieldFor(ctx context.Context, d time.Duration) error {
	return s.yieldUntil(ctx, time.Now().Add(d))
}

// YieldUntil suspends the caller until t.
func (s *IOScheduler) YieldUntil(ctx context.Context, t time.Time) error {
	return s.yieldUntil(ctx, t)
}

func (s *IOScheduler) yieldUntil(ctx context.Context, deadline time.Time) error {
	if s.shutdownRequested.Load() {
		return ErrShutdown
	}
	pi := &pollInfo{fd: -1, heapIndex: -1, deadline: deadline, hasTimeout: true, done: make(chan struct{})}
	pi.resume = func() { close(pi.done) }

	s.mu.Lock()
	heap.Push(&s.timers, pi)
	s.updateTimeoutLocked()
	s.mu.Unlock()
	s.size.Add(1)

	select {
	case <-pi.done:
		return nil
	case <-ctx.Done():
		if pi.processed.CompareAndSwap(false, true) {
			s.mu.Lock()
			s.cancelLocked(pi)
			s.mu.Unlock()
			s.size.Add(-1)
			return ctx.Err()
		}
		<-pi.done
		return nil
	}
}

// Timer is a handle returned by ScheduleAfter/ScheduleAt, letting the
// caller cancel a not-yet-fired fire-and-forget resumption.
type Timer struct {
	s  *IOScheduler
	pi *pollInfo
}

// Stop cancels the timer; it reports false if the timer already fired (or
// is in the process of firing).
func (t *Timer) Stop() bool {
	if !t.pi.processed.CompareAndSwap(false, true) {
		return false
	}
	t.s.mu.Lock()
	t.s.cancelLocked(t.pi)
	t.s.mu.Unlock()
	t.s.size.Add(-1)
	return true
}

// ScheduleAfter arranges for resume to be dispatched (via the pool, under
// ExecutionThreadPool, or inline on the reactor goroutine otherwise) once d
// has elapsed, without blocking the calling goroutine.
func (s *IOScheduler) ScheduleAfter(d time.Duration, resume coro.ResumeHandle) *Timer {
	return s.scheduleAt(time.Now().Add(d), resume)
}

// ScheduleAt is ScheduleAfter expressed as an absolute deadline.
func (s *IOScheduler) ScheduleAt(t time.Time, resume coro.ResumeHandle) *Timer {
	return s.scheduleAt(t, resume)
}

func (s *IOScheduler) scheduleAt(deadline time.Time, resume coro.ResumeHandle) *Timer {
	pi := &pollInfo{fd: -1, heapIndex: -1, deadline: deadline, hasTimeout: true, resume: resume}
	s.mu.Lock()
	heap.Push(&s.timers, pi)
	s.updateTimeoutLocked()
	s.mu.Unlock()
	s.size.Add(1)
	return &Timer{s: s, pi: pi}
}

// updateTimeoutLocked arms the timer fd to the earliest pending deadline,
// or disarms it if no timer is pending. Caller holds s.mu.
func (s *IOScheduler) updateTimeoutLocked() {
	if len(s.timers) == 0 {
		_ = armTimerFD(s.timerFD, 0)
		return
	}
	d := time.Until(s.timers[0].deadline)
	if d <= 0 {
		// A zero duration would disarm the timer fd; an already-due
		// deadline must still fire, so arm for the shortest interval.
		d = time.Nanosecond
	}
	_ = armTimerFD(s.timerFD, d)
}

// --- reactor loop -----------------------------------------------------------

func (s *IOScheduler) runReactor() {
	defer close(s.reactorDone)
	for {
		if s.processEventsExecute(-1) {
			return
		}
	}
}

// processEventsExecute performs one reactor iteration (epoll_wait/kevent/
// WSAPoll, dispatch, batch-resume) and reports whether
// shutdown was observed.
func (s *IOScheduler) processEventsExecute(timeoutMs int) bool {
	events, err := s.backend.wait(timeoutMs)
	if err != nil {
		return s.shutdownRequested.Load()
	}

	var batch []func()
	for _, ev := range events {
		fd := int(ev.fd)
		switch fd {
		case s.shutdownFD:
			_ = drainEventFD(s.shutdownFD)
			s.shutdownRequested.Store(true)
		case s.timerFD:
			_ = drainTimerFD(s.timerFD)
			batch = append(batch, s.processTimeoutExecute()...)
		case s.scheduleFD:
			_ = drainEventFD(s.scheduleFD)
			s.scheduleTriggered.Store(false)
			batch = append(batch, s.drainInline()...)
		default:
			if r := s.processEventExecute(fd, ev); r != nil {
				batch = append(batch, r)
			}
		}
	}

	s.dispatchBatch(batch)
	return s.shutdownRequested.Load()
}

func (s *IOScheduler) processEventExecute(fd int, ev readyEvent) func() {
	s.mu.Lock()
	pi, ok := s.fdWaiters[fd]
	if ok {
		delete(s.fdWaiters, fd)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if !pi.processed.CompareAndSwap(false, true) {
		return nil
	}

	if pi.heapIndex >= 0 {
		s.mu.Lock()
		if pi.heapIndex >= 0 {
			heap.Remove(&s.timers, pi.heapIndex)
		}
		s.mu.Unlock()
	}
	_ = s.backend.unregisterFD(fd)

	switch {
	case ev.errored:
		pi.status = StatusError
		pi.err = &PollError{Status: StatusError}
	case ev.closed:
		pi.status = StatusClosed
		pi.err = &PollError{Status: StatusClosed}
	default:
		pi.status = StatusEvent
	}
	return pi.resume
}

// processTimeoutExecute walks the timer heap popping every entry whose
// deadline has passed, flips each entry's processed flag (the losing side
// of any readiness/timeout race simply no-ops here), and returns the
// resumption handles for the winners. Caller (the reactor goroutine) is
// not holding s.mu.
func (s *IOScheduler) processTimeoutExecute() []func() {
	now := time.Now()
	var resumes []func()

	s.mu.Lock()
	for len(s.timers) > 0 && !s.timers[0].deadline.After(now) {
		pi := heap.Pop(&s.timers).(*pollInfo)
		if !pi.processed.CompareAndSwap(false, true) {
			continue
		}
		if pi.fd >= 0 {
			delete(s.fdWaiters, pi.fd)
			_ = s.backend.unregisterFD(pi.fd)
		}
		pi.status = StatusTimeout
		resumes = append(resumes, pi.resume)
	}
	s.updateTimeoutLocked()
	s.mu.Unlock()

	return resumes
}

func (s *IOScheduler) dispatchBatch(batch []func()) {
	if len(batch) == 0 {
		return
	}
	if s.metrics != nil {
		s.metrics.Queue.UpdateScheduler(len(batch))
	}
	for _, r := range batch {
		if r == nil {
			continue
		}
		s.size.Add(-1)
		if s.cfg.strategy == ExecutionThreadPool && s.pool != nil {
			s.pool.Resume(r)
		} else {
			r()
		}
	}
}

// ProcessEvents drives exactly one reactor iteration from an external
// (manual-mode, WithSpawnReactor(false)) thread and returns the current
// Size(). timeout bounds how long the underlying wait call may block;
// negative means block indefinitely.
func (s *IOScheduler) ProcessEvents(timeout time.Duration) (int, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	s.processEventsExecute(ms)
	return s.Size(), nil
}

// Size returns the current in-flight count (poll waits + pending timers +
// queued inline continuations), plus the attached pool's size if any.
func (s *IOScheduler) Size() int {
	n := int(s.size.Load())
	if s.pool != nil {
		n += s.pool.Size()
	}
	return n
}

// Metrics returns the scheduler's metrics, or nil if WithMetrics was not
// enabled at construction.
func (s *IOScheduler) Metrics() *coro.Metrics {
	return s.metrics
}

// Shutdown is idempotent: it drains the owning TaskContainer, then signals
// the shutdown eventfd, joins the reactor goroutine (if spawned), and only
// then closes every fd — never while a waiter still references one of them
// through the reactor's readiness registration.
func (s *IOScheduler) Shutdown(ctx context.Context) error {
	// Drain while the reactor is still servicing Schedule/Yield/Resume, so
	// already-detached tasks get to finish; only once the container is
	// empty do we tell the reactor to stop and refuse further scheduling.
	if err := s.container.GarbageCollectAndYieldUntilEmpty(ctx); err != nil {
		return err
	}

	s.shutdownOnce.Do(func() {
		s.shutdownRequested.Store(true)
		_ = signalEventFD(s.shutdownFD)
	})

	if s.reactorDone != nil {
		select {
		case <-s.reactorDone:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if s.closed.CompareAndSwap(false, true) {
		return s.closeFDs()
	}
	return nil
}
