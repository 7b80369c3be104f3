// Package ioscheduler provides the reactor that multiplexes timers and
// file-descriptor readiness onto a single thread, optionally dispatching
// resumed computations onto a coro.ThreadPool.
//
// An IOScheduler owns three control descriptors (shutdown, timer,
// schedule-wakeup) registered with the platform's native readiness
// primitive (epoll on Linux, kqueue on Darwin, WSAPoll on Windows) and a
// min-heap of pending timer deadlines. A single reactor goroutine — spawned
// at construction, or driven manually via ProcessEvents — blocks on that
// primitive, wakes on timer expiry, schedule-notify, or fd readiness, and
// resumes the associated waiter.
//
// IOScheduler also owns a *coro.TaskContainer, so detached computations
// started via Spawn are drained (GarbageCollectAndYieldUntilEmpty) before
// the scheduler's file descriptors are closed at Shutdown.
package ioscheduler
