//go:build linux

package ioscheduler

import (
	"time"

	"golang.org/x/sys/unix"
)

// createEventFD creates a non-blocking eventfd used for the shutdown and
// schedule-wakeup control descriptors.
func createEventFD() (int, error) {
	return unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
}

// signalEventFD increments fd's counter by one, waking anything blocked in
// epoll_wait on it.
func signalEventFD(fd int) error {
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(fd, buf[:])
	if err == unix.EAGAIN {
		// Counter already saturated by a pending, undrained signal — the
		// reader still observes at least one notification.
		return nil
	}
	return err
}

// drainEventFD reads (and discards) fd's counter, clearing its readability.
func drainEventFD(fd int) error {
	var buf [8]byte
	for {
		_, err := unix.Read(fd, buf[:])
		if err != nil {
			if err == unix.EAGAIN {
				return nil
			}
			return err
		}
	}
}

// createTimerFD creates a non-blocking timerfd on CLOCK_MONOTONIC, used as
// the scheduler's single timer control descriptor.
func createTimerFD() (int, error) {
	return unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
}

// armTimerFD arms fd to fire once after d elapses; d <= 0 disarms it
// (TimerfdSettime with a zero Value stops delivery without closing fd).
func armTimerFD(fd int, d time.Duration) error {
	if d < 0 {
		d = 0
	}
	spec := unix.ItimerSpec{Value: unix.NsecToTimespec(int64(d))}
	return unix.TimerfdSettime(fd, 0, &spec, nil)
}

// drainTimerFD reads (and discards) fd's expiration counter.
func drainTimerFD(fd int) error {
	var buf [8]byte
	_, err := unix.Read(fd, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}
