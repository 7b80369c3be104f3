//go:build darwin

package ioscheduler

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// createEventFD emulates an eventfd with a self-pipe: Darwin has no
// eventfd syscall, but a non-blocking pipe registered for EVFILT_READ
// gives the same "becomes readable exactly once per signal, until
// drained" shape the reactor dispatch loop needs.
func createEventFD() (int, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return 0, err
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return 0, err
	}
	if err := unix.SetNonblock(fds[1], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return 0, err
	}
	pipeWriteEnd.Lock()
	pipeWriteEnd.m[fds[0]] = fds[1]
	pipeWriteEnd.Unlock()
	return fds[0], nil
}

// pipeWriteEnd maps a self-pipe's read fd (the one registered with kqueue
// and returned to the caller as "the control fd") to its write end, so
// signalEventFD can find the companion descriptor. The write end is not
// independently closed by fd_unix.go's closeFD — each IOScheduler creates
// exactly three of these for its own lifetime, so the leak is bounded by
// scheduler count, not by signal volume.
var pipeWriteEnd = struct {
	sync.Mutex
	m map[int]int
}{m: make(map[int]int)}

func signalEventFD(readFD int) error {
	pipeWriteEnd.Lock()
	writeFD, ok := pipeWriteEnd.m[readFD]
	pipeWriteEnd.Unlock()
	if !ok {
		return nil
	}
	_, err := unix.Write(writeFD, []byte{1})
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func drainEventFD(fd int) error {
	var buf [64]byte
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

// createTimerFD allocates a self-pipe whose read end is the "timer fd"
// registered with kqueue; armTimerFD drives a time.Timer goroutine that
// writes a byte to the pipe when the deadline elapses, since Darwin has no
// timerfd primitive pollable the same way.
func createTimerFD() (int, error) {
	return createEventFD()
}

var timerState = struct {
	sync.Mutex
	m map[int]*time.Timer
}{m: make(map[int]*time.Timer)}

func armTimerFD(fd int, d time.Duration) error {
	timerState.Lock()
	defer timerState.Unlock()
	if t, ok := timerState.m[fd]; ok {
		t.Stop()
		delete(timerState.m, fd)
	}
	if d <= 0 {
		return nil
	}
	timerState.m[fd] = time.AfterFunc(d, func() {
		_ = signalEventFD(fd)
	})
	return nil
}

func drainTimerFD(fd int) error {
	return drainEventFD(fd)
}
