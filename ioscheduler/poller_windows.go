//go:build windows

package ioscheduler

import (
	"golang.org/x/sys/windows"
)

// reactorBackend polls Windows SOCKET handles via WSAPoll, the closest
// level-triggered analog to epoll/kqueue the Winsock API exposes (IOCP's
// completion-port model requires each operation to be posted with an
// OVERLAPPED up front, which does not fit this scheduler's "register
// readiness interest, wait for anything" protocol). Only socket handles
// can be polled this way; the Linux/epoll backend remains this module's
// primary target, kept carried here for portability parity.
type reactorBackend struct {
	fds      map[int]PollOp
	pollfds  []windows.WSAPollFD
	maxEvent int
}

func newReactorBackend(maxEvents int) (*reactorBackend, error) {
	return &reactorBackend{
		fds:      make(map[int]PollOp),
		maxEvent: maxEvents,
	}, nil
}

func pollOpToWSAEvents(op PollOp) int16 {
	switch op {
	case OpWrite:
		return windows.POLLOUT
	case OpReadWrite:
		return windows.POLLIN | windows.POLLOUT
	default:
		return windows.POLLIN
	}
}

func (b *reactorBackend) registerFD(fd int, op PollOp) error {
	b.fds[fd] = op
	return nil
}

func (b *reactorBackend) unregisterFD(fd int) error {
	delete(b.fds, fd)
	return nil
}

func (b *reactorBackend) wait(timeoutMs int) ([]readyEvent, error) {
	b.pollfds = b.pollfds[:0]
	for fd, op := range b.fds {
		b.pollfds = append(b.pollfds, windows.WSAPollFD{
			Fd:     uintptr(fd),
			Events: pollOpToWSAEvents(op),
		})
	}
	if len(b.pollfds) == 0 {
		// WSAPoll with zero descriptors still honours the timeout, giving
		// the reactor a chance to re-check shutdown/new registrations.
		if timeoutMs < 0 {
			timeoutMs = 1000
		}
	}
	n, err := windows.WSAPoll(b.pollfds, int32(timeoutMs))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]readyEvent, 0, n)
	for _, pfd := range b.pollfds {
		if pfd.REvents == 0 {
			continue
		}
		out = append(out, readyEvent{
			fd:       int32(pfd.Fd),
			readable: pfd.REvents&windows.POLLIN != 0,
			writable: pfd.REvents&windows.POLLOUT != 0,
			errored:  pfd.REvents&windows.POLLERR != 0,
			closed:   pfd.REvents&windows.POLLHUP != 0,
		})
	}
	return out, nil
}

func (b *reactorBackend) close() error {
	return nil
}
