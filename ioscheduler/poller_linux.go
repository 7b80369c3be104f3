//go:build linux

package ioscheduler

import (
	"golang.org/x/sys/unix"
)

// reactorBackend wraps an epoll instance. Registration is one-shot per
// Poll call: a waiter's fd is added on Poll and removed the instant its
// pollInfo is processed (readiness or timeout), so at most one scheduling
// structure ever references a waiter at a time.
type reactorBackend struct {
	epfd     int
	eventBuf []unix.EpollEvent
}

func newReactorBackend(maxEvents int) (*reactorBackend, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &reactorBackend{
		epfd:     epfd,
		eventBuf: make([]unix.EpollEvent, maxEvents),
	}, nil
}

func pollOpToEpoll(op PollOp) uint32 {
	switch op {
	case OpWrite:
		return unix.EPOLLOUT
	case OpReadWrite:
		return unix.EPOLLIN | unix.EPOLLOUT
	default:
		return unix.EPOLLIN
	}
}

func (b *reactorBackend) registerFD(fd int, op PollOp) error {
	ev := &unix.EpollEvent{
		Events: pollOpToEpoll(op),
		Fd:     int32(fd),
	}
	return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, ev)
}

func (b *reactorBackend) unregisterFD(fd int) error {
	return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// wait blocks up to timeoutMs (negative means indefinitely) and returns the
// normalized events observed. The returned slice is newly allocated on each
// call and does not alias the backend's own event buffer.
func (b *reactorBackend) wait(timeoutMs int) ([]readyEvent, error) {
	n, err := unix.EpollWait(b.epfd, b.eventBuf, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	out := make([]readyEvent, n)
	for i := 0; i < n; i++ {
		ev := b.eventBuf[i]
		out[i] = readyEvent{
			fd:       ev.Fd,
			readable: ev.Events&unix.EPOLLIN != 0,
			writable: ev.Events&unix.EPOLLOUT != 0,
			errored:  ev.Events&unix.EPOLLERR != 0,
			closed:   ev.Events&unix.EPOLLHUP != 0,
		}
	}
	return out, nil
}

func (b *reactorBackend) close() error {
	return unix.Close(b.epfd)
}
