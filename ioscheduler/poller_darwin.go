//go:build darwin

package ioscheduler

import (
	"golang.org/x/sys/unix"
)

// reactorBackend wraps a kqueue instance, carried for portability parity
// with the Linux epoll backend (this module's primary reactor target).
type reactorBackend struct {
	kq       int
	eventBuf []unix.Kevent_t
}

func newReactorBackend(maxEvents int) (*reactorBackend, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	return &reactorBackend{
		kq:       kq,
		eventBuf: make([]unix.Kevent_t, maxEvents),
	}, nil
}

func (b *reactorBackend) registerFD(fd int, op PollOp) error {
	var kevs []unix.Kevent_t
	if op == OpRead || op == OpReadWrite {
		kevs = append(kevs, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_ENABLE})
	}
	if op == OpWrite || op == OpReadWrite {
		kevs = append(kevs, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD | unix.EV_ENABLE})
	}
	_, err := unix.Kevent(b.kq, kevs, nil, nil)
	return err
}

func (b *reactorBackend) unregisterFD(fd int) error {
	kevs := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	// Either filter may not have been registered; kqueue reports ENOENT for
	// that half, which we deliberately ignore (deleting a filter that was
	// never added is not a failure from the caller's point of view).
	_, _ = unix.Kevent(b.kq, kevs, nil, nil)
	return nil
}

func (b *reactorBackend) wait(timeoutMs int) ([]readyEvent, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64(timeoutMs%1000) * 1000000,
		}
	}
	n, err := unix.Kevent(b.kq, nil, b.eventBuf, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	out := make([]readyEvent, n)
	for i := 0; i < n; i++ {
		kev := b.eventBuf[i]
		out[i] = readyEvent{
			fd:       int32(kev.Ident),
			readable: kev.Filter == unix.EVFILT_READ,
			writable: kev.Filter == unix.EVFILT_WRITE,
			errored:  kev.Flags&unix.EV_ERROR != 0,
			closed:   kev.Flags&unix.EV_EOF != 0,
		}
	}
	return out, nil
}

func (b *reactorBackend) close() error {
	return unix.Close(b.kq)
}
