//go:build windows

package ioscheduler

import (
	"net"
	"sync"
	"time"

	"golang.org/x/sys/windows"
)

// socketpair returns a connected pair of loopback TCP sockets, standing in
// for the self-pipe/eventfd primitives available on Unix: Windows has no
// anonymous pipe that WSAPoll can watch, but a loopback socket pair behaves
// the same way for this module's purposes (one end written, the other
// becomes readable).
func socketpair() (read, write windows.Handle, err error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, 0, err
	}
	defer ln.Close()

	acceptCh := make(chan net.Conn, 1)
	acceptErrCh := make(chan error, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			acceptErrCh <- err
			return
		}
		acceptCh <- c
	}()

	writeConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		return 0, 0, err
	}

	var readConn net.Conn
	select {
	case readConn = <-acceptCh:
	case err = <-acceptErrCh:
		_ = writeConn.Close()
		return 0, 0, err
	}

	readFD, err := sockHandle(readConn.(*net.TCPConn))
	if err != nil {
		return 0, 0, err
	}
	writeFD, err := sockHandle(writeConn.(*net.TCPConn))
	if err != nil {
		return 0, 0, err
	}
	return windows.Handle(readFD), windows.Handle(writeFD), nil
}

func sockHandle(c *net.TCPConn) (uintptr, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return 0, err
	}
	var h uintptr
	ctrlErr := raw.Control(func(fd uintptr) {
		h = fd
	})
	if ctrlErr != nil {
		return 0, ctrlErr
	}
	return h, nil
}

var controlWriteEnd = struct {
	sync.Mutex
	m map[int]windows.Handle
}{m: make(map[int]windows.Handle)}

// createEventFD allocates a loopback socketpair and registers its write end
// so signalEventFD/drainEventFD can drive it the same way the Unix
// eventfd/self-pipe backends do.
func createEventFD() (int, error) {
	read, write, err := socketpair()
	if err != nil {
		return 0, err
	}
	controlWriteEnd.Lock()
	controlWriteEnd.m[int(read)] = write
	controlWriteEnd.Unlock()
	return int(read), nil
}

func signalEventFD(readFD int) error {
	controlWriteEnd.Lock()
	writeFD, ok := controlWriteEnd.m[readFD]
	controlWriteEnd.Unlock()
	if !ok {
		return nil
	}
	_, err := windows.Write(writeFD, []byte{1})
	if err == windows.WSAEWOULDBLOCK {
		return nil
	}
	return err
}

func drainEventFD(fd int) error {
	var buf [64]byte
	for {
		_, err := windows.Read(windows.Handle(fd), buf[:])
		if err != nil {
			if err == windows.WSAEWOULDBLOCK {
				return nil
			}
			return err
		}
	}
}

// createTimerFD reuses the same loopback socketpair shape as createEventFD;
// armTimerFD drives a time.Timer goroutine that writes a byte on expiry,
// mirroring the Darwin emulation since Windows has no timerfd equivalent
// pollable via WSAPoll.
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
