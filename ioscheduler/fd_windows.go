//go:build windows

package ioscheduler

import (
	"golang.org/x/sys/windows"
)

// closeFD closes a socket handle on Windows.
func closeFD(fd int) error {
	if fd < 0 {
		return nil
	}
	return windows.Closesocket(windows.Handle(fd))
}
