//go:build unix

// Package ncsock tunes OS socket buffer sizes for the game transport's UDP
// listener, since the stdlib doesn't expose SO_RCVBUF/SO_SNDBUF tuning
// directly.
package ncsock

import (
	"net"

	"golang.org/x/sys/unix"
)

// SetBuffers sets the kernel receive and send buffer sizes on conn's
// underlying file descriptor. A zero size leaves that buffer unchanged.
func SetBuffers(conn *net.UDPConn, rcvBuf, sndBuf int) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	var setErr error
	if err := raw.Control(func(fd uintptr) {
		if rcvBuf > 0 {
			if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, rcvBuf); err != nil {
				setErr = err
				return
			}
		}
		if sndBuf > 0 {
			if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, sndBuf); err != nil {
				setErr = err
				return
			}
		}
	}); err != nil {
		return err
	}
	return setErr
}
