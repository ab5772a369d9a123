//go:build !unix

package ncsock

import "net"

// SetBuffers falls back to the stdlib's own buffer-size setters on
// non-unix platforms, where SO_RCVBUF/SO_SNDBUF tuning via syscall isn't
// available through golang.org/x/sys/unix.
func SetBuffers(conn *net.UDPConn, rcvBuf, sndBuf int) error {
	if rcvBuf > 0 {
		if err := conn.SetReadBuffer(rcvBuf); err != nil {
			return err
		}
	}
	if sndBuf > 0 {
		if err := conn.SetWriteBuffer(sndBuf); err != nil {
			return err
		}
	}
	return nil
}
