//go:build linux || darwin

// Package nbio wires the Nonblock request option to a golang.org/x/sys/unix
// poll-for-writability helper, adapted from the teacher engine's
// utils/nettools poll strategy (net_poll.go's unix.Poll usage over a raw fd
// obtained through syscall.RawConn.Control).
package nbio

import (
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// WaitWritable blocks, up to timeout, until conn's underlying file
// descriptor reports POLLOUT. It is a no-op success (nil) for connections
// that don't expose a syscall.RawConn (e.g. in-memory pipes used by tests).
func WaitWritable(conn net.Conn, timeout time.Duration) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return nil
	}

	var pollErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		deadline := time.Now().Add(timeout)
		for {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				pollErr = errTimeout{}
				return
			}
			step := remaining
			if step > 50*time.Millisecond {
				step = 50 * time.Millisecond
			}
			n, err := unix.Poll(pfd, int(step.Milliseconds()))
			if err != nil {
				if err == unix.EINTR {
					continue
				}
				pollErr = err
				return
			}
			if n > 0 && pfd[0].Revents&unix.POLLOUT != 0 {
				return
			}
		}
	})
	if ctrlErr != nil {
		return nil
	}
	return pollErr
}

type errTimeout struct{}

func (errTimeout) Error() string { return "nbio: poll for writability timed out" }
func (errTimeout) Timeout() bool { return true }
