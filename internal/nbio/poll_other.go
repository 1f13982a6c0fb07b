//go:build !linux && !darwin

package nbio

import (
	"net"
	"time"
)

// WaitWritable is a no-op passthrough on platforms without a unix poll
// syscall available; Nonblock degrades to ordinary blocking writes there.
func WaitWritable(conn net.Conn, timeout time.Duration) error {
	return nil
}
