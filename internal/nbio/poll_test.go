package nbio_test

import (
	"net"
	"testing"
	"time"

	"github.com/go-excon/excon/internal/nbio"
)

func TestWaitWritableOnOpenConnSucceeds(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	// net.Pipe endpoints aren't backed by a file descriptor, so WaitWritable
	// takes its syscall.Conn no-op fallback path and returns nil immediately.
	if err := nbio.WaitWritable(client, 50*time.Millisecond); err != nil {
		t.Errorf("WaitWritable() = %v, want nil", err)
	}
}

func TestWaitWritableOnTCPLoopback(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("no loopback TCP available: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()
	server := <-accepted
	defer server.Close()

	if err := nbio.WaitWritable(client, time.Second); err != nil {
		t.Errorf("WaitWritable() on a healthy TCP socket = %v, want nil", err)
	}
}
