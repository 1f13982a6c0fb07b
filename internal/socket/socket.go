// Package socket implements the connection-owned socket cache (§4.2, §9) and
// the default plain/TLS dialer (§10.2), grounded on the teacher engine's
// netpool/pool.go idle-list idiom and internal/dialer/{dial,proxy,dns}.go.
package socket

import (
	"context"
	"net"
	"time"

	"github.com/go-excon/excon/internal/model"
	"github.com/go-excon/excon/internal/nbio"
)

// Socket is the external interface (§6) the wire layer consumes. It is
// deliberately small: byte-level transport (plain and TLS) is out of scope
// for the core, which only depends on this contract.
type Socket interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	ReadLine() (string, error)
	RemoteAddr() string
	SetDatum(d *model.Datum)
	Close() error
	SetDeadlines(connect, read, write time.Duration)
}

// Dialer constructs a fresh Socket for the given target. It is the
// out-of-core collaborator that actually opens plain or TLS connections;
// the core only calls it through Cache.
type Dialer func(ctx context.Context, d *model.Datum) (Socket, error)

// entry is one cached slot: at most one goroutine may hold it out at a time.
type entry struct {
	busy bool
	sock Socket
}

// Cache is a per-Connection, mutex-guarded socket cache keyed by host:port
// (§4.2). It replaces the distilled spec's "thread-local" framing with an
// explicit pool of one reusable slot per key plus overflow to uncached
// sockets under concurrent contention (§9), since Go has no supported
// goroutine-local storage.
type Cache struct {
	mu      chan struct{} // binary semaphore; buffered chan avoids sync import churn below
	entries map[string]*entry
	dial    Dialer
}

// NewCache builds an empty cache that dials sockets with dial.
func NewCache(dial Dialer) *Cache {
	c := &Cache{
		mu:      make(chan struct{}, 1),
		entries: make(map[string]*entry),
		dial:    dial,
	}
	c.mu <- struct{}{}
	return c
}

func (c *Cache) lock()   { <-c.mu }
func (c *Cache) unlock() { c.mu <- struct{}{} }

// Checkout returns a socket for key, reusing the cached one if idle, dialing
// a fresh cached one if absent, or dialing an uncached overflow socket if the
// cached slot is currently checked out by another goroutine. The returned
// release function must be called exactly once when the caller is done: ok
// indicates whether the socket should be considered still reusable.
func (c *Cache) Checkout(ctx context.Context, key string, d *model.Datum) (sock Socket, release func(ok bool), err error) {
	c.lock()
	e, exists := c.entries[key]
	switch {
	case exists && !e.busy:
		e.busy = true
		c.unlock()
		return e.sock, func(ok bool) { c.checkin(key, ok) }, nil
	case exists && e.busy:
		c.unlock()
		s, err := c.dial(ctx, d)
		if err != nil {
			return nil, func(bool) {}, err
		}
		return s, func(bool) { s.Close() }, nil
	default:
		e = &entry{busy: true}
		c.entries[key] = e
		c.unlock()
		s, err := c.dial(ctx, d)
		if err != nil {
			c.lock()
			delete(c.entries, key)
			c.unlock()
			return nil, func(bool) {}, err
		}
		e.sock = s
		return s, func(ok bool) { c.checkin(key, ok) }, nil
	}
}

func (c *Cache) checkin(key string, reusable bool) {
	c.lock()
	defer c.unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	if !reusable {
		e.sock.Close()
		delete(c.entries, key)
		return
	}
	e.busy = false
}

// Reset evicts and closes the cached socket for key, if any. It is a no-op
// (and therefore idempotent, §8) when no socket is cached.
func (c *Cache) Reset(key string) {
	c.lock()
	defer c.unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	if e.sock != nil {
		e.sock.Close()
	}
	delete(c.entries, key)
}

// ResetAll evicts and closes every cached socket.
func (c *Cache) ResetAll() {
	c.lock()
	defer c.unlock()
	for key, e := range c.entries {
		if e.sock != nil {
			e.sock.Close()
		}
		delete(c.entries, key)
	}
}

// netSocket adapts a net.Conn (plain or TLS) to the Socket interface.
// newNetSocket wraps conn as a Socket, buffering reads.
func newNetSocket(conn net.Conn) *netSocket {
	return &netSocket{conn: conn, br: newLineReader(conn)}
}

type netSocket struct {
	conn           net.Conn
	br             lineReader
	datum          *model.Datum
	connectTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
}

func (s *netSocket) Write(p []byte) (int, error) {
	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if s.datum != nil && s.datum.Nonblock {
		timeout := s.writeTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		if err := nbio.WaitWritable(s.conn, timeout); err != nil {
			return 0, err
		}
	}
	return s.conn.Write(p)
}

func (s *netSocket) Read(p []byte) (int, error) {
	if s.readTimeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}
	return s.br.Read(p)
}

func (s *netSocket) ReadLine() (string, error) {
	if s.readTimeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}
	return s.br.ReadLine()
}

func (s *netSocket) RemoteAddr() string { return s.conn.RemoteAddr().String() }

func (s *netSocket) SetDatum(d *model.Datum) { s.datum = d }

func (s *netSocket) Close() error { return s.conn.Close() }

func (s *netSocket) SetDeadlines(connect, read, write time.Duration) {
	s.connectTimeout, s.readTimeout, s.writeTimeout = connect, read, write
}
