package excon

import (
	"context"
	"crypto/tls"
	"errors"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-excon/excon/internal/middleware"
	"github.com/go-excon/excon/internal/model"
	"github.com/go-excon/excon/internal/retry"
	"github.com/go-excon/excon/internal/socket"
	"github.com/go-excon/excon/internal/wire"
)

// Connection is bound to a destination (scheme, host, port) and issues
// requests over a reusable, per-connection socket cache (§3). The zero value
// is not usable; construct with New.
type Connection struct {
	mu       sync.Mutex // guards defaults, which Use mutates; Request only reads it under lock and then works on its own copy
	defaults *model.Datum

	sockets *socket.Cache
	key     string
}

// New builds a Connection from a base URL plus Options overrides (§3, §6).
// Basic auth carried in the URL's userinfo is applied unless Options.Header
// already sets Authorization (§6).
func New(baseURL string, opts *Options) (*Connection, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, &retry.ArgumentError{Key: "host"}
	}

	d := opts.toDatum()
	if d.Scheme == "" {
		d.Scheme = u.Scheme
	}
	if d.Host == "" {
		d.Host = u.Hostname()
	}
	if d.Port == "" {
		d.Port = u.Port()
		if d.Port == "" {
			d.Port = defaultPort(d.Scheme)
		}
	}
	if d.Path == "" {
		d.Path = u.Path
	}
	if !d.HasQuery && u.RawQuery != "" {
		d.HasQuery, d.UseRawQuery, d.QueryStr = true, true, u.RawQuery
	}
	if d.ChunkSize == 0 {
		d.ChunkSize = 32 * 1024
	}
	if d.Instrumentor == nil {
		d.Instrumentor = instrumentorFromEnv()
	}
	if u.User != nil {
		if d.Header.Get("Authorization") == "" {
			user := u.User.Username()
			pass, _ := u.User.Password()
			d.Header.Set("Authorization", basicAuth(user, pass))
		}
	}
	if p := proxyFromEnv(d.Scheme); p != nil {
		d.Proxy = p
	}
	applyProxyHeaders(d)

	conn := &Connection{defaults: d}
	conn.sockets = socket.NewCache(conn.dial)
	conn.key = d.HostPort()
	d.Connection = conn
	return conn, nil
}

func defaultPort(scheme string) string {
	if scheme == "https" {
		return "443"
	}
	return "80"
}

// proxyFromEnv implements §6's environment-variable precedence: HTTPS env
// (if scheme is https) → HTTP env → (handled by the caller) explicit option.
func proxyFromEnv(scheme string) *model.Proxy {
	var raw string
	if scheme == "https" {
		raw = firstNonEmpty(os.Getenv("HTTPS_PROXY"), os.Getenv("https_proxy"))
	}
	if raw == "" {
		raw = firstNonEmpty(os.Getenv("HTTP_PROXY"), os.Getenv("http_proxy"))
	}
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil
	}
	port := u.Port()
	if port == "" {
		port = defaultPort(u.Scheme)
	}
	p := &model.Proxy{Scheme: u.Scheme, Host: u.Hostname(), Port: port}
	if u.User != nil {
		p.User = u.User.Username()
		p.Password, _ = u.User.Password()
	}
	return p
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}

// applyProxyHeaders sets Proxy-Connection and, for an http-scheme proxy with
// credentials, Proxy-Authorization (§6 Proxy).
func applyProxyHeaders(d *model.Datum) {
	if d.Proxy == nil {
		return
	}
	if d.Header.Get("Proxy-Connection") == "" {
		d.Header.Set("Proxy-Connection", "Keep-Alive")
	}
	if d.Proxy.Scheme == "http" && d.Proxy.User != "" {
		d.Header.Set("Proxy-Authorization", basicAuth(d.Proxy.User, d.Proxy.Password))
	}
}

// String renders a printable summary of the Connection's destination and
// default headers, redacting any Authorization value (§6 Inspection) so a
// Connection can be safely logged or included in an error message.
func (c *Connection) String() string {
	c.mu.Lock()
	d := c.defaults
	c.mu.Unlock()

	var b strings.Builder
	b.WriteString("excon.Connection{")
	b.WriteString(d.Scheme)
	b.WriteString("://")
	b.WriteString(d.HostPort())
	for _, f := range d.Header {
		b.WriteString(", ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		if strings.EqualFold(f.Name, "Authorization") {
			b.WriteString("[REDACTED]")
			continue
		}
		b.WriteString(strings.Join(f.Values, ", "))
	}
	b.WriteString("}")
	return b.String()
}

// Use appends middlewares to the Connection's default stack.
func (c *Connection) Use(mws ...Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaults.Stack = append(c.defaults.Stack, mws...)
}

// Reset evicts and closes the cached socket for this Connection (§4.6, §8:
// idempotent).
func (c *Connection) Reset() {
	c.sockets.Reset(c.key)
}

func (c *Connection) dial(ctx context.Context, d *model.Datum) (socket.Socket, error) {
	dialer := &socket.CoreDialer{
		TLSConfig: c.tlsConfig(d),
		Resolve:   &socket.ResolveConfig{Network: d.Family},
	}
	return dialer.Dial(ctx, d)
}

// tlsConfig builds the *tls.Config for an https target from d.TLSConfig and
// d.InsecureSkipVerify (§6 TLSConfig,InsecureSkipVerify). A caller-supplied
// config is cloned before InsecureSkipVerify is applied on top of it, so the
// caller's own config is never mutated.
func (c *Connection) tlsConfig(d *model.Datum) *tls.Config {
	if d.Scheme != "https" {
		return nil
	}
	cfg := &tls.Config{}
	if d.TLSConfig != nil {
		cfg = d.TLSConfig.Clone()
	}
	if d.InsecureSkipVerify {
		cfg.InsecureSkipVerify = true
	}
	return cfg
}

var errNoSocket = errors.New("excon: no socket available")

// wireTerminal implements middleware.Terminal (§4.3): it checks out a
// socket, attaches d to it, and writes the request. The checked-out socket
// is stashed on itself so the caller can drive the read phase afterward.
type wireTerminal struct {
	conn    *Connection
	sock    socket.Socket
	release func(ok bool)
}

func (t *wireTerminal) RequestCall(ctx context.Context, d *model.Datum) error {
	sock, release, err := t.conn.sockets.Checkout(ctx, t.conn.key, d)
	if err != nil {
		return retry.Wrap("connect", err)
	}
	t.sock = sock
	t.release = release
	sock.SetDatum(d)
	sock.SetDeadlines(durationOf(d.ConnectTimeout), durationOf(d.ReadTimeout), durationOf(d.WriteTimeout))
	if err := wire.Write(ctx, sock, d); err != nil {
		return retry.Wrap("write", err)
	}
	return nil
}

func durationOf(ns int64) time.Duration { return time.Duration(ns) }

// Request issues a single request, merging opts on top of the Connection's
// Defaults (§4.6). It blocks until the response has been fully read, whether
// or not opts.Pipeline is set; Requests is the call that writes several
// requests before reading any of their responses.
func (c *Connection) Request(ctx context.Context, opts *Options) (*Response, error) {
	d := c.prepare(opts)
	resp, err := c.requestWithRetry(ctx, d)
	return responseFromModel(resp), err
}

// Call is the loosely-typed call boundary (§6, §8): o.Validate runs first,
// so an unknown key raises an ArgumentError before any socket activity, then
// the known keys are translated onto an Options and dispatched through
// Request. The typed Options form above is preferred; Call
// exists for parity with the "unknown keys raise an argument error" property.
func (c *Connection) Call(ctx context.Context, o Overrides) (*Response, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	opts, err := o.toOptions()
	if err != nil {
		return nil, err
	}
	return c.Request(ctx, opts)
}

func (c *Connection) prepare(opts *Options) *model.Datum {
	c.mu.Lock()
	base := c.defaults
	c.mu.Unlock()

	d := model.Merge(base, opts.toDatum())
	d.Normalize()
	if len(d.Stack) == 0 {
		d.Stack = base.Stack
	}
	return d
}

func (c *Connection) requestWithRetry(ctx context.Context, d *model.Datum) (*model.Response, error) {
	for {
		resp, err := c.requestOnce(ctx, d)
		if err == nil {
			return resp, nil
		}
		c.Reset()
		if retry.Eligible(err, d.Idempotent, d.RetriesRemaining) {
			d.RetriesRemaining--
			continue
		}
		if d.Instrumentor != nil {
			prefix := d.InstrumentorName
			if prefix == "" {
				prefix = "excon"
			}
			d.Instrumentor.Instrument(prefix+".error", map[string]interface{}{"error": err.Error()})
		}
		return nil, err
	}
}

func (c *Connection) requestOnce(ctx context.Context, d *model.Datum) (*model.Response, error) {
	pd, err := c.writePhase(ctx, d)
	if err != nil {
		return nil, err
	}
	return c.drain(ctx, pd)
}

// pipelineDatum carries the state a deferred read needs after the request
// phase has written to the wire: the Datum, the terminal that wrote it (and
// its checked-out socket), and how many middlewares ran in the request
// phase, bounding the response phase (§4.6 "Requests(list)").
type pipelineDatum struct {
	d       *model.Datum
	term    *wireTerminal
	invoked int
}

// writePhase runs the middleware request phase and, unless a middleware
// short-circuited it, the wire write. It never reads a response.
func (c *Connection) writePhase(ctx context.Context, d *model.Datum) (*pipelineDatum, error) {
	term := &wireTerminal{conn: c}
	invoked, err := middleware.DispatchRequest(ctx, d.Stack, term, d)
	if err != nil {
		if term.release != nil {
			term.release(false)
		}
		return nil, err
	}
	return &pipelineDatum{d: d, term: term, invoked: invoked}, nil
}

// drain runs the read phase (unless already short-circuited) and the
// response phase for a Datum previously written by writePhase.
func (c *Connection) drain(ctx context.Context, pd *pipelineDatum) (*model.Response, error) {
	return c.finish(ctx, pd.d, pd.term, pd.invoked)
}

// finish runs the read phase (unless a middleware already populated
// d.Response) and the response phase, then applies the Connection: close
// eviction rule (§4.6 step 5).
func (c *Connection) finish(ctx context.Context, d *model.Datum, term *wireTerminal, invoked int) (*model.Response, error) {
	if d.Response == nil {
		if term.sock == nil {
			return nil, &retry.TransportError{Err: errNoSocket}
		}
		resp, err := wire.Read(ctx, term.sock, d, term.sock.RemoteAddr())
		if err != nil {
			if term.release != nil {
				term.release(false)
			}
			return nil, classifyReadErr(err)
		}
		d.Response = resp
	}

	if err := middleware.DispatchResponse(ctx, d.Stack, invoked, d); err != nil {
		if term.release != nil {
			term.release(false)
		}
		return nil, err
	}

	closeConn := d.Response != nil && strings.EqualFold(d.Response.Header.Get("Connection"), "close")
	if term.release != nil {
		term.release(!closeConn)
	}
	if closeConn {
		c.Reset()
	}
	return d.Response, nil
}

func classifyReadErr(err error) error {
	switch err.(type) {
	case *retry.TimeoutError, *retry.StubNotFoundError, *retry.HTTPStatusError:
		return err
	}
	return retry.Wrap("read", err)
}
