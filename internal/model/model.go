// Package model defines the Datum that flows through the middleware stack and
// the Response record returned to callers.
package model

import (
	"context"
	"crypto/tls"
	"net/http"
)

// Body is the request payload. Accepted concrete types are string, []byte and
// io.Reader (checked at write time by internal/wire).
type Body interface{}

// ChunkSource pulls the next request chunk for a chunked upload. A zero-length
// chunk with a nil error signals the end of the stream.
type ChunkSource func(ctx context.Context) ([]byte, error)

// ChunkSink receives streamed response body chunks. remaining and total are
// nil unless the active framing mode reports them (see streamBody in
// internal/wire).
type ChunkSink func(chunk []byte, remaining, total *int64) error

// Proxy describes a proxy to tunnel or rewrite requests through.
type Proxy struct {
	Scheme   string
	Host     string
	Port     string
	User     string
	Password string
}

// QueryParam is one key of the mapping form of a query string, in the
// insertion order the caller built it in (Go map iteration order is
// unspecified, so a slice carries the ordering guarantee §8 requires).
// A nil Values emits a bare "key"; a non-nil Values emits one "key=value"
// pair per entry, in order.
type QueryParam struct {
	Key    string
	Values []string
	Bare   bool // true: emit "key" with no "=value" at all
}

// QueryValues is the ordered mapping form of a query string.
type QueryValues []QueryParam

// ConnectionRef is the non-owning link from a Datum back to the Connection that
// issued it. It is a narrow interface so internal/model does not import the
// root package (which would be a cycle).
type ConnectionRef interface {
	Reset()
}

// Datum is the mutable per-request record threaded through the middleware
// stack and the wire layer. It is not safe for concurrent use by more than
// one goroutine at a time.
type Datum struct {
	// Target
	Scheme      string
	Host        string
	Port        string
	Path        string
	QueryStr    string
	Query       QueryValues
	HasQuery    bool // Query or QueryStr was explicitly set (as opposed to zero value)
	UseRawQuery bool // true selects QueryStr over Query

	// Framing
	Method       string
	Body         Body
	RequestBlock ChunkSource
	ChunkSize    int

	// Headers
	Header Header

	// Policy
	Expects          map[int]struct{}
	HasExpects       bool
	Idempotent       bool
	RetryLimit       int
	RetriesRemaining int
	ConnectTimeout   int64 // nanoseconds, 0 = no deadline
	ReadTimeout      int64
	WriteTimeout     int64
	Nonblock         bool

	// Runtime
	Connection       ConnectionRef
	Stack            []Middleware
	Response         *Response
	ResponseBlock    ChunkSink
	Pipeline         bool
	Instrumentor     Instrumentor
	InstrumentorName string
	Captures         map[string]string

	// Proxy
	Proxy *Proxy

	// TLS
	TLSConfig          *tls.Config
	InsecureSkipVerify bool

	// Family is the socket family hint: "", "ip4" or "ip6".
	Family string
}

// Middleware wraps the request/response pair. RequestCall runs outermost
// first; ResponseCall runs innermost-invoked first, bounded by whichever
// middleware short-circuited the request phase by populating Datum.Response.
type Middleware interface {
	RequestCall(ctx context.Context, d *Datum) error
	ResponseCall(ctx context.Context, d *Datum) error
}

// Instrumentor receives named events with a free-form payload, used for
// error reporting and pipeline diagnostics.
type Instrumentor interface {
	Instrument(name string, payload map[string]interface{})
}

// Response is the parsed HTTP response record.
type Response struct {
	Status     int
	Header     http.Header
	Body       []byte
	RemoteAddr string
}
