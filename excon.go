// Package excon implements a client-side HTTP/1.1 connection engine: an
// object bound to a destination (scheme, host, port) that issues requests
// over a reusable transport, drives the wire protocol, and returns
// structured responses.
//
// Grounded on github.com/frankli0324/go-http's engine architecture
// (Client/Dialer/Transport split), rebuilt around the request/response
// lifecycle this package's spec calls for: merged per-call defaults, a
// middleware composition contract, persistent connection reuse with a
// per-connection socket cache, pipelining, and idempotent retry.
package excon

import (
	"net/http"

	"github.com/go-excon/excon/internal/model"
)

// Header is the wire header mapping.
type Header = http.Header

// Middleware wraps the request/response pair (§4.5).
type Middleware = model.Middleware

// Response is the parsed HTTP response record (§3).
type Response struct {
	StatusCode int
	Header     Header
	Body       []byte
	RemoteAddr string
}

// ChunkSource pulls the next request chunk for a chunked upload; a
// zero-length chunk with a nil error ends the stream.
type ChunkSource = model.ChunkSource

// ChunkSink receives streamed response body chunks.
type ChunkSink = model.ChunkSink

func responseFromModel(r *model.Response) *Response {
	if r == nil {
		return nil
	}
	return &Response{
		StatusCode: r.Status,
		Header:     r.Header,
		Body:       r.Body,
		RemoteAddr: r.RemoteAddr,
	}
}
