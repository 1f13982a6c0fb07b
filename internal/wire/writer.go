// Package wire implements the terminal request writer and response reader
// (§4.3, §4.4), the two heaviest components of the core. Grounded on the
// teacher engine's internal/transport/http1.go, generalized from a fixed
// io.ReadCloser body to the spec's three body forms (absent, fixed, chunked
// producer).
package wire

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/go-excon/excon/internal/chunked"
	"github.com/go-excon/excon/internal/model"
)

// Write serializes d onto w: request line, headers, and body (§4.3). Callers
// are responsible for the short-circuit check (d.Response != nil) before
// calling Write; middleware.DispatchRequest owns that, since it never calls
// the terminal handler once a middleware has populated d.Response.
func Write(ctx context.Context, w io.Writer, d *model.Datum) error {
	bw := bufio.NewWriterSize(w, 4096)

	if err := writeRequestLine(bw, d); err != nil {
		return err
	}
	if err := writeHeaders(bw, d); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := writeBody(ctx, bw, d); err != nil {
		return err
	}
	return bw.Flush()
}

func writeRequestLine(bw *bufio.Writer, d *model.Datum) error {
	if _, err := bw.WriteString(d.Method); err != nil {
		return err
	}
	bw.WriteByte(' ')
	if _, err := bw.WriteString(target(d)); err != nil {
		return err
	}
	_, err := bw.WriteString(" HTTP/1.1\r\n")
	return err
}

// target renders the request-target: absolute-form ("scheme://host:port/path
// ?query") when proxied over plain http, origin-form ("/path?query")
// otherwise (§3 invariant, §4.3 step 2).
func target(d *model.Datum) string {
	path := d.Path
	query := d.EncodeQuery()

	origin := path
	if query != "" {
		origin += "?" + query
	}

	if d.Proxy != nil && d.Scheme == "http" {
		return d.Scheme + "://" + d.HostPort() + origin
	}
	return origin
}

func writeHeaders(bw *bufio.Writer, d *model.Datum) error {
	applyFraming(d)

	// Header is an ordered slice, so this emits names in exactly the order
	// they sit in d.Header (§8: emission order matches insertion order): a
	// defaulted Host first (Normalize), then the Connection's default
	// headers — including the auth and proxy headers New adds — then any new
	// per-call names, then the framing header applyFraming appends.
	for _, f := range d.Header {
		for _, v := range f.Values {
			if _, err := bw.WriteString(f.Name); err != nil {
				return err
			}
			bw.WriteString(": ")
			bw.WriteString(v)
			if _, err := bw.WriteString("\r\n"); err != nil {
				return err
			}
		}
	}
	_, err := bw.WriteString("\r\n")
	return err
}

// applyFraming decides between chunked transfer and Content-Length (§3, §4.3
// step 3). GET with no body emits neither header (§8 boundary behavior).
func applyFraming(d *model.Datum) {
	d.Header.Del("Transfer-Encoding")
	d.Header.Del("Content-Length")

	if d.RequestBlock != nil {
		d.Header.Set("Transfer-Encoding", "chunked")
		return
	}
	length, hasBody := bodyLength(d.Body)
	if !hasBody && d.Method == "GET" {
		return
	}
	d.Header.Set("Content-Length", strconv.FormatInt(length, 10))
}

func bodyLength(body model.Body) (int64, bool) {
	switch b := body.(type) {
	case nil:
		return 0, false
	case string:
		return int64(len(b)), true
	case []byte:
		return int64(len(b)), true
	case interface{ Len() int }:
		return int64(b.Len()), true
	default:
		return 0, true
	}
}

func writeBody(ctx context.Context, w io.Writer, d *model.Datum) error {
	if d.RequestBlock != nil {
		return chunked.Drive(ctx, w, d.RequestBlock)
	}
	switch b := d.Body.(type) {
	case nil:
		return nil
	case string:
		if b == "" {
			return nil
		}
		_, err := io.WriteString(w, b)
		return err
	case []byte:
		if len(b) == 0 {
			return nil
		}
		_, err := w.Write(b)
		return err
	case io.Reader:
		size := d.ChunkSize
		if size <= 0 {
			size = 32 * 1024
		}
		buf := make([]byte, size)
		_, err := io.CopyBuffer(w, b, buf)
		return err
	default:
		return fmt.Errorf("excon: unsupported body type %T", b)
	}
}
