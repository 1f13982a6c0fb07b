// Package chunked implements the request-side chunk encoder and the
// response-side chunk decoder (§4.1), grounded on the teacher engine's
// internal/transport/chunked/{writer,reader}.go.
package chunked

import (
	"context"
	"fmt"
	"io"

	"github.com/go-excon/excon/internal/model"
)

// Writer emits "%x\r\n%s\r\n" per non-empty chunk, adapted from the teacher's
// chunkedWriter.Write (taken there from net/http/internal/chunked.go).
type Writer struct {
	Wire io.Writer
}

func (cw *Writer) writeChunk(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(cw.Wire, "%x\r\n", len(data)); err != nil {
		return err
	}
	n, err := cw.Wire.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return io.ErrShortWrite
	}
	_, err = io.WriteString(cw.Wire, "\r\n")
	return err
}

// close emits the terminating "0\r\n\r\n" (§4.1, §8: exactly one terminator,
// no trailers).
func (cw *Writer) close() error {
	n, err := io.WriteString(cw.Wire, "0\r\n\r\n")
	if err == nil && n != 5 {
		return io.ErrShortWrite
	}
	return err
}

// Drive pulls chunks from src until it yields a zero-length chunk (or an
// error), writing each as a chunk and finishing with the terminator. This is
// the request side of §4.1: "repeatedly pull a chunk ... on zero-length
// chunk emit 0 CRLF CRLF and stop."
func Drive(ctx context.Context, wire io.Writer, src model.ChunkSource) error {
	cw := &Writer{Wire: wire}
	for {
		chunk, err := src(ctx)
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			return cw.close()
		}
		if err := cw.writeChunk(chunk); err != nil {
			return err
		}
	}
}
