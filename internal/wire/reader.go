package wire

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/go-excon/excon/internal/chunked"
	"github.com/go-excon/excon/internal/model"
)

// LineReader is the subset of the Socket interface (§6) the reader needs.
type LineReader interface {
	io.Reader
	ReadLine() (string, error)
}

// Read parses a status line and headers from r, then ingests the body under
// one of the three framing modes (§4.4). remoteAddr populates
// Response.RemoteAddr.
func Read(ctx context.Context, r LineReader, d *model.Datum, remoteAddr string) (*model.Response, error) {
	br := bufio.NewReader(r)
	tp := textproto.NewReader(br)

	statusLine, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	status, err := parseStatusLine(statusLine)
	if err != nil {
		return nil, err
	}

	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	header := http.Header(mimeHeader)
	joinDuplicateHeaderValues(header)

	resp := &model.Response{Status: status, Header: header, RemoteAddr: remoteAddr}

	if noEntity(d.Method, status) {
		return resp, nil
	}

	framing, contentLength, err := selectFraming(header)
	if err != nil {
		return nil, err
	}

	expected := !d.HasExpects || statusExpected(status, d.Expects)
	stream := expected && d.ResponseBlock != nil

	var body io.Reader
	switch framing {
	case framingChunked:
		body = chunked.NewReader(br)
	case framingContentLength:
		body = io.LimitReader(br, contentLength)
	default:
		body = br
	}

	if stream {
		return resp, streamBody(body, d.ResponseBlock, framing, contentLength, chunkSize(d))
	}
	buf, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	resp.Body = buf
	return resp, nil
}

func parseStatusLine(line string) (int, error) {
	_, rest, ok := strings.Cut(line, " ")
	if !ok {
		return 0, errors.New("excon: malformed HTTP response")
	}
	code := strings.TrimLeft(rest, " ")
	if len(code) < 3 {
		return 0, errors.New("excon: malformed HTTP status line")
	}
	n, err := strconv.Atoi(code[:3])
	if err != nil || n < 0 {
		return 0, errors.New("excon: malformed HTTP status code")
	}
	return n, nil
}

func noEntity(method string, status int) bool {
	if method == "HEAD" || method == "CONNECT" {
		return true
	}
	if status >= 100 && status < 200 {
		return true
	}
	return status == 204 || status == 304
}

func statusExpected(status int, expects map[int]struct{}) bool {
	_, ok := expects[status]
	return ok
}

// joinDuplicateHeaderValues collapses repeated header lines of the same name
// into a single comma-joined value (§4.4 step 2, §8), so Header.Get returns
// the whole field instead of silently only the first occurrence.
// Content-Length is left alone: selectFraming below validates its duplicates
// against RFC 7230 §3.3.2 (differing values are an error, not a join) rather
// than merging them.
func joinDuplicateHeaderValues(header http.Header) {
	for name, values := range header {
		if len(values) <= 1 || strings.EqualFold(name, "Content-Length") {
			continue
		}
		header[name] = []string{strings.Join(values, ", ")}
	}
}

type framingMode int

const (
	framingReadToClose framingMode = iota
	framingContentLength
	framingChunked
)

func selectFraming(header http.Header) (framingMode, int64, error) {
	if strings.EqualFold(header.Get("Transfer-Encoding"), "chunked") {
		return framingChunked, 0, nil
	}
	contentLens := header["Content-Length"]
	if len(contentLens) > 1 {
		first := textproto.TrimString(contentLens[0])
		for _, v := range contentLens[1:] {
			if textproto.TrimString(v) != first {
				return 0, 0, fmt.Errorf("excon: message cannot contain multiple Content-Length headers; got %q", contentLens)
			}
		}
		header.Del("Content-Length")
		header.Add("Content-Length", first)
		contentLens = header["Content-Length"]
	}
	if len(contentLens) == 0 {
		return framingReadToClose, 0, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(contentLens[0]), 10, 63)
	if err != nil || n < 0 {
		return framingReadToClose, 0, nil
	}
	return framingContentLength, n, nil
}

func chunkSize(d *model.Datum) int {
	if d.ChunkSize > 0 {
		return d.ChunkSize
	}
	return 32 * 1024
}

// streamBody dispatches body chunks to sink instead of accumulating them,
// per the sink signature in §4.4: chunked framing reports nil/nil,
// content-length framing reports remaining/total, and read-to-close framing
// reports the chunk length as remaining with a nil total.
func streamBody(body io.Reader, sink model.ChunkSink, framing framingMode, total int64, size int) error {
	buf := make([]byte, size)
	remaining := total
	for {
		n, err := body.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			var remPtr, totPtr *int64
			switch framing {
			case framingContentLength:
				remaining -= int64(n)
				if remaining < 0 {
					remaining = 0
				}
				remPtr, totPtr = &remaining, &total
			case framingReadToClose:
				cl := int64(n)
				remPtr = &cl
			}
			if serr := sink(chunk, remPtr, totPtr); serr != nil {
				return serr
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
