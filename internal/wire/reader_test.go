package wire_test

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/go-excon/excon/internal/model"
	"github.com/go-excon/excon/internal/wire"
)

// rawLineReader adapts a bufio.Reader to wire.LineReader for tests that feed
// raw HTTP/1.1 response bytes directly, without going through a socket.
type rawLineReader struct{ *bufio.Reader }

func (r rawLineReader) ReadLine() (string, error) {
	line, err := r.Reader.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

func TestReadContentLengthBody(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"
	resp, err := wire.Read(context.Background(), rawLineReader{bufio.NewReader(strings.NewReader(raw))}, &model.Datum{Method: "GET"}, "1.2.3.4:80")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != 200 {
		t.Errorf("Status = %d, want 200", resp.Status)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("Body = %q, want %q", resp.Body, "hello")
	}
}

func TestReadChunkedBody(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"
	resp, err := wire.Read(context.Background(), rawLineReader{bufio.NewReader(strings.NewReader(raw))}, &model.Datum{Method: "GET"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("Body = %q, want %q", resp.Body, "hello")
	}
}

func TestReadHeadHasNoEntity(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\n"
	resp, err := wire.Read(context.Background(), rawLineReader{bufio.NewReader(strings.NewReader(raw))}, &model.Datum{Method: "HEAD"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Body != nil {
		t.Errorf("Body = %q, want nil for HEAD", resp.Body)
	}
}

func TestReadReadToCloseBody(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\n\r\nwhatever is left"
	resp, err := wire.Read(context.Background(), rawLineReader{bufio.NewReader(strings.NewReader(raw))}, &model.Datum{Method: "GET"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "whatever is left" {
		t.Errorf("Body = %q, want %q", resp.Body, "whatever is left")
	}
}

func TestReadJoinsDuplicateHeaderValues(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nSet-Cookie: a=1\r\nSet-Cookie: b=2\r\nContent-Length: 5\r\n\r\nhello"
	resp, err := wire.Read(context.Background(), rawLineReader{bufio.NewReader(strings.NewReader(raw))}, &model.Datum{Method: "GET"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := resp.Header.Get("Set-Cookie"), "a=1, b=2"; got != want {
		t.Errorf("Header.Get(Set-Cookie) = %q, want %q", got, want)
	}
	if len(resp.Header["Set-Cookie"]) != 1 {
		t.Errorf("Header[Set-Cookie] = %v, want a single joined entry", resp.Header["Set-Cookie"])
	}
}

func TestReadRejectsConflictingContentLength(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\nContent-Length: 6\r\n\r\nhello"
	_, err := wire.Read(context.Background(), rawLineReader{bufio.NewReader(strings.NewReader(raw))}, &model.Datum{Method: "GET"}, "")
	if err == nil {
		t.Fatal("expected an error for conflicting Content-Length headers")
	}
}

func TestReadStreamsToResponseBlock(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"
	var got []byte
	d := &model.Datum{Method: "GET", ResponseBlock: func(chunk []byte, remaining, total *int64) error {
		got = append(got, chunk...)
		return nil
	}}
	resp, err := wire.Read(context.Background(), rawLineReader{bufio.NewReader(strings.NewReader(raw))}, d, "")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Body != nil {
		t.Errorf("Body = %q, want nil when streamed", resp.Body)
	}
	if string(got) != "hello" {
		t.Errorf("streamed = %q, want %q", got, "hello")
	}
}
