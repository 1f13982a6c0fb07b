package excon_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-excon/excon"
)

func TestGetNoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("Method = %q, want GET", r.Method)
		}
		w.Header().Set("X-Reply", "1")
		fmt.Fprint(w, "hello")
	}))
	defer srv.Close()

	conn, err := excon.New(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := conn.Get(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("Body = %q, want %q", resp.Body, "hello")
	}
	if resp.Header.Get("X-Reply") != "1" {
		t.Errorf("Header = %v, missing X-Reply", resp.Header)
	}
}

func TestPostWithContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Method = %q, want POST", r.Method)
		}
		if r.ContentLength != 3 {
			t.Errorf("ContentLength = %d, want 3", r.ContentLength)
		}
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))
	defer srv.Close()

	conn, err := excon.New(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := conn.Post(context.Background(), &excon.Options{Body: "abc"})
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "abc" {
		t.Errorf("Body = %q, want %q", resp.Body, "abc")
	}
}

func TestChunkedUploadAndDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("server failed reading chunked body: %v", err)
		}
		flusher, _ := w.(http.Flusher)
		w.Write(body)
		if flusher != nil {
			flusher.Flush()
		}
	}))
	defer srv.Close()

	conn, err := excon.New(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	parts := [][]byte{[]byte("chunk-one-"), []byte("chunk-two"), nil}
	i := 0
	src := excon.ChunkSource(func(ctx context.Context) ([]byte, error) {
		p := parts[i]
		i++
		return p, nil
	})

	resp, err := conn.Put(context.Background(), &excon.Options{RequestBlock: src})
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "chunk-one-chunk-two" {
		t.Errorf("Body = %q, want %q", resp.Body, "chunk-one-chunk-two")
	}
}

func TestConnectionReuseAcrossRequests(t *testing.T) {
	var remotes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remotes = append(remotes, r.RemoteAddr)
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	conn, err := excon.New(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := conn.Get(context.Background(), nil); err != nil {
			t.Fatal(err)
		}
	}
	if len(remotes) != 3 {
		t.Fatalf("got %d requests, want 3", len(remotes))
	}
	for _, r := range remotes[1:] {
		if r != remotes[0] {
			t.Errorf("expected the same client-side connection to be reused; got remote addrs %v", remotes)
		}
	}
}

func TestCallRejectsUnknownOverrideKeyBeforeAnySocketActivity(t *testing.T) {
	dialed := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dialed = true
	}))
	defer srv.Close()

	conn, err := excon.New(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = conn.Call(context.Background(), excon.Overrides{"bogus_key": true})
	if err == nil {
		t.Fatal("expected an ArgumentError for an unknown override key")
	}
	if _, ok := err.(*excon.ArgumentError); !ok {
		t.Errorf("err = %#v, want *excon.ArgumentError", err)
	}
	if dialed {
		t.Error("Call reached the server despite an unknown override key")
	}
}

func TestCallAppliesKnownOverrides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.URL.Path)
	}))
	defer srv.Close()

	conn, err := excon.New(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := conn.Call(context.Background(), excon.Overrides{"path": "/overridden", "method": "get"})
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "/overridden" {
		t.Errorf("Body = %q, want %q", resp.Body, "/overridden")
	}
}

// TestIdempotentRetrySucceedsAfterTransientFailures exercises §8's literal
// scenario through the real Connection.Request -> requestWithRetry path: an
// idempotent GET against a transport that fails twice (the server hijacks
// and drops the connection with no response, a genuine transport-class
// failure) then succeeds, with retry_limit=3.
func TestIdempotentRetrySucceedsAfterTransientFailures(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("ResponseWriter does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatal(err)
			}
			conn.Close()
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	conn, err := excon.New(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := conn.Get(context.Background(), &excon.Options{Idempotent: true, RetryLimit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("Body = %q, want %q", resp.Body, "ok")
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

// TestReadTimeoutProducesTimeoutError hijacks the server side of the
// connection and never writes a response, so the client's read deadline
// (SetReadDeadline via ReadTimeout) actually expires and the resulting
// *net.OpError must classify as a *excon.TimeoutError, not a TransportError.
func TestReadTimeoutProducesTimeoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("ResponseWriter does not support hijacking")
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	conn, err := excon.New(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = conn.Get(context.Background(), &excon.Options{ReadTimeout: 20 * time.Millisecond})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	var te *excon.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("err = %#v, want *excon.TimeoutError", err)
	}
	if te.Phase != "read" {
		t.Errorf("Phase = %q, want %q", te.Phase, "read")
	}
}

// TestRetriesRemainingCapsRetryIndependentlyOfRetryLimit sets retries_remaining
// below retry_limit through the Overrides call boundary and confirms the
// lower value, not RetryLimit, governs whether a transient failure retries.
func TestRetriesRemainingCapsRetryIndependentlyOfRetryLimit(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("ResponseWriter does not support hijacking")
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Fatal(err)
		}
		conn.Close()
	}))
	defer srv.Close()

	conn, err := excon.New(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = conn.Call(context.Background(), excon.Overrides{
		"idempotent":        true,
		"retry_limit":       5,
		"retries_remaining": 1,
	})
	if err == nil {
		t.Fatal("expected an error since retries_remaining left no retry budget")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("attempts = %d, want 1 (retries_remaining=1 forbids any retry regardless of retry_limit)", got)
	}
}

func TestRequestsPipelinesInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.URL.Path)
	}))
	defer srv.Close()

	conn, err := excon.New(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	list := []*excon.Options{
		{Path: "/1"},
		{Path: "/2"},
		{Path: "/3"},
	}
	responses := conn.Requests(context.Background(), list)
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(responses))
	}
	for i, resp := range responses {
		if resp == nil {
			t.Fatalf("response %d is nil", i)
		}
		want := fmt.Sprintf("/%d", i+1)
		if string(resp.Body) != want {
			t.Errorf("response %d body = %q, want %q", i, resp.Body, want)
		}
	}
}
