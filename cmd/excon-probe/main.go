// Command excon-probe issues one request through excon.Connection and prints
// the status code, the response headers and the body. It exists to give the module a
// runnable smoke-test surface, not as a general-purpose HTTP client.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/go-excon/excon"
)

func main() {
	method := flag.String("method", "GET", "request method")
	body := flag.String("body", "", "request body")
	idempotent := flag.Bool("idempotent", false, "allow transparent retry")
	retries := flag.Int("retries", 0, "retry limit when -idempotent is set")
	timeout := flag.Duration("timeout", 10*time.Second, "read/write/connect timeout")
	debug := flag.Bool("debug", false, "install a StandardInstrumentor on stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: excon-probe [flags] <url>")
		os.Exit(2)
	}

	opts := &excon.Options{
		ConnectTimeout: *timeout,
		ReadTimeout:    *timeout,
		WriteTimeout:   *timeout,
	}
	if *debug {
		opts.Instrumentor = excon.NewStandardInstrumentor("excon-probe")
	}

	conn, err := excon.New(flag.Arg(0), opts)
	if err != nil {
		log.Fatalf("excon-probe: %v", err)
	}

	reqOpts := &excon.Options{
		Method:     *method,
		Idempotent: *idempotent,
		RetryLimit: *retries,
	}
	if *body != "" {
		reqOpts.Body = *body
	}

	resp, err := conn.Request(context.Background(), reqOpts)
	if err != nil {
		log.Fatalf("excon-probe: request failed: %v", err)
	}

	fmt.Printf("%d\n", resp.StatusCode)
	for _, k := range sortedKeys(resp.Header) {
		for _, v := range resp.Header[k] {
			fmt.Printf("%s: %s\n", k, v)
		}
	}
	fmt.Printf("\n%s\n", resp.Body)
}

func sortedKeys(h excon.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
