// Package retry defines the error taxonomy (§7) and the retry-eligibility
// predicate (§4.6, §9) used by the connection orchestrator.
package retry

import "fmt"

// Class classifies an error for retry-eligibility purposes.
type Class int

const (
	ClassOther Class = iota
	ClassArgument
	ClassProxyParse
	ClassTransport
	ClassTimeout
	ClassHTTPStatus
	ClassStubNotFound
)

// ArgumentError is raised for an unknown option key at construction or
// request time.
type ArgumentError struct{ Key string }

func (e *ArgumentError) Error() string { return "excon: unknown option: " + e.Key }

// ProxyParseError is the classification for a proxy URL that lacks host,
// port, or scheme. The core does not raise it: New ignores an environment
// proxy URL that fails to parse or has no host, and fills a missing proxy
// port with the scheme's default.
type ProxyParseError struct{ Reason string }

func (e *ProxyParseError) Error() string { return "excon: invalid proxy: " + e.Reason }

// TransportError wraps any I/O-level failure during write or body-read.
type TransportError struct{ Err error }

func (e *TransportError) Error() string { return "excon: transport error: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError is raised when a connect, read, or write timeout is exceeded.
type TimeoutError struct{ Phase string }

func (e *TimeoutError) Error() string { return fmt.Sprintf("excon: %s timeout", e.Phase) }
func (e *TimeoutError) Timeout() bool { return true }

// HTTPStatusError is a classification available to caller-installed
// middleware (e.g. an "expects" middleware) that rejects a response status.
// The core never raises it itself (§9 Open Question decision: it is
// deliberately excluded from the default retry predicate).
type HTTPStatusError struct {
	Status  int
	Expects []int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("excon: unexpected status %d, expected %v", e.Status, e.Expects)
}

// StubNotFoundError is a classification reserved for mock-style middleware
// that could not match a request. Not raised by the core.
type StubNotFoundError struct{ Reason string }

func (e *StubNotFoundError) Error() string { return "excon: stub not found: " + e.Reason }

// Classify determines the retry class of err.
func Classify(err error) Class {
	switch err.(type) {
	case *ArgumentError:
		return ClassArgument
	case *ProxyParseError:
		return ClassProxyParse
	case *TransportError:
		return ClassTransport
	case *TimeoutError:
		return ClassTimeout
	case *HTTPStatusError:
		return ClassHTTPStatus
	case *StubNotFoundError:
		return ClassStubNotFound
	default:
		return ClassOther
	}
}

// retryable is the default retryable-status set (§9 Open Question decision):
// only transport-class and timeout-class failures are eligible for the
// core's transparent retry. HTTPStatusError is deliberately excluded.
var retryable = map[Class]struct{}{
	ClassTransport: {},
	ClassTimeout:   {},
}

// Eligible reports whether an idempotent request with retriesRemaining
// budget left should retry after err.
func Eligible(err error, idempotent bool, retriesRemaining int) bool {
	if !idempotent || retriesRemaining <= 1 {
		return false
	}
	_, ok := retryable[Classify(err)]
	return ok
}

// Wrap classifies a raw error from phase ("connect", "write" or "read").
// Already-typed retry errors (TimeoutError, StubNotFoundError,
// TransportError) propagate unchanged. Otherwise, an err reporting
// Timeout() true (a *net.OpError from an expired SetReadDeadline,
// SetWriteDeadline or dial context deadline, or nbio's poll timeout)
// becomes a TimeoutError; anything else becomes a TransportError.
func Wrap(phase string, err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *TimeoutError, *StubNotFoundError, *TransportError:
		return err
	}
	if te, ok := err.(interface{ Timeout() bool }); ok && te.Timeout() {
		return &TimeoutError{Phase: phase}
	}
	return &TransportError{Err: err}
}
