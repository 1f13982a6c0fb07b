package excon

import "github.com/go-excon/excon/internal/retry"

// Error taxonomy (§7). Aliased from internal/retry so callers can use
// errors.As(err, &te) with te of type *excon.TimeoutError etc. without
// reaching into internal packages.
type (
	ArgumentError     = retry.ArgumentError
	ProxyParseError   = retry.ProxyParseError
	TransportError    = retry.TransportError
	TimeoutError      = retry.TimeoutError
	HTTPStatusError   = retry.HTTPStatusError
	StubNotFoundError = retry.StubNotFoundError
)
