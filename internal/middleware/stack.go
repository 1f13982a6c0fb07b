// Package middleware implements the composition contract (§4.5): an ordered
// list of middlewares wrapping a terminal handler, with an asymmetric
// request/response traversal order. Grounded on the teacher engine's
// internal/client.go reversed-iteration composition
// (`for i := len(c.middlewares) - 1; ...`), generalized from the teacher's
// single-function Handler into the spec's two-method capability set
// (internal/model.Middleware).
//
// The request phase (DispatchRequest) and the response phase
// (DispatchResponse) are separate calls, mirroring §4.6: the orchestrator
// runs the request phase, then — for a non-pipelined call — runs the wire
// reader (§4.4) and only then the response phase; for a pipelined call the
// response phase is deferred until the caller drains it later.
package middleware

import (
	"context"

	"github.com/go-excon/excon/internal/model"
)

// Terminal is the innermost handler (the Connection itself): it implements
// RequestCall as the wire writer (§4.3).
type Terminal interface {
	RequestCall(ctx context.Context, d *model.Datum) error
}

// DispatchRequest runs the request phase outer→inner over stack, stopping as
// soon as a middleware short-circuits by populating d.Response (§4.5), or
// invoking the terminal handler once every middleware has run without one.
// invoked is the number of middlewares whose RequestCall executed — the
// bound the response phase must not exceed.
func DispatchRequest(ctx context.Context, stack []model.Middleware, terminal Terminal, d *model.Datum) (invoked int, err error) {
	for _, mw := range stack {
		invoked++
		if err := mw.RequestCall(ctx, d); err != nil {
			return invoked, err
		}
		if d.Response != nil {
			return invoked, nil
		}
	}
	if err := terminal.RequestCall(ctx, d); err != nil {
		return invoked, err
	}
	return invoked, nil
}

// DispatchResponse runs the response phase inner→outer over the first
// invoked middlewares of stack (§4.4 step 5, §4.5).
func DispatchResponse(ctx context.Context, stack []model.Middleware, invoked int, d *model.Datum) error {
	var respErr error
	for i := invoked - 1; i >= 0; i-- {
		if err := stack[i].ResponseCall(ctx, d); err != nil && respErr == nil {
			respErr = err
		}
	}
	return respErr
}
