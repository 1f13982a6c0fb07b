package excon

import "context"

// Get, Post, Put, Delete, Head, Patch, Trace and the OptionsMethod/Connect
// methods are thin per-verb wrappers over Request (§4.6 "Per-verb helpers").
// Each starts from opts (or a zero Options) and sets Method before
// delegating.
func (c *Connection) Get(ctx context.Context, opts *Options) (*Response, error) {
	return c.verb(ctx, "GET", opts)
}

func (c *Connection) Post(ctx context.Context, opts *Options) (*Response, error) {
	return c.verb(ctx, "POST", opts)
}

func (c *Connection) Put(ctx context.Context, opts *Options) (*Response, error) {
	return c.verb(ctx, "PUT", opts)
}

func (c *Connection) Delete(ctx context.Context, opts *Options) (*Response, error) {
	return c.verb(ctx, "DELETE", opts)
}

func (c *Connection) Head(ctx context.Context, opts *Options) (*Response, error) {
	return c.verb(ctx, "HEAD", opts)
}

func (c *Connection) Patch(ctx context.Context, opts *Options) (*Response, error) {
	return c.verb(ctx, "PATCH", opts)
}

func (c *Connection) Trace(ctx context.Context, opts *Options) (*Response, error) {
	return c.verb(ctx, "TRACE", opts)
}

func (c *Connection) OptionsMethod(ctx context.Context, opts *Options) (*Response, error) {
	return c.verb(ctx, "OPTIONS", opts)
}

func (c *Connection) Connect(ctx context.Context, opts *Options) (*Response, error) {
	return c.verb(ctx, "CONNECT", opts)
}

func (c *Connection) verb(ctx context.Context, method string, opts *Options) (*Response, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	o.Method = method
	return c.Request(ctx, &o)
}

// pendingRequest is one leg of a Requests call: the pipeline state after its
// request phase has been dispatched and written, or the error that stopped
// it from getting that far.
type pendingRequest struct {
	pd  *pipelineDatum
	err error
}

// Requests issues each element of list in order without waiting for a
// response in between (writes occur in list order, §4.6 "Requests(list)"),
// then drains the responses in that same order. A write failure for one
// element does not prevent the others from being attempted; its slot in the
// result is nil.
func (c *Connection) Requests(ctx context.Context, list []*Options) []*Response {
	pending := make([]pendingRequest, len(list))
	for i, opts := range list {
		o := Options{}
		if opts != nil {
			o = *opts
		}
		o.Pipeline = true
		d := c.prepare(&o)
		pd, err := c.writePhase(ctx, d)
		pending[i] = pendingRequest{pd: pd, err: err}
	}

	out := make([]*Response, len(list))
	for i, p := range pending {
		if p.err != nil {
			c.instrumentPipelineError(p.err)
			continue
		}
		resp, err := c.drain(ctx, p.pd)
		if err != nil {
			c.instrumentPipelineError(err)
			continue
		}
		out[i] = responseFromModel(resp)
	}
	return out
}

func (c *Connection) instrumentPipelineError(err error) {
	c.mu.Lock()
	inst := c.defaults.Instrumentor
	prefix := c.defaults.InstrumentorName
	c.mu.Unlock()
	if prefix == "" {
		prefix = "excon"
	}
	if inst != nil {
		inst.Instrument(prefix+".pipeline_error", map[string]interface{}{"error": err.Error()})
	}
}
