package excon

import (
	"crypto/tls"
	"time"

	"github.com/go-excon/excon/internal/model"
)

// Proxy describes a proxy to tunnel or rewrite requests through (§3, §6).
type Proxy struct {
	Scheme   string
	Host     string
	Port     string
	User     string
	Password string
}

func (p *Proxy) toModel() *model.Proxy {
	if p == nil {
		return nil
	}
	return &model.Proxy{Scheme: p.Scheme, Host: p.Host, Port: p.Port, User: p.User, Password: p.Password}
}

// HeaderField is one request header name together with its ordered values,
// in insertion order (§6, §8: emission order matches insertion order — a Go
// map can't carry that guarantee, so the mapping form of Options.Header is a
// slice, the same treatment QueryParam already gets).
type HeaderField struct {
	Name   string
	Values []string
}

// QueryParam is one entry of the mapping form of a query string, in
// insertion order (§3, §8). A nil Values emits a bare "key"; otherwise each
// value emits a repeated "key=value" pair.
type QueryParam struct {
	Key    string
	Values []string
}

// Options is the request/connection configuration surface (§6). Zero values
// mean "unset" and, on a per-call Options, fall back to the
// Connection's Defaults (§4.6 step 1). This typed-struct surface is the
// Go-native replacement for the distilled spec's loosely-typed options hash
// (§10.5); Overrides below exists in parallel to preserve the "unknown key
// raises argument error" testable property (§8).
type Options struct {
	Scheme string
	Host   string
	Port   string
	Path   string

	// RawQuery is appended verbatim after "?". Query, if non-nil, takes
	// precedence and is percent-encoded entry by entry, in order.
	RawQuery string
	Query    []QueryParam

	Method string
	Header []HeaderField

	// Body accepts string, []byte or io.Reader.
	Body interface{}

	// RequestBlock forces chunked upload framing when non-nil.
	RequestBlock ChunkSource
	// ResponseBlock, when non-nil, streams the response body instead of
	// buffering it into Response.Body (subject to Expects, §4.4).
	ResponseBlock ChunkSink
	ChunkSize     int

	User     string
	Password string

	Expects    []int
	Idempotent bool
	RetryLimit int

	// RetriesRemaining, if non-zero, sets this call's remaining retry budget
	// independent of RetryLimit. Datum.Normalize only defaults it from
	// RetryLimit when it is left unset.
	RetriesRemaining int

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Nonblock       bool

	Proxy *Proxy

	// TLSConfig, if non-nil, is cloned and used for the TLS handshake on an
	// https target; InsecureSkipVerify is applied on top of it (§6).
	TLSConfig          *tls.Config
	InsecureSkipVerify bool

	// Family is the socket family hint: "", "ip4" or "ip6" (§6 Family).
	Family string

	Instrumentor     Instrumentor
	InstrumentorName string
	Captures         map[string]string

	Middlewares []Middleware

	// Pipeline is carried onto the request Datum; Connection.Request still
	// reads the response before returning. Connection.Requests writes every
	// request before reading any response, whether or not this is set.
	Pipeline bool
}

// Overrides is the loosely-typed call form (§6, §8): unknown keys raise
// ArgumentError before any socket activity, and known keys map 1:1 onto
// Options fields by the option's snake_case name, matched exactly (e.g.
// "body", "expects", "request_block").
type Overrides map[string]interface{}

var knownOverrideKeys = map[string]struct{}{
	"body": {}, "family": {}, "header": {}, "host": {}, "port": {}, "path": {},
	"scheme": {}, "query": {}, "user": {}, "password": {}, "instrumentor": {},
	"instrumentor_name": {}, "tls_config": {}, "insecure_skip_verify": {},
	"chunk_size": {}, "nonblock": {}, "retry_limit": {}, "retries_remaining": {},
	"connect_timeout": {}, "read_timeout": {}, "write_timeout": {}, "captures": {},
	"expects": {}, "proxy": {}, "method": {}, "idempotent": {}, "request_block": {},
	"response_block": {}, "middlewares": {}, "pipeline": {},
}

// Validate raises ArgumentError for the first unrecognized key (§8).
func (o Overrides) Validate() error {
	for k := range o {
		if _, ok := knownOverrideKeys[k]; !ok {
			return &ArgumentError{Key: k}
		}
	}
	return nil
}

// toOptions converts a validated Overrides map into an Options struct, one
// key at a time. Call Validate first; toOptions does not repeat the
// unknown-key check, only the per-value type check for keys it recognizes.
func (o Overrides) toOptions() (*Options, error) {
	opts := &Options{}
	for k, v := range o {
		var err error
		switch k {
		case "scheme":
			opts.Scheme, err = asString(k, v)
		case "host":
			opts.Host, err = asString(k, v)
		case "port":
			opts.Port, err = asString(k, v)
		case "path":
			opts.Path, err = asString(k, v)
		case "method":
			opts.Method, err = asString(k, v)
		case "user":
			opts.User, err = asString(k, v)
		case "password":
			opts.Password, err = asString(k, v)
		case "instrumentor_name":
			opts.InstrumentorName, err = asString(k, v)
		case "family":
			opts.Family, err = asString(k, v)
		case "body":
			opts.Body = v
		case "header":
			opts.Header, err = asHeaderFields(k, v)
		case "query":
			opts.Query, err = asQueryParams(k, v)
		case "expects":
			opts.Expects, err = asIntSlice(k, v)
		case "captures":
			opts.Captures, err = asStringMap(k, v)
		case "idempotent":
			opts.Idempotent, err = asBool(k, v)
		case "nonblock":
			opts.Nonblock, err = asBool(k, v)
		case "pipeline":
			opts.Pipeline, err = asBool(k, v)
		case "insecure_skip_verify":
			opts.InsecureSkipVerify, err = asBool(k, v)
		case "retry_limit":
			opts.RetryLimit, err = asInt(k, v)
		case "retries_remaining":
			opts.RetriesRemaining, err = asInt(k, v)
		case "chunk_size":
			opts.ChunkSize, err = asInt(k, v)
		case "connect_timeout":
			opts.ConnectTimeout, err = asDuration(k, v)
		case "read_timeout":
			opts.ReadTimeout, err = asDuration(k, v)
		case "write_timeout":
			opts.WriteTimeout, err = asDuration(k, v)
		case "tls_config":
			opts.TLSConfig, err = asTLSConfig(k, v)
		case "proxy":
			opts.Proxy, err = asProxy(k, v)
		case "instrumentor":
			opts.Instrumentor, err = asInstrumentor(k, v)
		case "request_block":
			opts.RequestBlock, err = asChunkSource(k, v)
		case "response_block":
			opts.ResponseBlock, err = asChunkSink(k, v)
		case "middlewares":
			opts.Middlewares, err = asMiddlewares(k, v)
		}
		if err != nil {
			return nil, err
		}
	}
	return opts, nil
}

func asString(key string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &ArgumentError{Key: key}
	}
	return s, nil
}

func asBool(key string, v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, &ArgumentError{Key: key}
	}
	return b, nil
}

func asInt(key string, v interface{}) (int, error) {
	n, ok := v.(int)
	if !ok {
		return 0, &ArgumentError{Key: key}
	}
	return n, nil
}

func asDuration(key string, v interface{}) (time.Duration, error) {
	switch n := v.(type) {
	case time.Duration:
		return n, nil
	case int:
		return time.Duration(n), nil
	}
	return 0, &ArgumentError{Key: key}
}

func asHeaderFields(key string, v interface{}) ([]HeaderField, error) {
	h, ok := v.([]HeaderField)
	if !ok {
		return nil, &ArgumentError{Key: key}
	}
	return h, nil
}

func asQueryParams(key string, v interface{}) ([]QueryParam, error) {
	q, ok := v.([]QueryParam)
	if !ok {
		return nil, &ArgumentError{Key: key}
	}
	return q, nil
}

func asIntSlice(key string, v interface{}) ([]int, error) {
	s, ok := v.([]int)
	if !ok {
		return nil, &ArgumentError{Key: key}
	}
	return s, nil
}

func asStringMap(key string, v interface{}) (map[string]string, error) {
	m, ok := v.(map[string]string)
	if !ok {
		return nil, &ArgumentError{Key: key}
	}
	return m, nil
}

func asTLSConfig(key string, v interface{}) (*tls.Config, error) {
	c, ok := v.(*tls.Config)
	if !ok {
		return nil, &ArgumentError{Key: key}
	}
	return c, nil
}

func asProxy(key string, v interface{}) (*Proxy, error) {
	p, ok := v.(*Proxy)
	if !ok {
		return nil, &ArgumentError{Key: key}
	}
	return p, nil
}

func asInstrumentor(key string, v interface{}) (Instrumentor, error) {
	inst, ok := v.(Instrumentor)
	if !ok {
		return nil, &ArgumentError{Key: key}
	}
	return inst, nil
}

func asChunkSource(key string, v interface{}) (ChunkSource, error) {
	s, ok := v.(ChunkSource)
	if !ok {
		return nil, &ArgumentError{Key: key}
	}
	return s, nil
}

func asChunkSink(key string, v interface{}) (ChunkSink, error) {
	s, ok := v.(ChunkSink)
	if !ok {
		return nil, &ArgumentError{Key: key}
	}
	return s, nil
}

func asMiddlewares(key string, v interface{}) ([]Middleware, error) {
	m, ok := v.([]Middleware)
	if !ok {
		return nil, &ArgumentError{Key: key}
	}
	return m, nil
}

func expectsSet(codes []int) map[int]struct{} {
	if codes == nil {
		return nil
	}
	m := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return m
}

func queryToModel(q []QueryParam) model.QueryValues {
	if q == nil {
		return nil
	}
	out := make(model.QueryValues, len(q))
	for i, p := range q {
		if p.Values == nil {
			out[i] = model.QueryParam{Key: p.Key, Bare: true}
			continue
		}
		out[i] = model.QueryParam{Key: p.Key, Values: p.Values}
	}
	return out
}

func headerToModel(h []HeaderField) model.Header {
	if h == nil {
		return nil
	}
	out := make(model.Header, len(h))
	for i, f := range h {
		out[i] = model.HeaderField{Name: f.Name, Values: append([]string(nil), f.Values...)}
	}
	return out
}

// toDatum translates Options into a partial Datum for Merge (§4.6 step 1).
// Zero-value fields are left as the Datum zero value, which Merge treats as
// "not overridden".
func (o *Options) toDatum() *model.Datum {
	if o == nil {
		return &model.Datum{}
	}
	d := &model.Datum{
		Scheme:             o.Scheme,
		Host:               o.Host,
		Port:               o.Port,
		Path:               o.Path,
		Method:             normalizeMethod(o.Method),
		Body:               o.Body,
		RequestBlock:       o.RequestBlock,
		ResponseBlock:      o.ResponseBlock,
		ChunkSize:          o.ChunkSize,
		Header:             headerToModel(o.Header),
		Idempotent:         o.Idempotent,
		RetryLimit:         o.RetryLimit,
		RetriesRemaining:   o.RetriesRemaining,
		ConnectTimeout:     int64(o.ConnectTimeout),
		ReadTimeout:        int64(o.ReadTimeout),
		WriteTimeout:       int64(o.WriteTimeout),
		Nonblock:           o.Nonblock,
		Proxy:              o.Proxy.toModel(),
		TLSConfig:          o.TLSConfig,
		InsecureSkipVerify: o.InsecureSkipVerify,
		Family:             o.Family,
		InstrumentorName:   o.InstrumentorName,
		Captures:           o.Captures,
		Pipeline:           o.Pipeline,
	}
	if o.Instrumentor != nil {
		d.Instrumentor = o.Instrumentor
	}
	if o.RawQuery != "" || o.Query != nil {
		d.HasQuery = true
		d.UseRawQuery = o.Query == nil
		d.QueryStr = o.RawQuery
		d.Query = queryToModel(o.Query)
	}
	if o.Expects != nil {
		d.HasExpects = true
		d.Expects = expectsSet(o.Expects)
	}
	if len(o.Middlewares) != 0 {
		d.Stack = o.Middlewares
	}
	if o.User != "" || o.Password != "" {
		d.Header.Set("Authorization", basicAuth(o.User, o.Password))
	}
	return d
}

func normalizeMethod(m string) string {
	if m == "" {
		return ""
	}
	out := make([]byte, len(m))
	for i := 0; i < len(m); i++ {
		c := m[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
