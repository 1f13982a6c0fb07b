package model

// Merge overlays override on top of base and returns a new Datum for a
// single call. Scalar fields use override's value when it is non-zero;
// Header is merged one level deeper (base cloned, then override entries
// overlaid); everything else that override leaves as the zero value falls
// back to base. Neither base nor override is mutated.
func Merge(base, override *Datum) *Datum {
	d := *base // shallow copy of scalars

	if override.Scheme != "" {
		d.Scheme = override.Scheme
	}
	if override.Host != "" {
		d.Host = override.Host
	}
	if override.Port != "" {
		d.Port = override.Port
	}
	if override.Path != "" {
		d.Path = override.Path
	}
	if override.HasQuery {
		d.Query = override.Query
		d.QueryStr = override.QueryStr
		d.UseRawQuery = override.UseRawQuery
		d.HasQuery = true
	}
	if override.Method != "" {
		d.Method = override.Method
	}
	if override.Body != nil {
		d.Body = override.Body
	}
	if override.RequestBlock != nil {
		d.RequestBlock = override.RequestBlock
	}
	if override.ChunkSize != 0 {
		d.ChunkSize = override.ChunkSize
	}
	if override.HasExpects {
		d.Expects = override.Expects
		d.HasExpects = true
	}
	if override.Idempotent {
		d.Idempotent = true
	}
	if override.RetryLimit != 0 {
		d.RetryLimit = override.RetryLimit
	}
	if override.RetriesRemaining != 0 {
		d.RetriesRemaining = override.RetriesRemaining
	}
	if override.ConnectTimeout != 0 {
		d.ConnectTimeout = override.ConnectTimeout
	}
	if override.ReadTimeout != 0 {
		d.ReadTimeout = override.ReadTimeout
	}
	if override.WriteTimeout != 0 {
		d.WriteTimeout = override.WriteTimeout
	}
	if override.Nonblock {
		d.Nonblock = true
	}
	if override.ResponseBlock != nil {
		d.ResponseBlock = override.ResponseBlock
	}
	if override.Pipeline {
		d.Pipeline = true
	}
	if override.Instrumentor != nil {
		d.Instrumentor = override.Instrumentor
	}
	if override.InstrumentorName != "" {
		d.InstrumentorName = override.InstrumentorName
	}
	if override.Captures != nil {
		d.Captures = override.Captures
	}
	if override.Proxy != nil {
		d.Proxy = override.Proxy
	}
	if override.TLSConfig != nil {
		d.TLSConfig = override.TLSConfig
	}
	if override.InsecureSkipVerify {
		d.InsecureSkipVerify = true
	}
	if override.Family != "" {
		d.Family = override.Family
	}
	if len(override.Stack) != 0 {
		d.Stack = override.Stack
	}

	d.Header = mergeHeader(base.Header, override.Header)
	// Runtime fields never carry over from a previous call.
	d.Response = nil
	d.Connection = base.Connection

	return &d
}

// mergeHeader overlays override on top of base one header at a time: an
// override entry replaces base's values for that name in place if the name
// already exists, or is appended at the end if it doesn't. base's order is
// otherwise preserved.
func mergeHeader(base, override Header) Header {
	merged := base.Clone()
	for _, f := range override {
		values := append([]string(nil), f.Values...)
		if i := merged.find(f.Name); i >= 0 {
			merged[i].Values = values
			continue
		}
		merged = append(merged, HeaderField{Name: f.Name, Values: values})
	}
	return merged
}

// Normalize applies §4.6 step 2: defaults Method to GET, ensures a Host
// header (a defaulted Host is placed first), ensures Path begins with "/",
// and defaults RetriesRemaining to RetryLimit when unset.
func (d *Datum) Normalize() {
	if d.Method == "" {
		d.Method = "GET"
	}
	if d.Header.Get("Host") == "" {
		d.Header.Del("Host")
		d.Header = append(Header{{Name: "Host", Values: []string{d.HostPort()}}}, d.Header...)
	}
	if d.Path == "" {
		d.Path = "/"
	} else if d.Path[0] != '/' {
		d.Path = "/" + d.Path
	}
	if d.RetriesRemaining == 0 {
		d.RetriesRemaining = d.RetryLimit
	}
}

// HostPort renders "host:port" verbatim, matching §3's "headers['Host']
// defaults to host:port if absent" — the wire layer never suppresses a
// default port, since the reference scenarios (§8) show it included even
// when it matches the scheme's default (e.g. "Host: h:80").
func (d *Datum) HostPort() string {
	if d.Port == "" {
		return d.Host
	}
	return d.Host + ":" + d.Port
}
