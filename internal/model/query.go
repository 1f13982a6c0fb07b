package model

import (
	"net/url"
	"strings"
)

// EncodeQuery renders the Datum's query into the string that follows "?" on
// the wire. A raw QueryStr is used verbatim; otherwise Query is percent-
// encoded per entry, preserving insertion order, with a trailing "&" removed.
func (d *Datum) EncodeQuery() string {
	if d.UseRawQuery {
		return d.QueryStr
	}
	if len(d.Query) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range d.Query {
		if p.Bare || p.Values == nil {
			b.WriteString(url.QueryEscape(p.Key))
			b.WriteByte('&')
			continue
		}
		for _, v := range p.Values {
			b.WriteString(url.QueryEscape(p.Key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
			b.WriteByte('&')
		}
	}
	s := b.String()
	return strings.TrimSuffix(s, "&")
}
