package model

import "strings"

// HeaderField is one header name together with its ordered list of values.
type HeaderField struct {
	Name   string
	Values []string
}

// Header is the ordered multi-map backing Datum.Header. Names are compared
// case-insensitively but never canonicalized on write. It exists for the
// same reason QueryValues does: a Go map's iteration order is unspecified,
// so §8's "emission order matches insertion order" property needs a slice,
// not a map, to carry the ordering guarantee.
type Header []HeaderField

func (h Header) find(name string) int {
	for i := range h {
		if strings.EqualFold(h[i].Name, name) {
			return i
		}
	}
	return -1
}

// Get returns the first value for name, or "" if absent.
func (h Header) Get(name string) string {
	if i := h.find(name); i >= 0 && len(h[i].Values) > 0 {
		return h[i].Values[0]
	}
	return ""
}

// Values returns every value for name, in insertion order, or nil if absent.
func (h Header) Values(name string) []string {
	if i := h.find(name); i >= 0 {
		return h[i].Values
	}
	return nil
}

// Set replaces every existing value for name, keeping name's current
// position if already present, or appending it at the end if not.
func (h *Header) Set(name, value string) {
	if i := h.find(name); i >= 0 {
		(*h)[i].Values = []string{value}
		return
	}
	*h = append(*h, HeaderField{Name: name, Values: []string{value}})
}

// Add appends value to name's existing values, or inserts name at the end.
func (h *Header) Add(name, value string) {
	if i := h.find(name); i >= 0 {
		(*h)[i].Values = append((*h)[i].Values, value)
		return
	}
	*h = append(*h, HeaderField{Name: name, Values: []string{value}})
}

// Del removes name entirely. A no-op if name is absent.
func (h *Header) Del(name string) {
	i := h.find(name)
	if i < 0 {
		return
	}
	*h = append((*h)[:i], (*h)[i+1:]...)
}

// Clone deep-copies h, preserving order. A nil Header clones to nil.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	out := make(Header, len(h))
	for i, f := range h {
		out[i] = HeaderField{Name: f.Name, Values: append([]string(nil), f.Values...)}
	}
	return out
}
