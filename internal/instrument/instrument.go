// Package instrument implements the Instrumentor hook (§6, §10.4). The
// teacher tree never grows a logging dependency of its own — utils/netpool's
// connection.go reports errors with a bare log.Printf — so StandardInstrumentor
// is built the same way, on the standard log package.
package instrument

import (
	"fmt"
	"log"
	"os"
	"sort"
)

// Instrumentor receives named lifecycle/error events with a free-form
// payload. It matches internal/model.Instrumentor structurally.
type Instrumentor interface {
	Instrument(name string, payload map[string]interface{})
}

// StandardInstrumentor logs one line per event to a *log.Logger, prefixed by
// name. It is the only concrete Instrumentor the core ships, activated via
// the EXCON_STANDARD_INSTRUMENTOR / EXCON_DEBUG environment variables (§6).
type StandardInstrumentor struct {
	Name   string
	Logger *log.Logger
}

// NewStandardInstrumentor builds a StandardInstrumentor writing to stderr,
// matching the teacher's plain log.Printf idiom.
func NewStandardInstrumentor(name string) *StandardInstrumentor {
	if name == "" {
		name = "excon"
	}
	return &StandardInstrumentor{
		Name:   name,
		Logger: log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (s *StandardInstrumentor) Instrument(name string, payload map[string]interface{}) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b []byte
	b = append(b, s.Name...)
	b = append(b, '.')
	b = append(b, name...)
	for _, k := range keys {
		b = append(b, ' ')
		b = append(b, k...)
		b = append(b, '=')
		b = append(b, fmt.Sprintf("%v", payload[k])...)
	}
	s.Logger.Println(string(b))
}

// FromEnv returns a StandardInstrumentor if EXCON_STANDARD_INSTRUMENTOR or
// EXCON_DEBUG is set in the environment, matching the distilled spec's env
// var precedence (§6). It returns nil otherwise.
func FromEnv() Instrumentor {
	if v := os.Getenv("EXCON_STANDARD_INSTRUMENTOR"); v != "" {
		return NewStandardInstrumentor(v)
	}
	if os.Getenv("EXCON_DEBUG") != "" {
		return NewStandardInstrumentor("excon")
	}
	return nil
}
