package excon

import (
	"github.com/go-excon/excon/internal/instrument"
	"github.com/go-excon/excon/internal/model"
)

// Instrumentor receives named lifecycle/error events with a free-form
// payload (§6, §10.4).
type Instrumentor = model.Instrumentor

// StandardInstrumentor is the one concrete Instrumentor the core ships,
// logging one line per event on the standard log package (§10.1, §10.4).
type StandardInstrumentor = instrument.StandardInstrumentor

// NewStandardInstrumentor builds a StandardInstrumentor writing to stderr.
func NewStandardInstrumentor(name string) *StandardInstrumentor {
	return instrument.NewStandardInstrumentor(name)
}

// instrumentorFromEnv resolves EXCON_STANDARD_INSTRUMENTOR / EXCON_DEBUG
// (§6) into a default Instrumentor, or nil if neither is set.
func instrumentorFromEnv() Instrumentor {
	if i := instrument.FromEnv(); i != nil {
		return i
	}
	return nil
}
