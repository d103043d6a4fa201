package domain

import "sync"

// InstrumentRegistry tracks the instruments loaded into a simulation run
// in a thread-safe manner. Instruments are registered when the load
// manifest is processed; the report surface reads the registry while the
// run's results are served.
type InstrumentRegistry struct {
	mu          sync.RWMutex
	instruments map[string]bool
}

// NewInstrumentRegistry creates an empty InstrumentRegistry.
func NewInstrumentRegistry() *InstrumentRegistry {
	return &InstrumentRegistry{
		instruments: make(map[string]bool),
	}
}

// Register adds an instrument to the registry. Safe for concurrent use.
func (r *InstrumentRegistry) Register(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instruments[symbol] = true
}

// Exists returns true if the instrument has been registered. Safe for concurrent use.
func (r *InstrumentRegistry) Exists(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.instruments[symbol]
}

// List returns the registered instruments in unspecified order.
func (r *InstrumentRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.instruments))
	for symbol := range r.instruments {
		out = append(out, symbol)
	}
	return out
}
