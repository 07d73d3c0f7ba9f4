package hlo

import "fmt"

// Module is a program: computations with one entry. The rest are embedded
// and reachable only through invoking instructions.
type Module struct {
	name         string
	computations []*Computation
	entry        *Computation
}

func NewModule(name string) *Module {
	return &Module{name: name}
}

func (m *Module) Name() string { return m.name }

// AddEmbeddedComputation registers a computation that is invoked by others.
func (m *Module) AddEmbeddedComputation(c *Computation) *Computation {
	m.computations = append(m.computations, c)
	return c
}

// AddEntryComputation registers the entry computation. A module has exactly
// one; adding a second fails.
func (m *Module) AddEntryComputation(c *Computation) (*Computation, error) {
	if m.entry != nil {
		return nil, fmt.Errorf("module %q: %w: entry computation already set to %q", m.name, ErrMalformedGraph, m.entry.name)
	}
	m.entry = c
	m.computations = append(m.computations, c)
	return c, nil
}

// EntryComputation returns the entry, or nil when none was added.
func (m *Module) EntryComputation() *Computation { return m.entry }

// Computations returns every computation in registration order.
func (m *Module) Computations() []*Computation { return m.computations }

func (m *Module) ComputationByName(name string) (*Computation, bool) {
	for _, c := range m.computations {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// Contains reports whether c was registered in m.
func (m *Module) Contains(c *Computation) bool {
	for _, own := range m.computations {
		if own == c {
			return true
		}
	}
	return false
}
