package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownStrategy is returned when no factory is registered under a name.
var ErrUnknownStrategy = errors.New("unknown scheduling strategy")

const (
	ListStrategy            = "list"
	DependencyOrderStrategy = "dependency-order"

	// DefaultStrategy is used when no strategy is named.
	DefaultStrategy = ListStrategy
)

// Registry maps strategy names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.factories[ListStrategy] = NewList
	r.factories[DependencyOrderStrategy] = NewDependencyOrder
	return r
}

// Register adds a strategy. Names are unique.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" || f == nil {
		return fmt.Errorf("strategy name and factory are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("strategy '%s' is already registered", name)
	}
	r.factories[name] = f
	return nil
}

// Lookup returns the factory registered under name. An empty name selects
// DefaultStrategy.
func (r *Registry) Lookup(name string) (Factory, error) {
	if name == "" {
		name = DefaultStrategy
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s' (available: %v)", ErrUnknownStrategy, name, r.namesLocked())
	}
	return f, nil
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var builtin = NewRegistry()

// Lookup resolves a built-in strategy.
func Lookup(name string) (Factory, error) { return builtin.Lookup(name) }

// Names lists the built-in strategies.
func Names() []string { return builtin.Names() }
