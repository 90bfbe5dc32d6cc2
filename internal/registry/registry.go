package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Module is the interface that operator bundles implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all registered operator factories for one application
// instance. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New creates a registry and lets each module register its operators.
func New(modules ...Module) *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	for _, mod := range modules {
		mod.Register(r)
	}
	return r
}

// Register maps an operator type name to a factory. Registering the same name
// twice is a programmer error and panics.
func (r *Registry) Register(name string, factory Factory) {
	if name == "" {
		panic("operator name must not be empty")
	}
	if factory == nil {
		panic(fmt.Sprintf("operator '%s' registered with nil factory", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("operator with name '%s' already registered", name))
	}
	slog.Debug("Registering operator.", "name", name)
	r.factories[name] = factory
}

// Lookup implements the Lookup interface.
func (r *Registry) Lookup(operatorType string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[operatorType]
	return f, ok
}

// Describe returns the declared spec of an operator, if its factory has one.
func (r *Registry) Describe(operatorType string) (OperatorSpec, bool) {
	f, ok := r.Lookup(operatorType)
	if !ok {
		return OperatorSpec{}, false
	}
	d, ok := f.(Describer)
	if !ok {
		return OperatorSpec{}, false
	}
	return d.Describe(), true
}

// List returns the sorted names of all registered operators.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
