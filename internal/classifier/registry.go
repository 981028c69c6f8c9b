package classifier

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a Loader for a backend
type Factory func(opts Options) (Loader, error)

// Registry manages available classifier backends
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty backend registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a backend factory, replacing any previous one with that name
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// List returns registered backend names in sorted order
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

// NewLoader builds the loader for opts.Backend
func (r *Registry) NewLoader(opts Options) (Loader, error) {
	r.mu.RLock()
	factory, exists := r.factories[opts.Backend]
	r.mu.RUnlock()

	if !exists {
		return nil, NewConfigurationError(opts.Backend, "backend", fmt.Sprintf("unknown backend %q (available: %v)", opts.Backend, r.List()))
	}
	return factory(opts)
}
