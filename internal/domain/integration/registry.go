package integration

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps a Source to its Adapter. It is constructed at startup and
// passed to the components that need it, so tests can register doubles.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Source]Adapter
}

// NewRegistry creates a registry pre-populated with the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Source]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for its source.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Source()] = a
}

// Get returns the adapter registered for source.
func (r *Registry) Get(source Source) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, source)
	}
	return a, nil
}

// Sources returns the registered sources in lexical order.
func (r *Registry) Sources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Source, 0, len(r.adapters))
	for s := range r.adapters {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
