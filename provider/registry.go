package provider

import (
	"sort"
	"sync"
)

// Registry holds named provider instances.
type Registry[T Provider] struct {
	mu        sync.RWMutex
	instances map[string]T
}

// NewRegistry creates a new empty Registry.
func NewRegistry[T Provider]() *Registry[T] {
	return &Registry[T]{instances: make(map[string]T)}
}

// Register stores p under its own name, replacing any previous entry.
func (r *Registry[T]) Register(p T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[p.Name()] = p
}

// Get returns a provider by name.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	return inst, ok
}

// List returns the sorted names of registered providers.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
