package capability

import (
	"sort"
	"sync"
)

// Registry holds the capability types of one invocation. Plugins register
// their types against a registry built fresh per run.
type Registry struct {
	mu    sync.Mutex
	types map[string]*Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Register creates a capability type and records it. A second registration
// of the same name fails.
func (r *Registry) Register(name string, opts ...TypeOption) (*Type, error) {
	t, err := NewType(name, opts...)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[name]; exists {
		return nil, &DuplicateTypeError{Name: name}
	}
	r.types[name] = t
	return t, nil
}

// Add records an already-created type. Adding the same *Type twice is a
// no-op; a different type with the same name fails.
func (r *Registry) Add(t *Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, exists := r.types[t.name]; exists {
		if prev == t {
			return nil
		}
		return &DuplicateTypeError{Name: t.name}
	}
	r.types[t.name] = t
	return nil
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (*Type, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.types[name]
	return t, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
