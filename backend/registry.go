package backend

import (
	"fmt"
	"sort"
	"sync"
)

// Kind identifies a rendering backend.
type Kind int

const (
	// Auto asks the selector to pick the best available backend.
	Auto Kind = iota
	// Vulkan is the preferred GPU backend (gogpu/wgpu Vulkan HAL).
	Vulkan
	// Software is the CPU fallback backend. It is always available.
	Software
)

// String returns the backend name.
func (k Kind) String() string {
	switch k {
	case Auto:
		return "auto"
	case Vulkan:
		return "vulkan"
	case Software:
		return "software"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses a backend name as produced by String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "auto", "":
		return Auto, nil
	case "vulkan":
		return Vulkan, nil
	case "software":
		return Software, nil
	default:
		return Auto, fmt.Errorf("%w: unknown backend %q", ErrBackendNotAvailable, s)
	}
}

// Registry holds backend factories by kind.
//
// Registry is safe for concurrent use. The zero value is not usable;
// create one with NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[Kind]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Kind]Factory)}
}

// defaultRegistry is where backend packages register from init().
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry that backend packages
// register themselves into on import.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register registers a factory under its Kind.
// If a factory for the same kind is already registered, it is replaced.
func (r *Registry) Register(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[f.Kind()] = f
}

// Unregister removes the factory for kind.
// This is useful for testing.
func (r *Registry) Unregister(kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, kind)
}

// Get returns the factory for kind, or nil if none is registered.
func (r *Registry) Get(kind Kind) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[kind]
}

// Available returns the registered kinds in ascending order.
func (r *Registry) Available() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Probe reports whether kind is registered and its runtime is loadable.
// Registry therefore satisfies Prober.
func (r *Registry) Probe(kind Kind) bool {
	f := r.Get(kind)
	return f != nil && f.Available()
}

// Register registers a factory in the default registry.
// This is typically called from init() functions in backend packages.
func Register(f Factory) {
	defaultRegistry.Register(f)
}

// Unregister removes a factory from the default registry.
func Unregister(kind Kind) {
	defaultRegistry.Unregister(kind)
}

// Get returns a factory from the default registry.
func Get(kind Kind) Factory {
	return defaultRegistry.Get(kind)
}

// Available returns the kinds registered in the default registry.
func Available() []Kind {
	return defaultRegistry.Available()
}
