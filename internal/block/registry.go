package block

import "fmt"

// Registry maps manifest block type names to factories. Unknown names are
// caught at manifest validation time, not at mount time.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under a type name. Registering the same name twice
// is a programmer error and panics, mirroring startup-time wiring mistakes.
func (r *Registry) Register(name string, factory Factory) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("block factory %q already registered", name))
	}
	r.factories[name] = factory
}

// Has reports whether a type name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// New instantiates a block for the given type name.
func (r *Registry) New(name string) (Block, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown block type %q", name)
	}
	return factory(), nil
}

// Names returns the registered type names, for diagnostics.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}
