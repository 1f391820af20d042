package dataset

import (
	"github.com/rotisserie/eris"
)

// Registry maps pipeline names to their definitions.
type Registry struct {
	defs  map[string]Definition
	order []string // insertion order for deterministic iteration
}

// NewRegistry creates a registry holding the built-in pipelines.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]Definition)}
	r.Register(Nationalities())
	return r
}

// Register adds d, replacing any definition of the same name in place.
func (r *Registry) Register(d Definition) {
	if r.defs == nil {
		r.defs = make(map[string]Definition)
	}
	if _, ok := r.defs[d.Name]; !ok {
		r.order = append(r.order, d.Name)
	}
	r.defs[d.Name] = d
}

// Get returns a definition by name.
func (r *Registry) Get(name string) (Definition, error) {
	d, ok := r.defs[name]
	if !ok {
		return Definition{}, eris.Errorf("dataset: unknown pipeline %q", name)
	}
	return d, nil
}

// Select returns the named definitions in the order given, or every
// definition when names is empty.
func (r *Registry) Select(names []string) ([]Definition, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	result := make([]Definition, 0, len(names))
	for _, name := range names {
		d, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

// All returns all definitions in registration order.
func (r *Registry) All() []Definition {
	result := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.defs[name])
	}
	return result
}

// AllNames returns all registered names in registration order.
func (r *Registry) AllNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
