package strategy

import "fmt"

// Registry owns the set of active strategy instances, keyed by name.
// Iteration order is insertion order so cycles evaluate strategies
// deterministically.
type Registry struct {
	order  []string
	byName map[string]Strategy
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Strategy)}
}

func (r *Registry) Add(s Strategy) error {
	name := s.Name()
	if name == "" {
		return fmt.Errorf("strategy name is required")
	}
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("duplicate strategy name %q", name)
	}
	r.byName[name] = s
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// List returns strategies in registration order.
func (r *Registry) List() []Strategy {
	out := make([]Strategy, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}
