package render

import (
	"fmt"
	"slices"
	"strings"
)

// Registry resolves renderers by name. The first renderer passed to
// NewRegistry answers lookups for an empty name.
type Registry struct {
	byName map[string]Renderer
	order  []string
}

// NewRegistry indexes renderers by Name. Names must be unique and non-empty.
func NewRegistry(renderers ...Renderer) (*Registry, error) {
	r := &Registry{byName: make(map[string]Renderer, len(renderers))}
	for _, renderer := range renderers {
		if renderer == nil {
			return nil, fmt.Errorf("render: renderer is required")
		}
		name := strings.TrimSpace(renderer.Name())
		if name == "" {
			return nil, fmt.Errorf("render: renderer name is required")
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("render: renderer %q already registered", name)
		}
		r.byName[name] = renderer
		r.order = append(r.order, name)
	}
	return r, nil
}

// Get returns the renderer called name, or the default one for "".
func (r *Registry) Get(name string) (Renderer, error) {
	name = strings.TrimSpace(name)
	if name == "" && len(r.order) > 0 {
		name = r.order[0]
	}
	renderer, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("render: renderer %q not found (have %s)", name, strings.Join(r.List(), ", "))
	}
	return renderer, nil
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	names := slices.Clone(r.order)
	slices.Sort(names)
	return names
}
