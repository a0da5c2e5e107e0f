package components

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	rendertemplate "github.com/goliatone/go-formflow/pkg/render/template"
)

// Field is the template view of a single form field. Values are already
// stringified and descriptions sanitised.
type Field struct {
	ID          string   `json:"id"`
	ControlID   string   `json:"controlId"`
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Kind        string   `json:"kind"`
	InputType   string   `json:"inputType,omitempty"`
	Component   string   `json:"component"`
	Required    bool     `json:"required"`
	Placeholder string   `json:"placeholder,omitempty"`
	Description string   `json:"description,omitempty"`
	Value       string   `json:"value"`
	Checked     bool     `json:"checked,omitempty"`
	Options     []Option `json:"options,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	OwnsLabel   bool     `json:"ownsLabel,omitempty"`
}

// Option is the template view of a select or radio option.
type Option struct {
	ID       string `json:"id"`
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// Renderer writes the control markup for field into buf.
type Renderer func(buf *bytes.Buffer, field Field, data ComponentData) error

// ComponentData carries the template engine and theme partial overrides.
type ComponentData struct {
	Template rendertemplate.TemplateRenderer
	Partials map[string]string
}

// Descriptor bundles a renderer with its chrome behaviour and stylesheet
// dependencies. OwnsLabel components render their own label (checkbox label
// beside the toggle, radio legend) so the chrome must not add one.
type Descriptor struct {
	Name        string
	Renderer    Renderer
	OwnsLabel   bool
	Stylesheets []string
}

// Registry maps component names to descriptors. It is immutable; With
// returns an extended copy, so one registry can be shared by concurrent
// renders.
type Registry struct {
	byName map[string]Descriptor
}

// New builds a registry from descriptors. Later entries replace earlier ones
// with the same name.
func New(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{byName: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if err := r.put(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// With returns a copy of r in which d is registered, replacing any component
// of the same name. r itself is unchanged.
func (r *Registry) With(d Descriptor) (*Registry, error) {
	next := &Registry{byName: make(map[string]Descriptor, len(r.byName)+1)}
	for name, existing := range r.byName {
		next.byName[name] = existing
	}
	if err := next.put(d); err != nil {
		return nil, err
	}
	return next, nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[normalize(name)]
	if !ok {
		return Descriptor{}, false
	}
	d.Stylesheets = slices.Clone(d.Stylesheets)
	return d, true
}

// Names returns the registered component names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Stylesheets collects the stylesheets the named components depend on, in
// order and without duplicates.
func (r *Registry) Stylesheets(names []string) []string {
	var out []string
	for _, name := range names {
		for _, href := range r.byName[normalize(name)].Stylesheets {
			if href != "" && !slices.Contains(out, href) {
				out = append(out, href)
			}
		}
	}
	return out
}

func (r *Registry) put(d Descriptor) error {
	name := normalize(d.Name)
	if name == "" {
		return fmt.Errorf("components: component name is required")
	}
	if d.Renderer == nil {
		return fmt.Errorf("components: renderer for %q is nil", name)
	}
	d.Name = name
	d.Stylesheets = slices.Clone(d.Stylesheets)
	r.byName[name] = d
	return nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
