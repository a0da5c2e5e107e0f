package vanilla

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render/template"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla/components"
)

const (
	fieldChromeTemplate = "templates/components/field.tpl"
	fieldChromePartial  = "forms.field"
)

type componentRenderer struct {
	templates template.TemplateRenderer
	registry  *components.Registry
	partials  map[string]string

	usedComponents map[string]struct{}
}

func newComponentRenderer(templates template.TemplateRenderer, registry *components.Registry, partials map[string]string) *componentRenderer {
	if registry == nil {
		registry = components.NewDefaultRegistry()
	}
	return &componentRenderer{
		templates:      templates,
		registry:       registry,
		partials:       partials,
		usedComponents: make(map[string]struct{}),
	}
}

// render produces the full markup of one field: chrome, control and errors.
func (r *componentRenderer) render(field model.Field, value any, present bool, errs []string) (string, error) {
	componentName := components.ForFieldType(field.Type)
	descriptor, ok := r.registry.Lookup(componentName)
	if !ok {
		return "", fmt.Errorf("component %q not registered for field %q", componentName, field.ID)
	}

	view := buildFieldView(field, value, present, errs)
	view.Component = descriptor.Name
	view.OwnsLabel = descriptor.OwnsLabel

	var control bytes.Buffer
	data := components.ComponentData{Template: r.templates, Partials: r.partials}
	if err := descriptor.Renderer(&control, view, data); err != nil {
		return "", fmt.Errorf("render component %q for field %q: %w", componentName, field.ID, err)
	}
	r.usedComponents[descriptor.Name] = struct{}{}

	chrome := fieldChromeTemplate
	if candidate := strings.TrimSpace(r.partials[fieldChromePartial]); candidate != "" {
		chrome = candidate
	}
	out, err := r.templates.RenderTemplate(chrome, map[string]any{
		"field":   view,
		"control": strings.TrimSpace(control.String()),
	})
	if err != nil {
		return "", fmt.Errorf("render chrome for field %q: %w", field.ID, err)
	}
	return out, nil
}

func (r *componentRenderer) stylesheets() []string {
	if len(r.usedComponents) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.usedComponents))
	for name := range r.usedComponents {
		names = append(names, name)
	}
	slices.Sort(names)
	return r.registry.Stylesheets(names)
}

// buildFieldView converts a field and its current value into the template
// view. Absent values fall back to the field default.
func buildFieldView(field model.Field, value any, present bool, errs []string) components.Field {
	if !present {
		value = field.Default
	}
	kind := field.Type.Normalize()
	view := components.Field{
		ID:          field.ID,
		ControlID:   field.ID,
		Name:        field.ID,
		Label:       field.DisplayLabel(),
		Kind:        string(kind),
		Required:    field.Required,
		Placeholder: field.Placeholder,
		Value:       stringValue(value),
		Errors:      append([]string(nil), errs...),
	}
	if desc := strings.TrimSpace(field.Description); desc != "" {
		view.Description = sanitizeHTML(desc)
	}

	switch components.ForFieldType(kind) {
	case components.NameInput:
		view.InputType = components.InputType(kind)
	case components.NameCheckbox:
		view.Checked = truthy(value)
		view.Value = "true"
	case components.NameSelect, components.NameRadio:
		for _, option := range field.Options {
			label := option.Label
			if label == "" {
				label = option.Value
			}
			view.Options = append(view.Options, components.Option{
				ID:       field.ID + "-" + option.Value,
				Value:    option.Value,
				Label:    label,
				Selected: option.Value == view.Value,
			})
		}
	}
	return view
}
