package components

import (
	"bytes"
	"fmt"
	"strings"
)

const templatePrefix = "templates/components/"

// Partial keys a theme can use to replace a component template.
const (
	PartialInput    = "forms.input"
	PartialTextarea = "forms.textarea"
	PartialSelect   = "forms.select"
	PartialRadio    = "forms.radio"
	PartialCheckbox = "forms.checkbox"
)

// DefaultDescriptors lists the built-in components of the vanilla renderer.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{Name: NameInput, Renderer: templateComponentRenderer(PartialInput, "input")},
		{Name: NameTextarea, Renderer: templateComponentRenderer(PartialTextarea, "textarea")},
		{Name: NameSelect, Renderer: templateComponentRenderer(PartialSelect, "select")},
		{Name: NameRadio, Renderer: templateComponentRenderer(PartialRadio, "radio"), OwnsLabel: true},
		{Name: NameCheckbox, Renderer: templateComponentRenderer(PartialCheckbox, "checkbox"), OwnsLabel: true},
	}
}

// NewDefaultRegistry returns a registry holding DefaultDescriptors.
func NewDefaultRegistry() *Registry {
	registry, err := New(DefaultDescriptors()...)
	if err != nil {
		panic(err)
	}
	return registry
}

func templateComponentRenderer(partialKey, name string) Renderer {
	templateName := templatePrefix + name + ".tpl"
	return func(buf *bytes.Buffer, field Field, data ComponentData) error {
		if data.Template == nil {
			return fmt.Errorf("components: template renderer not configured for %q", templateName)
		}

		resolvedTemplate := templateName
		if candidate := strings.TrimSpace(data.Partials[partialKey]); candidate != "" {
			resolvedTemplate = candidate
		}

		rendered, err := data.Template.RenderTemplate(resolvedTemplate, map[string]any{
			"field": field,
		})
		if err != nil {
			return fmt.Errorf("components: render template %q: %w", resolvedTemplate, err)
		}
		buf.WriteString(rendered)
		return nil
	}
}
