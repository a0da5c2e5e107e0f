package model

import "strings"

// Decorator normalises or enriches a definition after it has been decoded and
// before it is validated.
type Decorator interface {
	Decorate(*FormDefinition) error
}

// DecoratorFunc adapts a function into a Decorator.
type DecoratorFunc func(*FormDefinition) error

// Decorate calls the underlying function.
func (fn DecoratorFunc) Decorate(form *FormDefinition) error {
	return fn(form)
}

// NormalizeDecorator canonicalises field types, fills missing labels and
// option labels, and trims ids. It never fails.
func NormalizeDecorator() Decorator {
	return DecoratorFunc(func(form *FormDefinition) error {
		if form == nil {
			return nil
		}
		form.ID = strings.TrimSpace(form.ID)
		for si := range form.Steps {
			step := &form.Steps[si]
			step.ID = strings.TrimSpace(step.ID)
			for fi := range step.Fields {
				field := &step.Fields[fi]
				field.ID = strings.TrimSpace(field.ID)
				field.Type = field.Type.Normalize()
				if strings.TrimSpace(field.Label) == "" {
					field.Label = DefaultLabeler(field.ID)
				}
				for oi := range field.Options {
					option := &field.Options[oi]
					if option.Label == "" {
						option.Label = option.Value
					}
				}
			}
		}
		for i, domain := range form.Domains {
			form.Domains[i] = strings.ToLower(strings.TrimSpace(domain))
		}
		return nil
	})
}

// ApplyDecorators runs decorators in order and stops at the first error.
func ApplyDecorators(form *FormDefinition, decorators ...Decorator) error {
	for _, decorator := range decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(form); err != nil {
			return err
		}
	}
	return nil
}
