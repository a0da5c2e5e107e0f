package components

import "github.com/goliatone/go-formflow/pkg/model"

// Canonical component names used by the vanilla renderer and default registry.
const (
	NameInput    = "input"
	NameTextarea = "textarea"
	NameSelect   = "select"
	NameRadio    = "radio"
	NameCheckbox = "checkbox"
)

// ForFieldType returns the default component for a field type. Unknown types
// degrade to a text input.
func ForFieldType(kind model.FieldType) string {
	switch kind.Normalize() {
	case model.FieldTypeParagraph:
		return NameTextarea
	case model.FieldTypeSelect:
		return NameSelect
	case model.FieldTypeRadio:
		return NameRadio
	case model.FieldTypeCheckbox:
		return NameCheckbox
	default:
		return NameInput
	}
}

// InputType returns the type attribute for fields rendered by the input
// component.
func InputType(kind model.FieldType) string {
	switch kind.Normalize() {
	case model.FieldTypeEmail:
		return "email"
	case model.FieldTypeNumber:
		return "number"
	default:
		return "text"
	}
}
