package model

import (
	"fmt"
	"strings"
)

// FieldType is the closed set of input kinds a form step can declare.
type FieldType string

const (
	FieldTypeShortText FieldType = "short-text"
	FieldTypeEmail     FieldType = "email"
	FieldTypeNumber    FieldType = "number"
	FieldTypeParagraph FieldType = "paragraph"
	FieldTypeSelect    FieldType = "select"
	FieldTypeRadio     FieldType = "radio"
	FieldTypeCheckbox  FieldType = "checkbox"
)

var fieldTypeAliases = map[string]FieldType{
	"":          FieldTypeShortText,
	"text":      FieldTypeShortText,
	"short":     FieldTypeShortText,
	"textarea":  FieldTypeParagraph,
	"long-text": FieldTypeParagraph,
	"dropdown":  FieldTypeSelect,
	"choice":    FieldTypeRadio,
	"boolean":   FieldTypeCheckbox,
	"toggle":    FieldTypeCheckbox,
}

// Normalize maps aliases onto the canonical kinds. Unknown kinds are returned
// unchanged so callers can decide how to degrade them.
func (t FieldType) Normalize() FieldType {
	key := strings.ToLower(strings.TrimSpace(string(t)))
	if alias, ok := fieldTypeAliases[key]; ok {
		return alias
	}
	return FieldType(key)
}

// Known reports whether the type is one of the canonical kinds.
func (t FieldType) Known() bool {
	switch t.Normalize() {
	case FieldTypeShortText, FieldTypeEmail, FieldTypeNumber, FieldTypeParagraph,
		FieldTypeSelect, FieldTypeRadio, FieldTypeCheckbox:
		return true
	default:
		return false
	}
}

// HasOptions reports whether the type renders from a declared option list.
func (t FieldType) HasOptions() bool {
	switch t.Normalize() {
	case FieldTypeSelect, FieldTypeRadio:
		return true
	default:
		return false
	}
}

const (
	ValidationRuleMin       = "min"
	ValidationRuleMax       = "max"
	ValidationRuleMinLength = "minLength"
	ValidationRuleMaxLength = "maxLength"
	ValidationRulePattern   = "pattern"
)

// ValidationRule is an extra constraint layered on top of the type rule.
// Numeric bounds and length limits encode their threshold in
// Params["value"]; pattern rules keep the expression in Params["pattern"].
// Params["message"] overrides the generated failure message.
type ValidationRule struct {
	Kind   string            `json:"kind" yaml:"kind" msgpack:"kind"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty" msgpack:"params,omitempty"`
}

// Option is a selectable value for select and radio fields.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Field models a single input inside a step.
type Field struct {
	ID          string           `json:"id" yaml:"id"`
	Label       string           `json:"label,omitempty" yaml:"label,omitempty"`
	Type        FieldType        `json:"type" yaml:"type"`
	Required    bool             `json:"required" yaml:"required"`
	Placeholder string           `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Options     []Option         `json:"options,omitempty" yaml:"options,omitempty"`
	Default     any              `json:"default,omitempty" yaml:"default,omitempty"`
	Validations []ValidationRule `json:"validations,omitempty" yaml:"validations,omitempty"`
}

// DisplayLabel returns the declared label or one derived from the id.
func (f Field) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return DefaultLabeler(f.ID)
}

// OptionValues lists the declared option values in order.
func (f Field) OptionValues() []string {
	if len(f.Options) == 0 {
		return nil
	}
	out := make([]string, 0, len(f.Options))
	for _, option := range f.Options {
		out = append(out, option.Value)
	}
	return out
}

// Step is an ordered group of fields presented together.
type Step struct {
	ID          string  `json:"id" yaml:"id"`
	Title       string  `json:"title,omitempty" yaml:"title,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field `json:"fields" yaml:"fields"`
}

// ThemeTokens are the caller-tunable appearance values of an embedded form.
// Every token is optional.
type ThemeTokens struct {
	PrimaryColor    string `json:"primaryColor,omitempty" yaml:"primaryColor,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty" yaml:"backgroundColor,omitempty"`
	TextColor       string `json:"textColor,omitempty" yaml:"textColor,omitempty"`
	BorderRadius    string `json:"borderRadius,omitempty" yaml:"borderRadius,omitempty"`
}

// IsZero reports whether no token is set.
func (t ThemeTokens) IsZero() bool {
	return t == ThemeTokens{}
}

// FormDefinition is the top-level document the pipeline consumes.
type FormDefinition struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	Steps          []Step            `json:"steps" yaml:"steps"`
	Domains        []string          `json:"domains,omitempty" yaml:"domains,omitempty"`
	Theme          ThemeTokens       `json:"theme,omitempty" yaml:"theme,omitempty"`
	SubmitEndpoint string            `json:"submitEndpoint,omitempty" yaml:"submitEndpoint,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Step returns the step at index or false when out of range.
func (d FormDefinition) Step(index int) (Step, bool) {
	if index < 0 || index >= len(d.Steps) {
		return Step{}, false
	}
	return d.Steps[index], true
}

// SubmissionState is the cumulative mapping from field id to entered value.
type SubmissionState map[string]any

// Clone returns a shallow copy; values are scalars after schema cleaning.
func (s SubmissionState) Clone() SubmissionState {
	if s == nil {
		return SubmissionState{}
	}
	out := make(SubmissionState, len(s))
	for key, value := range s {
		out[key] = value
	}
	return out
}

// Merge copies values into s; later values win on key collisions.
func (s SubmissionState) Merge(values map[string]any) {
	for key, value := range values {
		s[key] = value
	}
}

// Mode selects how a form is being shown.
type Mode string

const (
	// ModePreview is used by the form owner; it bypasses domain verification
	// and network submission.
	ModePreview Mode = "preview"
	// ModeEmbed renders inside a third-party page behind the domain gate.
	ModeEmbed Mode = "embed"
)

// ParseMode validates a raw mode flag. Empty input defaults to embed.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeEmbed:
		return ModeEmbed, nil
	case ModePreview:
		return ModePreview, nil
	default:
		return "", fmt.Errorf("model: unknown mode %q", raw)
	}
}
