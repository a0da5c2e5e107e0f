package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
)

// StepSchema validates the values of one step. The zero value accepts
// nothing and returns an empty state.
type StepSchema struct {
	order []string
	rules map[string]Rule
}

// Build maps each field onto its rule. Fields without an id are skipped;
// a repeated id keeps the first declaration.
func Build(fields []model.Field) StepSchema {
	schema := StepSchema{rules: make(map[string]Rule, len(fields))}
	for _, field := range fields {
		id := strings.TrimSpace(field.ID)
		if id == "" {
			continue
		}
		if _, exists := schema.rules[id]; exists {
			continue
		}
		field.ID = id
		schema.order = append(schema.order, id)
		schema.rules[id] = newRule(field)
	}
	return schema
}

// BuildStep is Build applied to a step's fields.
func BuildStep(step model.Step) StepSchema {
	return Build(step.Fields)
}

// Keys returns field ids in declaration order.
func (s StepSchema) Keys() []string {
	return append([]string(nil), s.order...)
}

// Rule returns the rule registered for a field id.
func (s StepSchema) Rule(id string) (Rule, bool) {
	rule, ok := s.rules[id]
	return rule, ok
}

// Validate checks values against every rule and returns the cleaned values.
// Keys that do not belong to the step are dropped. On failure the returned
// state is nil and the error is a *ValidationError.
func (s StepSchema) Validate(values map[string]any) (model.SubmissionState, error) {
	cleaned := make(model.SubmissionState, len(s.order))
	var fieldErrors map[string][]string

	for _, id := range s.order {
		raw, present := values[id]
		value, keep, messages := s.rules[id].Check(raw, present)
		if len(messages) > 0 {
			if fieldErrors == nil {
				fieldErrors = make(map[string][]string)
			}
			fieldErrors[id] = messages
			continue
		}
		if keep {
			cleaned[id] = value
		}
	}

	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}
	return cleaned, nil
}

// ValidationError carries per-field messages keyed by field id.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "schema: validation failed"
	}
	ids := make([]string, 0, len(e.Fields))
	for id := range e.Fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s: %s", id, strings.Join(e.Fields[id], ", ")))
	}
	return "schema: validation failed: " + strings.Join(parts, "; ")
}

// First returns the first message for a field, or "".
func (e *ValidationError) First(id string) string {
	if e == nil {
		return ""
	}
	if messages := e.Fields[id]; len(messages) > 0 {
		return messages[0]
	}
	return ""
}
