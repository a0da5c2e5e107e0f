package apispec

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/model"
)

// DataError reports submission data that does not satisfy a form's data
// schema. Fields is keyed by the offending data key; Form holds problems
// that could not be pinned to a key.
type DataError struct {
	FormID string
	Fields map[string][]string
	Form   []string
}

func (e *DataError) Error() string {
	if e == nil {
		return "apispec: invalid submission data"
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)+len(e.Form))
	for _, key := range keys {
		parts = append(parts, key+": "+strings.Join(e.Fields[key], ", "))
	}
	parts = append(parts, e.Form...)
	return fmt.Sprintf("apispec: invalid submission data for form %q: %s", e.FormID, strings.Join(parts, "; "))
}

// FieldErrors exposes the per-field messages in the shape the submit
// package maps back onto steps.
func (e *DataError) FieldErrors() map[string][]string {
	if e == nil {
		return nil
	}
	out := make(map[string][]string, len(e.Fields)+1)
	for key, msgs := range e.Fields {
		out[key] = append([]string(nil), msgs...)
	}
	if len(e.Form) > 0 {
		out[""] = append([]string(nil), e.Form...)
	}
	return out
}

// ValidateData checks data against DataSchema(form). Values are normalised
// through JSON first so Go integer and map types validate the same way as a
// decoded request body.
func ValidateData(form model.FormDefinition, data map[string]any) error {
	normalised, err := normaliseData(data)
	if err != nil {
		return fmt.Errorf("apispec: normalise data: %w", err)
	}

	err = DataSchema(form).VisitJSON(normalised, openapi3.MultiErrors())
	if err == nil {
		return nil
	}

	result := &DataError{FormID: form.ID, Fields: make(map[string][]string)}
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, item := range multi {
			result.add(item)
		}
	} else {
		result.add(err)
	}
	if len(result.Fields) == 0 {
		result.Fields = nil
	}
	return result
}

func (e *DataError) add(err error) {
	var schemaErr *openapi3.SchemaError
	if !errors.As(err, &schemaErr) {
		e.Form = append(e.Form, err.Error())
		return
	}
	pointer := schemaErr.JSONPointer()
	if len(pointer) == 0 {
		e.Form = append(e.Form, schemaErr.Reason)
		return
	}
	key := pointer[0]
	e.Fields[key] = append(e.Fields[key], schemaErr.Reason)
}

func normaliseData(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
