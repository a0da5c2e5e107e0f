package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
)

const invalidEmailMessage = "Invalid email address"

// Rule validates one field's raw value. present reports whether the key was
// supplied at all. When keep is false the field is omitted from the cleaned
// output.
type Rule interface {
	Field() model.Field
	Check(raw any, present bool) (value any, keep bool, messages []string)
}

// TextRule covers short-text, paragraph, select, radio, and unknown types.
// Select and radio fields restrict non-empty values to the declared options.
type TextRule struct {
	field       model.Field
	options     []string
	constraints []model.ValidationRule
}

// EmailRule is a text rule with an address shape check.
type EmailRule struct {
	text TextRule
}

// NumberRule coerces numeric strings and accepts native numbers.
type NumberRule struct {
	field       model.Field
	constraints []model.ValidationRule
}

// BooleanRule covers checkbox fields. A required checkbox must be checked.
type BooleanRule struct {
	field model.Field
}

func newRule(field model.Field) Rule {
	field.Type = field.Type.Normalize()
	switch field.Type {
	case model.FieldTypeEmail:
		return EmailRule{text: TextRule{field: field, constraints: field.Validations}}
	case model.FieldTypeNumber:
		return NumberRule{field: field, constraints: field.Validations}
	case model.FieldTypeCheckbox:
		return BooleanRule{field: field}
	case model.FieldTypeSelect, model.FieldTypeRadio:
		return TextRule{field: field, options: field.OptionValues(), constraints: field.Validations}
	default:
		return TextRule{field: field, constraints: field.Validations}
	}
}

func requiredMessage(field model.Field) string {
	return field.DisplayLabel() + " is required"
}

// Field returns the field the rule was built from.
func (r TextRule) Field() model.Field { return r.field }

// Check implements Rule.
func (r TextRule) Check(raw any, present bool) (any, bool, []string) {
	text, ok := asText(raw)
	if !ok {
		return nil, false, []string{r.field.DisplayLabel() + " must be text"}
	}
	if strings.TrimSpace(text) == "" {
		if r.field.Required {
			return nil, false, []string{requiredMessage(r.field)}
		}
		return nil, false, nil
	}

	var messages []string
	if len(r.options) > 0 && !slices.Contains(r.options, text) {
		messages = append(messages, r.field.DisplayLabel()+" has an invalid selection")
	}
	messages = append(messages, checkTextConstraints(r.field, text, r.constraints)...)
	if len(messages) > 0 {
		return nil, false, messages
	}
	return text, true, nil
}

// Field returns the field the rule was built from.
func (r EmailRule) Field() model.Field { return r.text.field }

// Check implements Rule. An empty required email reports the address
// message rather than the required one.
func (r EmailRule) Check(raw any, present bool) (any, bool, []string) {
	text, ok := asText(raw)
	if !ok {
		return nil, false, []string{invalidEmailMessage}
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		if r.text.field.Required {
			return nil, false, []string{invalidEmailMessage}
		}
		return nil, false, nil
	}
	if err := getValidator().Var(trimmed, "email"); err != nil {
		return nil, false, []string{invalidEmailMessage}
	}
	if messages := checkTextConstraints(r.text.field, trimmed, r.text.constraints); len(messages) > 0 {
		return nil, false, messages
	}
	return trimmed, true, nil
}

var numericPattern = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)

// Field returns the field the rule was built from.
func (r NumberRule) Field() model.Field { return r.field }

// Check implements Rule.
func (r NumberRule) Check(raw any, present bool) (any, bool, []string) {
	notNumber := []string{r.field.DisplayLabel() + " must be a number"}

	var number any
	switch typed := raw.(type) {
	case nil:
		number = nil
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			number = nil
			break
		}
		parsed, ok := parseNumber(trimmed)
		if !ok {
			return nil, false, notNumber
		}
		number = parsed
	case json.Number:
		parsed, ok := parseNumber(typed.String())
		if !ok {
			return nil, false, notNumber
		}
		number = parsed
	case int:
		number = int64(typed)
	case int32:
		number = int64(typed)
	case int64:
		number = typed
	case float32:
		number = float64(typed)
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return nil, false, notNumber
		}
		number = typed
	default:
		return nil, false, notNumber
	}

	if number == nil {
		if r.field.Required {
			return nil, false, []string{requiredMessage(r.field)}
		}
		return nil, false, nil
	}

	if messages := checkNumberConstraints(r.field, toFloat(number), r.constraints); len(messages) > 0 {
		return nil, false, messages
	}
	return number, true, nil
}

// Field returns the field the rule was built from.
func (r BooleanRule) Field() model.Field { return r.field }

// Check implements Rule. Absent checkboxes are omitted from the output.
func (r BooleanRule) Check(raw any, present bool) (any, bool, []string) {
	checked, ok := asBool(raw)
	if !ok {
		return nil, false, []string{r.field.DisplayLabel() + " must be true or false"}
	}
	if r.field.Required && !checked {
		return nil, false, []string{requiredMessage(r.field)}
	}
	if !present {
		return nil, false, nil
	}
	return checked, true, nil
}

func asText(raw any) (string, bool) {
	switch typed := raw.(type) {
	case nil:
		return "", true
	case string:
		return typed, true
	case json.Number:
		return typed.String(), true
	case bool, int, int32, int64, float32, float64:
		return fmt.Sprint(typed), true
	case []string:
		if len(typed) == 1 {
			return typed[0], true
		}
		return "", len(typed) == 0
	default:
		return "", false
	}
}

func asBool(raw any) (bool, bool) {
	switch typed := raw.(type) {
	case nil:
		return false, true
	case bool:
		return typed, true
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "true", "on", "1", "yes", "checked":
			return true, true
		case "", "false", "off", "0", "no":
			return false, true
		}
	case []string:
		if len(typed) == 0 {
			return false, true
		}
		return asBool(typed[len(typed)-1])
	}
	return false, false
}

func parseNumber(raw string) (any, bool) {
	if !numericPattern.MatchString(raw) {
		return nil, false
	}
	if !strings.Contains(raw, ".") {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, true
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	return f, true
}

func toFloat(number any) float64 {
	switch typed := number.(type) {
	case int64:
		return float64(typed)
	case float64:
		return typed
	default:
		return math.NaN()
	}
}
