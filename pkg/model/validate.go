package model

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidDefinition is matched by every *InvalidDefinitionError.
var ErrInvalidDefinition = errors.New("model: invalid form definition")

// Issue is a single structural problem located by a JSON pointer.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// InvalidDefinitionError collects all issues found by Validate.
type InvalidDefinitionError struct {
	FormID string
	Issues []Issue
}

func (e *InvalidDefinitionError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return ErrInvalidDefinition.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Path, issue.Message))
	}
	return fmt.Sprintf("model: invalid form definition %q: %s", e.FormID, strings.Join(parts, "; "))
}

// Is lets errors.Is match ErrInvalidDefinition.
func (e *InvalidDefinitionError) Is(target error) bool {
	return target == ErrInvalidDefinition
}

// Validate checks the structural invariants of a definition. Field ids must
// be unique within a step and across the whole form: the cumulative
// submission state is keyed by field id, so a repeated id would silently
// overwrite an earlier answer.
func (d FormDefinition) Validate() error {
	var issues []Issue
	add := func(path, format string, args ...any) {
		issues = append(issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(d.ID) == "" {
		add("/id", "form id is required")
	}
	if len(d.Steps) == 0 {
		add("/steps", "at least one step is required")
	}

	stepIDs := make(map[string]int, len(d.Steps))
	fieldOwners := make(map[string]int)

	for si, step := range d.Steps {
		stepPath := fmt.Sprintf("/steps/%d", si)
		if strings.TrimSpace(step.ID) == "" {
			add(stepPath+"/id", "step id is required")
		} else if prev, exists := stepIDs[step.ID]; exists {
			add(stepPath+"/id", "duplicate step id %q (also step %d)", step.ID, prev)
		} else {
			stepIDs[step.ID] = si
		}
		if len(step.Fields) == 0 {
			add(stepPath+"/fields", "step %q declares no fields", step.ID)
		}

		seen := make(map[string]struct{}, len(step.Fields))
		for fi, field := range step.Fields {
			fieldPath := fmt.Sprintf("%s/fields/%d", stepPath, fi)
			id := strings.TrimSpace(field.ID)
			if id == "" {
				add(fieldPath+"/id", "field id is required")
				continue
			}
			if _, dup := seen[id]; dup {
				add(fieldPath+"/id", "duplicate field id %q within step %q", id, step.ID)
				continue
			}
			seen[id] = struct{}{}
			if owner, exists := fieldOwners[id]; exists && owner != si {
				add(fieldPath+"/id", "field id %q already declared in step %d", id, owner)
			} else {
				fieldOwners[id] = si
			}

			issues = append(issues, validateField(fieldPath, field)...)
		}
	}

	if len(issues) == 0 {
		return nil
	}
	return &InvalidDefinitionError{FormID: d.ID, Issues: issues}
}

func validateField(path string, field Field) []Issue {
	var issues []Issue
	add := func(sub, format string, args ...any) {
		issues = append(issues, Issue{Path: path + sub, Message: fmt.Sprintf(format, args...)})
	}

	kind := field.Type.Normalize()
	if kind.HasOptions() {
		if len(field.Options) == 0 {
			add("/options", "%s field %q requires options", kind, field.ID)
		}
		values := make(map[string]struct{}, len(field.Options))
		for oi, option := range field.Options {
			if strings.TrimSpace(option.Value) == "" {
				add(fmt.Sprintf("/options/%d/value", oi), "option value is required")
				continue
			}
			if _, dup := values[option.Value]; dup {
				add(fmt.Sprintf("/options/%d/value", oi), "duplicate option value %q", option.Value)
			}
			values[option.Value] = struct{}{}
		}
	}

	for ri, rule := range field.Validations {
		rulePath := fmt.Sprintf("/validations/%d", ri)
		switch rule.Kind {
		case ValidationRuleMin, ValidationRuleMax:
			if _, err := strconv.ParseFloat(rule.Params["value"], 64); err != nil {
				add(rulePath+"/params/value", "%s requires a numeric value", rule.Kind)
			}
		case ValidationRuleMinLength, ValidationRuleMaxLength:
			if n, err := strconv.Atoi(rule.Params["value"]); err != nil || n < 0 {
				add(rulePath+"/params/value", "%s requires a non-negative integer", rule.Kind)
			}
		case ValidationRulePattern:
			if _, err := regexp.Compile(rule.Params["pattern"]); err != nil {
				add(rulePath+"/params/pattern", "invalid pattern: %v", err)
			}
		default:
			add(rulePath+"/kind", "unknown validation rule %q", rule.Kind)
		}
	}
	return issues
}
