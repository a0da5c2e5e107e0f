// Package validation lints raw form definition documents for editors and
// the CLI.
package validation

import (
	"errors"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/formsource"
	"github.com/goliatone/go-formflow/pkg/model"
)

// Issue is one problem with its JSON pointer location.
type Issue struct {
	FormID  string `json:"formId,omitempty"`
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Result captures the outcome of a lint run.
type Result struct {
	Valid  bool     `json:"valid"`
	Forms  []string `json:"forms,omitempty"`
	Issues []Issue  `json:"issues,omitempty"`
}

// ValidateDefinition parses raw (JSON or YAML, one form or a "forms" list)
// and reports every structural issue of every form.
func ValidateDefinition(raw []byte, source string) Result {
	if source == "" {
		source = "definition"
	}
	result := Result{Valid: true}

	defs, err := formsource.DecodeDocument(raw, source)
	if err != nil {
		return Result{Issues: []Issue{{Message: strings.TrimPrefix(err.Error(), "formsource: ")}}}
	}

	seen := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		result.Forms = append(result.Forms, def.ID)
		if _, dup := seen[def.ID]; dup && def.ID != "" {
			result.Issues = append(result.Issues, Issue{FormID: def.ID, Path: "/id", Message: "duplicate form id " + strconv.Quote(def.ID)})
		}
		seen[def.ID] = struct{}{}

		err := def.Validate()
		var invalid *model.InvalidDefinitionError
		if errors.As(err, &invalid) {
			for _, issue := range invalid.Issues {
				result.Issues = append(result.Issues, Issue{
					FormID:  def.ID,
					Path:    issue.Path,
					Field:   fieldFromPointer(def, issue.Path),
					Message: issue.Message,
				})
			}
		}
	}
	result.Valid = len(result.Issues) == 0
	return result
}

// fieldFromPointer resolves "/steps/{i}/fields/{j}/..." to the id of that
// field, falling back to the step id for step-level pointers.
func fieldFromPointer(def model.FormDefinition, pointer string) string {
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	if len(parts) < 2 || parts[0] != "steps" {
		return ""
	}
	si, err := strconv.Atoi(parts[1])
	if err != nil || si < 0 || si >= len(def.Steps) {
		return ""
	}
	step := def.Steps[si]
	if len(parts) < 4 || parts[2] != "fields" {
		return step.ID
	}
	fi, err := strconv.Atoi(parts[3])
	if err != nil || fi < 0 || fi >= len(step.Fields) {
		return step.ID
	}
	if id := step.Fields[fi].ID; id != "" {
		return id
	}
	return step.ID + "." + parts[3]
}
