package model

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func validForm() FormDefinition {
	return FormDefinition{
		ID: "contact",
		Steps: []Step{
			{ID: "one", Fields: []Field{
				{ID: "name", Type: FieldTypeShortText, Required: true},
				{ID: "age", Type: FieldTypeNumber, Validations: []ValidationRule{
					{Kind: ValidationRuleMin, Params: map[string]string{"value": "18"}},
				}},
			}},
			{ID: "two", Fields: []Field{
				{ID: "plan", Type: FieldTypeSelect, Options: []Option{{Value: "free"}, {Value: "pro"}}},
			}},
		},
	}
}

func TestValidate_AcceptsWellFormedDefinition(t *testing.T) {
	if err := validForm().Validate(); err != nil {
		t.Fatalf("expected valid definition, got %v", err)
	}
}

func TestValidate_ReportsIssues(t *testing.T) {
	form := FormDefinition{
		Steps: []Step{
			{ID: "one", Fields: []Field{
				{ID: "email", Type: FieldTypeEmail},
				{ID: "email", Type: FieldTypeEmail},
				{ID: "", Type: FieldTypeShortText},
			}},
			{ID: "one", Fields: []Field{
				{ID: "email", Type: FieldTypeShortText},
				{ID: "size", Type: FieldTypeRadio},
				{ID: "plan", Type: FieldTypeSelect, Options: []Option{{Value: "a"}, {Value: "a"}, {Value: " "}}},
				{ID: "bio", Type: FieldTypeParagraph, Validations: []ValidationRule{
					{Kind: ValidationRuleMaxLength, Params: map[string]string{"value": "-1"}},
					{Kind: ValidationRulePattern, Params: map[string]string{"pattern": "("}},
					{Kind: "unique"},
				}},
			}},
			{ID: "three"},
		},
	}

	err := form.Validate()
	if !errors.Is(err, ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
	var invalid *InvalidDefinitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidDefinitionError, got %T", err)
	}

	paths := make([]string, 0, len(invalid.Issues))
	for _, issue := range invalid.Issues {
		paths = append(paths, issue.Path)
	}
	want := []string{
		"/id",
		"/steps/0/fields/1/id",
		"/steps/0/fields/2/id",
		"/steps/1/id",
		"/steps/1/fields/0/id",
		"/steps/1/fields/1/options",
		"/steps/1/fields/2/options/1/value",
		"/steps/1/fields/2/options/2/value",
		"/steps/1/fields/3/validations/0/params/value",
		"/steps/1/fields/3/validations/1/params/pattern",
		"/steps/1/fields/3/validations/2/kind",
		"/steps/2/fields",
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("issue paths mismatch (-want +got):\n%s", diff)
	}
	if got := invalid.Issues[4].Message; got != `field id "email" already declared in step 0` {
		t.Fatalf("unexpected cross-step message %q", got)
	}
}

func TestValidate_NoSteps(t *testing.T) {
	err := FormDefinition{ID: "empty"}.Validate()
	var invalid *InvalidDefinitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidDefinitionError, got %v", err)
	}
	if diff := cmp.Diff([]Issue{{Path: "/steps", Message: "at least one step is required"}}, invalid.Issues); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldTypeNormalize(t *testing.T) {
	cases := map[FieldType]FieldType{
		"":          FieldTypeShortText,
		"TEXT":      FieldTypeShortText,
		" textarea": FieldTypeParagraph,
		"dropdown":  FieldTypeSelect,
		"toggle":    FieldTypeCheckbox,
		"email":     FieldTypeEmail,
		"signature": "signature",
	}
	for in, want := range cases {
		if got := in.Normalize(); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
	if FieldType("signature").Known() {
		t.Fatal("unknown type reported as known")
	}
	if !FieldTypeRadio.HasOptions() || FieldTypeCheckbox.HasOptions() {
		t.Fatal("HasOptions mismatch")
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{"": ModeEmbed, "embed": ModeEmbed, " Preview ": ModePreview}
	for raw, want := range cases {
		got, err := ParseMode(raw)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParseMode("draft"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestSubmissionStateCloneAndMerge(t *testing.T) {
	state := SubmissionState{"a": 1}
	clone := state.Clone()
	clone.Merge(map[string]any{"a": 2, "b": "x"})

	if state["a"] != 1 {
		t.Fatal("clone shares storage with original")
	}
	if diff := cmp.Diff(SubmissionState{"a": 2, "b": "x"}, clone); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
	var nilState SubmissionState
	if got := nilState.Clone(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty clone of nil state, got %v", got)
	}
}
