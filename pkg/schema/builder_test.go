package schema_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
)

func contactFields() []model.Field {
	return []model.Field{
		{ID: "name", Label: "Full name", Type: model.FieldTypeShortText, Required: true},
		{ID: "email", Label: "Email", Type: model.FieldTypeEmail, Required: true},
		{ID: "age", Label: "Age", Type: model.FieldTypeNumber},
		{ID: "bio", Type: model.FieldTypeParagraph},
		{ID: "plan", Label: "Plan", Type: model.FieldTypeSelect, Options: []model.Option{
			{Label: "Basic", Value: "basic"},
			{Label: "Pro", Value: "pro"},
		}},
		{ID: "terms", Label: "Terms", Type: model.FieldTypeCheckbox, Required: true},
	}
}

func TestBuild_KeysFollowDeclarationOrder(t *testing.T) {
	s := schema.Build(contactFields())
	want := []string{"name", "email", "age", "bio", "plan", "terms"}
	if diff := cmp.Diff(want, s.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_RuleVariants(t *testing.T) {
	s := schema.Build(contactFields())
	cases := map[string]any{
		"name":  schema.TextRule{},
		"email": schema.EmailRule{},
		"age":   schema.NumberRule{},
		"plan":  schema.TextRule{},
		"terms": schema.BooleanRule{},
	}
	for id, want := range cases {
		rule, ok := s.Rule(id)
		if !ok {
			t.Fatalf("expected rule for %q", id)
		}
		if gotType, wantType := typeName(rule), typeName(want); gotType != wantType {
			t.Fatalf("%s: expected %s, got %s", id, wantType, gotType)
		}
	}
}

func TestValidate_CleansValidValues(t *testing.T) {
	s := schema.Build(contactFields())
	values, err := s.Validate(map[string]any{
		"name":    "Ada",
		"email":   " ada@example.com ",
		"age":     "36",
		"bio":     "",
		"plan":    "pro",
		"terms":   "on",
		"unknown": "dropped",
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	want := model.SubmissionState{
		"name":  "Ada",
		"email": "ada@example.com",
		"age":   int64(36),
		"plan":  "pro",
		"terms": true,
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("cleaned values mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_RequiredMessages(t *testing.T) {
	s := schema.Build(contactFields())
	_, err := s.Validate(map[string]any{"name": "   "})

	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}

	want := map[string][]string{
		"name":  {"Full name is required"},
		"email": {"Invalid email address"},
		"terms": {"Terms is required"},
	}
	if diff := cmp.Diff(want, verr.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_Email(t *testing.T) {
	cases := []struct {
		name     string
		required bool
		value    any
		wantErr  bool
	}{
		{name: "missing at", required: true, value: "not-an-email", wantErr: true},
		{name: "missing domain", required: true, value: "ada@", wantErr: true},
		{name: "valid", required: true, value: "a@b.com"},
		{name: "optional invalid", required: false, value: "nope", wantErr: true},
		{name: "optional empty", required: false, value: ""},
		{name: "optional absent", required: false, value: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := schema.Build([]model.Field{{ID: "email", Type: model.FieldTypeEmail, Required: tc.required}})
			values := map[string]any{}
			if tc.value != nil {
				values["email"] = tc.value
			}
			_, err := s.Validate(values)
			if tc.wantErr {
				var verr *schema.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected validation error, got %v", err)
				}
				if got := verr.First("email"); got != "Invalid email address" {
					t.Fatalf("expected email message, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidate_NumberCoercion(t *testing.T) {
	s := schema.Build([]model.Field{{ID: "qty", Label: "Quantity", Type: model.FieldTypeNumber, Required: true}})

	cases := []struct {
		in   any
		want any
	}{
		{in: "42", want: int64(42)},
		{in: "-3.5", want: -3.5},
		{in: 7, want: int64(7)},
		{in: 2.25, want: 2.25},
	}
	for _, tc := range cases {
		values, err := s.Validate(map[string]any{"qty": tc.in})
		if err != nil {
			t.Fatalf("validate %v: %v", tc.in, err)
		}
		if diff := cmp.Diff(tc.want, values["qty"]); diff != "" {
			t.Fatalf("coerced value mismatch for %v (-want +got):\n%s", tc.in, diff)
		}
	}

	_, err := s.Validate(map[string]any{"qty": "12abc"})
	var verr *schema.ValidationError
	if !errors.As(err, &verr) || verr.First("qty") != "Quantity must be a number" {
		t.Fatalf("expected number failure, got %v", err)
	}
}

func TestValidate_ExtraConstraints(t *testing.T) {
	s := schema.Build([]model.Field{
		{ID: "code", Label: "Code", Type: model.FieldTypeShortText, Validations: []model.ValidationRule{
			{Kind: model.ValidationRuleMinLength, Params: map[string]string{"value": "3"}},
			{Kind: model.ValidationRulePattern, Params: map[string]string{"pattern": "^[A-Z]+$", "message": "Use capitals"}},
		}},
		{ID: "seats", Label: "Seats", Type: model.FieldTypeNumber, Validations: []model.ValidationRule{
			{Kind: model.ValidationRuleMin, Params: map[string]string{"value": "1"}},
			{Kind: model.ValidationRuleMax, Params: map[string]string{"value": "10"}},
		}},
	})

	_, err := s.Validate(map[string]any{"code": "ab", "seats": "11"})
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := map[string][]string{
		"code":  {"Code must be at least 3 characters", "Use capitals"},
		"seats": {"Seats must be at most 10"},
	}
	if diff := cmp.Diff(want, verr.Fields); diff != "" {
		t.Fatalf("constraint errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_InvalidSelection(t *testing.T) {
	s := schema.Build(contactFields()[4:5])
	_, err := s.Validate(map[string]any{"plan": "enterprise"})
	var verr *schema.ValidationError
	if !errors.As(err, &verr) || verr.First("plan") != "Plan has an invalid selection" {
		t.Fatalf("expected selection failure, got %v", err)
	}
}

func TestValidate_OptionalCheckboxAbsent(t *testing.T) {
	s := schema.Build([]model.Field{{ID: "news", Type: model.FieldTypeCheckbox}})
	values, err := s.Validate(map[string]any{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, ok := values["news"]; ok {
		t.Fatalf("expected absent checkbox to be omitted, got %v", values)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case schema.TextRule:
		return "text"
	case schema.EmailRule:
		return "email"
	case schema.NumberRule:
		return "number"
	case schema.BooleanRule:
		return "boolean"
	default:
		return "unknown"
	}
}
