package apispec

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
)

func signupForm() model.FormDefinition {
	return model.FormDefinition{
		ID:   "signup",
		Name: "Signup",
		Steps: []model.Step{
			{
				ID: "about",
				Fields: []model.Field{
					{ID: "name", Label: "Name", Type: model.FieldTypeShortText, Required: true,
						Validations: []model.ValidationRule{{Kind: model.ValidationRuleMaxLength, Params: map[string]string{"value": "20"}}}},
					{ID: "email", Label: "Email", Type: model.FieldTypeEmail, Required: true},
					{ID: "age", Label: "Age", Type: model.FieldTypeNumber,
						Validations: []model.ValidationRule{{Kind: model.ValidationRuleMin, Params: map[string]string{"value": "18"}}}},
				},
			},
			{
				ID: "plan",
				Fields: []model.Field{
					{ID: "plan", Label: "Plan", Type: model.FieldTypeSelect, Required: true,
						Options: []model.Option{{Label: "Free", Value: "free"}, {Label: "Pro", Value: "pro"}}},
					{ID: "terms", Label: "Accept terms", Type: model.FieldTypeCheckbox, Required: true},
				},
			},
		},
	}
}

func TestDocument_DescribesCollaboratorEndpoints(t *testing.T) {
	ctx := context.Background()
	doc, err := Document(ctx, signupForm(), WithServerURL("https://forms.test/api/"), WithVersion("2.1.0"))
	if err != nil {
		t.Fatalf("document: %v", err)
	}

	if doc.Info.Title != "Signup" || doc.Info.Version != "2.1.0" {
		t.Fatalf("unexpected info: %+v", doc.Info)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "https://forms.test/api" {
		t.Fatalf("unexpected servers: %+v", doc.Servers)
	}

	wantOps := map[string]string{
		"/forms/{formId}":               "getForm",
		"/forms/{formId}/verify-domain": "verifyDomain",
		"/forms/{formId}/submit":        "submitForm",
	}
	for path, opID := range wantOps {
		item := doc.Paths.Value(path)
		if item == nil {
			t.Fatalf("missing path %s", path)
		}
		op := item.Get
		if item.Post != nil {
			op = item.Post
		}
		if op == nil || op.OperationID != opID {
			t.Fatalf("path %s: expected operation %s", path, opID)
		}
	}

	data := doc.Components.Schemas["SubmissionData"].Value
	if diff := cmp.Diff([]string{"name", "email", "plan", "terms"}, data.Required); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	if got := data.Properties["email"].Value.Format; got != "email" {
		t.Fatalf("expected email format, got %q", got)
	}
	if got := data.Properties["plan"].Value.Enum; len(got) != 2 {
		t.Fatalf("expected plan enum from options, got %v", got)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	loaded, err := openapi3.NewLoader().LoadFromData(raw)
	if err != nil {
		t.Fatalf("load marshalled document: %v", err)
	}
	if err := loaded.Validate(ctx, openapi3.DisableSchemaFormatValidation()); err != nil {
		t.Fatalf("marshalled document invalid: %v", err)
	}
}

func TestValidateData_Accepts(t *testing.T) {
	data := map[string]any{
		"name":  "Ada",
		"email": "ada@example.com",
		"age":   int64(36),
		"plan":  "pro",
		"terms": true,
	}
	if err := ValidateData(signupForm(), data); err != nil {
		t.Fatalf("expected data to validate, got %v", err)
	}
}

func TestValidateData_ReportsPerField(t *testing.T) {
	data := map[string]any{
		"name":  "",
		"age":   12,
		"plan":  "enterprise",
		"terms": false,
		"extra": "x",
	}
	err := ValidateData(signupForm(), data)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var dataErr *DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("expected *DataError, got %T", err)
	}
	fields := dataErr.FieldErrors()
	for _, key := range []string{"name", "email", "age", "plan", "terms", "extra"} {
		if len(fields[key]) == 0 {
			t.Errorf("expected messages for %q, got %v", key, fields)
		}
	}
	if dataErr.FormID != "signup" {
		t.Fatalf("unexpected form id %q", dataErr.FormID)
	}
}
