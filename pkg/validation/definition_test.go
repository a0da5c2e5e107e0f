package validation_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/validation"
)

func TestValidateDefinition_Valid(t *testing.T) {
	raw := []byte(`{"id":"contact","steps":[{"id":"s1","fields":[{"id":"email","type":"email"}]}]}`)
	got := validation.ValidateDefinition(raw, "contact.json")
	want := validation.Result{Valid: true, Forms: []string{"contact"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateDefinition_ReportsEveryIssue(t *testing.T) {
	raw := []byte(`
id: signup
steps:
  - id: account
    fields:
      - id: email
        type: email
      - id: plan
        type: select
  - id: profile
    fields:
      - id: email
      - id: bio
        type: paragraph
        validations:
          - kind: maxLength
            params: {value: lots}
`)
	got := validation.ValidateDefinition(raw, "signup.yaml")
	want := validation.Result{
		Forms: []string{"signup"},
		Issues: []validation.Issue{
			{FormID: "signup", Path: "/steps/0/fields/1/options", Field: "plan", Message: `select field "plan" requires options`},
			{FormID: "signup", Path: "/steps/1/fields/0/id", Field: "email", Message: `field id "email" already declared in step 0`},
			{FormID: "signup", Path: "/steps/1/fields/1/validations/0/params/value", Field: "bio", Message: "maxLength requires a non-negative integer"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateDefinition_ParseFailure(t *testing.T) {
	got := validation.ValidateDefinition([]byte("   "), "empty.json")
	if got.Valid || len(got.Issues) != 1 || got.Issues[0].Message != "file empty.json is empty" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestValidateDefinition_DuplicateFormsInBundle(t *testing.T) {
	raw := []byte(`{"forms":[
		{"id":"a","steps":[{"id":"s","fields":[{"id":"x"}]}]},
		{"id":"a","steps":[{"id":"s","fields":[{"id":"x"}]}]}
	]}`)
	got := validation.ValidateDefinition(raw, "bundle.json")
	if got.Valid || len(got.Issues) != 1 || got.Issues[0].Message != `duplicate form id "a"` {
		t.Fatalf("unexpected result %+v", got)
	}
}
