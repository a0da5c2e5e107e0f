package model

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeDecorator(t *testing.T) {
	form := FormDefinition{
		ID:      " contact ",
		Domains: []string{" Shop.Example.COM "},
		Steps: []Step{{
			ID: " s1 ",
			Fields: []Field{
				{ID: " full_name ", Type: "text"},
				{ID: "plan", Type: "dropdown", Label: "Plan", Options: []Option{{Value: "pro"}, {Label: "Free tier", Value: "free"}}},
			},
		}},
	}

	if err := ApplyDecorators(&form, NormalizeDecorator()); err != nil {
		t.Fatalf("decorate: %v", err)
	}

	want := FormDefinition{
		ID:      "contact",
		Domains: []string{"shop.example.com"},
		Steps: []Step{{
			ID: "s1",
			Fields: []Field{
				{ID: "full_name", Type: FieldTypeShortText, Label: "Full Name"},
				{ID: "plan", Type: FieldTypeSelect, Label: "Plan", Options: []Option{{Label: "pro", Value: "pro"}, {Label: "Free tier", Value: "free"}}},
			},
		}},
	}
	if diff := cmp.Diff(want, form); diff != "" {
		t.Fatalf("decorated form mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyDecoratorsStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	form := FormDefinition{}
	err := ApplyDecorators(&form,
		nil,
		DecoratorFunc(func(*FormDefinition) error { calls++; return boom }),
		DecoratorFunc(func(*FormDefinition) error { calls++; return nil }),
	)
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected first error and one call, got %v after %d calls", err, calls)
	}
}
