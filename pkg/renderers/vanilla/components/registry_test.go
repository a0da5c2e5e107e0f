package components

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
)

func TestDefaultRegistryCoversFieldTypes(t *testing.T) {
	registry := NewDefaultRegistry()

	want := []string{NameCheckbox, NameInput, NameRadio, NameSelect, NameTextarea}
	if diff := cmp.Diff(want, registry.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	cases := map[model.FieldType]string{
		model.FieldTypeShortText: NameInput,
		model.FieldTypeEmail:     NameInput,
		model.FieldTypeNumber:    NameInput,
		model.FieldTypeParagraph: NameTextarea,
		model.FieldTypeSelect:    NameSelect,
		model.FieldTypeRadio:     NameRadio,
		model.FieldTypeCheckbox:  NameCheckbox,
		"textarea":               NameTextarea,
		"signature":              NameInput,
	}
	for kind, name := range cases {
		if got := ForFieldType(kind); got != name {
			t.Errorf("ForFieldType(%q) = %q, want %q", kind, got, name)
		}
		if _, ok := registry.Lookup(ForFieldType(kind)); !ok {
			t.Errorf("no descriptor for %q", kind)
		}
	}

	for _, name := range []string{NameRadio, NameCheckbox} {
		descriptor, _ := registry.Lookup(name)
		if !descriptor.OwnsLabel {
			t.Errorf("%s should render its own label", name)
		}
	}
}

func TestInputType(t *testing.T) {
	cases := map[model.FieldType]string{
		model.FieldTypeShortText: "text",
		model.FieldTypeEmail:     "email",
		model.FieldTypeNumber:    "number",
		"unknown":                "text",
	}
	for kind, want := range cases {
		if got := InputType(kind); got != want {
			t.Errorf("InputType(%q) = %q, want %q", kind, got, want)
		}
	}
}

func TestRegistryWithLeavesOriginalUntouched(t *testing.T) {
	registry := NewDefaultRegistry()
	custom := func(buf *bytes.Buffer, field Field, _ ComponentData) error {
		buf.WriteString("custom:" + field.ID)
		return nil
	}

	extended, err := registry.With(Descriptor{Name: " Input ", Renderer: custom, Stylesheets: []string{"/a.css", "/a.css", "/b.css"}})
	if err != nil {
		t.Fatalf("with: %v", err)
	}

	original, _ := registry.Lookup(NameInput)
	if len(original.Stylesheets) != 0 {
		t.Fatalf("override leaked into original registry")
	}

	descriptor, ok := extended.Lookup(NameInput)
	if !ok || descriptor.Name != NameInput {
		t.Fatalf("expected normalised override, got %+v", descriptor)
	}
	var buf bytes.Buffer
	if err := descriptor.Renderer(&buf, Field{ID: "email"}, ComponentData{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "custom:email" {
		t.Fatalf("unexpected output %q", buf.String())
	}

	if diff := cmp.Diff([]string{"/a.css", "/b.css"}, extended.Stylesheets([]string{NameInput, NameSelect})); diff != "" {
		t.Fatalf("stylesheets mismatch (-want +got):\n%s", diff)
	}

	if _, err := extended.With(Descriptor{Renderer: custom}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := New(Descriptor{Name: "x"}); err == nil {
		t.Fatal("expected error for nil renderer")
	}
}

func TestTemplateComponentRendererRequiresEngine(t *testing.T) {
	descriptor, _ := NewDefaultRegistry().Lookup(NameSelect)
	var buf bytes.Buffer
	if err := descriptor.Renderer(&buf, Field{ID: "plan"}, ComponentData{}); err == nil {
		t.Fatal("expected error without template engine")
	}
}
