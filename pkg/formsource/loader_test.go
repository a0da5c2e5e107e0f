package formsource_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/embed"
	"github.com/goliatone/go-formflow/pkg/formsource"
	"github.com/goliatone/go-formflow/pkg/model"
)

const contactJSON = `{
  "id": "contact",
  "name": "Contact",
  "domains": ["Example.com"],
  "steps": [
    {"id": "s1", "title": "About you", "fields": [
      {"id": "full_name", "type": "text", "required": true},
      {"id": "email", "type": "email", "required": true}
    ]}
  ]
}`

const bundleYAML = `
forms:
  - id: survey
    name: Survey
    steps:
      - id: rate
        fields:
          - id: score
            type: radio
            options:
              - {value: "1"}
              - {value: "2"}
  - id: newsletter
    name: Newsletter
    steps:
      - id: main
        fields:
          - id: email
            type: email
`

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"contact.json":       {Data: []byte(contactJSON)},
		"nested/bundle.yaml": {Data: []byte(bundleYAML)},
		"README.md":          {Data: []byte("ignored")},
	}
	store, err := formsource.LoadFS(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"contact", "newsletter", "survey"}, store.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	form, err := store.Form(context.Background(), "contact")
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	field := form.Steps[0].Fields[0]
	if field.Type != model.FieldTypeShortText || field.Label != "Full Name" {
		t.Fatalf("definition not normalised: %+v", field)
	}
	if diff := cmp.Diff([]string{"example.com"}, form.Domains); diff != "" {
		t.Fatalf("domains mismatch (-want +got):\n%s", diff)
	}

	survey, _ := store.Form(context.Background(), "survey")
	if got := survey.Steps[0].Fields[0].Options[1].Label; got != "2" {
		t.Fatalf("option label not derived, got %q", got)
	}
	if src, _ := store.Source("survey"); src != "nested/bundle.yaml" {
		t.Fatalf("unexpected source %q", src)
	}

	if _, err := store.Form(context.Background(), "missing"); !errors.Is(err, embed.ErrFormNotFound) {
		t.Fatalf("expected ErrFormNotFound, got %v", err)
	}
}

func TestLoadFS_RejectsDuplicatesAndInvalid(t *testing.T) {
	dup := fstest.MapFS{
		"a.json": {Data: []byte(contactJSON)},
		"b.json": {Data: []byte(contactJSON)},
	}
	if _, err := formsource.LoadFS(dup); err == nil {
		t.Fatalf("expected duplicate error")
	}

	invalid := fstest.MapFS{
		"bad.yaml": {Data: []byte("id: broken\nsteps:\n  - id: s\n    fields:\n      - id: pick\n        type: select\n")},
	}
	_, err := formsource.LoadFS(invalid)
	if !errors.Is(err, model.ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
}

func TestReload_KeepsPreviousOnFailure(t *testing.T) {
	store, err := formsource.LoadFS(fstest.MapFS{"contact.json": {Data: []byte(contactJSON)}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := store.Reload(fstest.MapFS{"broken.json": {Data: []byte("{")}}); err == nil {
		t.Fatalf("expected reload error")
	}
	if diff := cmp.Diff([]string{"contact"}, store.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "contact.json"), []byte(contactJSON), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, err := formsource.LoadFS(os.DirFS(dir))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan []string, 4)
	err = store.Watch(ctx, dir,
		formsource.WithDebounce(20*time.Millisecond),
		formsource.WithReloadHook(func(ids []string, err error) {
			if err == nil {
				reloaded <- ids
			}
		}),
	)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	tmp := filepath.Join(dir, "bundle.tmp")
	if err := os.WriteFile(tmp, []byte(bundleYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, "bundle.yaml")); err != nil {
		t.Fatalf("rename: %v", err)
	}

	select {
	case ids := <-reloaded:
		if diff := cmp.Diff([]string{"contact", "newsletter", "survey"}, ids); diff != "" {
			t.Fatalf("ids mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for reload")
	}
}
