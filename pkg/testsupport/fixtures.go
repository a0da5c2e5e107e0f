// Package testsupport holds fixture and golden helpers shared by package
// tests.
package testsupport

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-formflow/pkg/model"
)

// UpdateGoldensEnv makes AssertGolden rewrite golden files instead of
// comparing against them.
const UpdateGoldensEnv = "UPDATE_GOLDENS"

// Context returns a context cancelled when the test ends.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// MustDecodeForm decodes a JSON form definition and validates it.
func MustDecodeForm(t *testing.T, data string) model.FormDefinition {
	t.Helper()
	var form model.FormDefinition
	if err := json.Unmarshal([]byte(data), &form); err != nil {
		t.Fatalf("decode form: %v", err)
	}
	if err := form.Validate(); err != nil {
		t.Fatalf("invalid form fixture: %v", err)
	}
	return form
}

// AssertGolden compares got with the golden file at path, or rewrites the
// file when UpdateGoldensEnv is set.
func AssertGolden(t *testing.T, path, got string) {
	t.Helper()
	if os.Getenv(UpdateGoldensEnv) != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(got), 0o644); err != nil {
			t.Fatalf("write golden: %v", err)
		}
		return
	}
	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	if got != string(want) {
		t.Fatalf("golden %s mismatch\nwant: %q\n got: %q", filepath.Base(path), want, got)
	}
}
