package template_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gotemplatepkg "github.com/goliatone/go-template"

	"github.com/goliatone/go-formflow/pkg/render/template/gotemplate"
)

func TestHooked_RendersBundleAndRunsHooks(t *testing.T) {
	templatesFS, err := fs.Sub(embeddedTemplates, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	engine, err := gotemplate.NewHooked(
		gotemplate.WithFS(templatesFS),
		gotemplate.WithGoTemplateOptions(gotemplatepkg.WithGlobalData(map[string]any{
			"settings": map[string]any{"env": "prod"},
		})),
	)
	if err != nil {
		t.Fatalf("new hooked: %v", err)
	}

	got, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	assertGolden(t, "hello.golden", got)

	got, err = engine.RenderTemplate("use-global", nil)
	if err != nil {
		t.Fatalf("render global: %v", err)
	}
	if !strings.HasPrefix(got, "prod:anonymous") {
		t.Fatalf("expected passthrough global data, got %q", got)
	}

	engine.RegisterPostHook(func(ctx *gotemplatepkg.HookContext) (string, error) {
		return strings.ToUpper(ctx.Output), nil
	})
	got, err = engine.RenderTemplate("hello", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render with hook: %v", err)
	}
	if !strings.HasPrefix(got, "HELLO ADA!") {
		t.Fatalf("expected post hook output, got %q", got)
	}
}

func TestHooked_BaseDirShadowsFS(t *testing.T) {
	templatesFS, err := fs.Sub(embeddedTemplates, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.tpl"), []byte("Hi {{ name }}"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	engine, err := gotemplate.NewHooked(gotemplate.WithBaseDir(dir), gotemplate.WithFS(templatesFS))
	if err != nil {
		t.Fatalf("new hooked: %v", err)
	}

	got, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hi Ada" {
		t.Fatalf("unexpected output %q", got)
	}

	got, err = engine.RenderTemplate("use-global", map[string]any{"settings": map[string]any{"env": "dev"}})
	if err != nil {
		t.Fatalf("render fallback: %v", err)
	}
	if !strings.HasPrefix(got, "dev:anonymous") {
		t.Fatalf("expected bundled template as fallback, got %q", got)
	}
}

func TestHooked_RequiresSource(t *testing.T) {
	if _, err := gotemplate.NewHooked(); err == nil {
		t.Fatalf("expected error without template source")
	}
}

func TestEngine_RejectsGoTemplateOptions(t *testing.T) {
	templatesFS, err := fs.Sub(embeddedTemplates, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	_, err = gotemplate.New(
		gotemplate.WithFS(templatesFS),
		gotemplate.WithGoTemplateOptions(gotemplatepkg.WithExtension(".html")),
	)
	if err == nil {
		t.Fatalf("expected New to reject go-template options")
	}
}
