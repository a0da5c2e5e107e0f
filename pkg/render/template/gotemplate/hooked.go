package gotemplate

import (
	"errors"
	"fmt"

	gotemplatepkg "github.com/goliatone/go-template"

	"github.com/goliatone/go-formflow/pkg/render/template"
)

var _ template.TemplateRenderer = (*gotemplatepkg.Engine)(nil)

// NewHooked builds a go-template engine from options. Templates in the base
// directory shadow the fs.FS ones, as with New. The returned engine also
// accepts RegisterPreHook and RegisterPostHook.
func NewHooked(options ...Option) (*gotemplatepkg.Engine, error) {
	cfg := config{ext: defaultExtension}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.dir == "" && cfg.fsys == nil {
		return nil, errors.New("gotemplate: need to provide either base dir or fs.FS")
	}

	opts := []gotemplatepkg.Option{gotemplatepkg.WithExtension(cfg.ext)}
	if cfg.dir != "" {
		opts = append(opts, gotemplatepkg.WithBaseDir(cfg.dir))
	}
	if cfg.fsys != nil {
		opts = append(opts, gotemplatepkg.WithFS(cfg.fsys))
	}
	if len(cfg.funcs) > 0 {
		opts = append(opts, gotemplatepkg.WithTemplateFunc(cfg.funcs))
	}
	if len(cfg.globals) > 0 {
		opts = append(opts, gotemplatepkg.WithGlobalData(cfg.globals))
	}
	opts = append(opts, cfg.native...)

	engine, err := gotemplatepkg.NewRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: go-template engine: %w", err)
	}
	return engine, nil
}
