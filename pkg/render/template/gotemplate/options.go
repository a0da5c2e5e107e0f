// Package gotemplate backs the template.TemplateRenderer seam with pongo2: New
// builds the in-house cached Engine and NewHooked builds a
// github.com/goliatone/go-template engine, which adds render hooks, from the
// same options.
package gotemplate

import (
	"io/fs"
	"strings"

	gotemplatepkg "github.com/goliatone/go-template"
)

const defaultExtension = ".tpl"

// Option configures an Engine.
type Option func(*config)

type config struct {
	dir     string
	fsys    fs.FS
	ext     string
	funcs   map[string]any
	globals map[string]any
	native  []gotemplatepkg.Option
}

// WithBaseDir loads templates from dir. Files found there shadow the ones
// provided through WithFS.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.dir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from fsys.
func WithFS(fsys fs.FS) Option {
	return func(cfg *config) {
		cfg.fsys = fsys
	}
}

// WithExtension sets the extension appended to template names, ".tpl" by
// default.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			return
		}
		cfg.ext = "." + strings.TrimPrefix(ext, ".")
	}
}

// WithTemplateFunc registers helpers: pongo2 filter functions become filters,
// other funcs become globals.
func WithTemplateFunc(funcs map[string]any) Option {
	return func(cfg *config) {
		cfg.funcs = mergeInto(cfg.funcs, funcs)
	}
}

// WithGlobalData seeds values visible to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		cfg.globals = mergeInto(cfg.globals, data)
	}
}

// WithGoTemplateOptions appends go-template engine options for NewHooked. They
// run after the options derived from this package, so they win. New rejects
// them.
func WithGoTemplateOptions(opts ...gotemplatepkg.Option) Option {
	return func(cfg *config) {
		for _, opt := range opts {
			if opt != nil {
				cfg.native = append(cfg.native, opt)
			}
		}
	}
}

func mergeInto(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for key, value := range src {
		if key = strings.TrimSpace(key); key != "" {
			dst[key] = value
		}
	}
	return dst
}
