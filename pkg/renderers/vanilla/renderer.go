// Package vanilla renders form steps and embed notices as server-side HTML
// using pongo2 templates.
package vanilla

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
	rendertemplate "github.com/goliatone/go-formflow/pkg/render/template"
	gotemplate "github.com/goliatone/go-formflow/pkg/render/template/gotemplate"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla/components"
)

const (
	stepTemplate   = "templates/step.tpl"
	noticeTemplate = "templates/notice.tpl"
)

// Default button captions.
const (
	NextLabel   = "Next"
	SubmitLabel = "Submit"
	BackLabel   = "Back"
	RetryLabel  = "Try again"
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	registry         *components.Registry
	inlineStyles     bool
	stylesheets      []string
	overridesDir     string
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateOverrides renders through a go-template engine that looks up
// each template in dir first and falls back to the bundle. Ignored when
// WithTemplateRenderer is also given.
func WithTemplateOverrides(dir string) Option {
	return func(cfg *config) {
		cfg.overridesDir = strings.TrimSpace(dir)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithComponentRegistry replaces the default component registry.
func WithComponentRegistry(registry *components.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.registry = registry
		}
	}
}

// WithDefaultStyles inlines the embedded stylesheet into every render.
func WithDefaultStyles() Option {
	return func(cfg *config) {
		cfg.inlineStyles = true
	}
}

// WithStylesheet links an external stylesheet from the container.
func WithStylesheet(href string) Option {
	return func(cfg *config) {
		if href = strings.TrimSpace(href); href != "" {
			cfg.stylesheets = append(cfg.stylesheets, href)
		}
	}
}

// Renderer is the HTML render.Renderer and render.NoticeRenderer.
type Renderer struct {
	templates   rendertemplate.TemplateRenderer
	registry    *components.Registry
	stylesheet  string
	stylesheets []string
}

var (
	_ render.Renderer       = (*Renderer)(nil)
	_ render.NoticeRenderer = (*Renderer)(nil)
)

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.registry == nil {
		cfg.registry = components.NewDefaultRegistry()
	}

	renderer := cfg.templateRenderer
	if renderer == nil && cfg.overridesDir != "" {
		engine, err := gotemplate.NewHooked(
			gotemplate.WithBaseDir(cfg.overridesDir),
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: template overrides: %w", err)
		}
		renderer = engine
	}
	if renderer == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	out := &Renderer{
		templates:   renderer,
		registry:    cfg.registry,
		stylesheets: cfg.stylesheets,
	}
	if cfg.inlineStyles {
		out.stylesheet = defaultStylesheet()
	}
	return out, nil
}

func (r *Renderer) Name() string {
	return "vanilla"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render produces the markup of the view's step: header with progress, the
// hidden inputs, form-level errors, one block per field and the actions.
func (r *Renderer) Render(ctx context.Context, view render.StepView, options render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, errors.New("vanilla renderer: template renderer is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if view.Total == 0 {
		return nil, fmt.Errorf("vanilla renderer: form %q has no steps", view.Form.ID)
	}

	fields := newComponentRenderer(r.templates, r.registry, themePartials(options))
	blocks := make([]string, 0, len(view.Step.Fields))
	for _, field := range view.Step.Fields {
		value, present := options.Values[field.ID]
		markup, err := fields.render(field, value, present, options.Errors[field.ID])
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: %w", err)
		}
		blocks = append(blocks, markup)
	}

	submitLabel := NextLabel
	if view.Last() {
		submitLabel = SubmitLabel
	}
	backAction := ""
	if !view.First() {
		backAction = options.BackAction
	}

	mode := modeOf(options)
	hidden := render.MergeHiddenFields(options.Hidden, render.Hidden(render.HiddenMode, mode))

	data := map[string]any{
		"containerId": containerID(view.Form.ID, options.ContainerID),
		"mode":        string(mode),
		"style":       containerStyle(options),
		"stylesheet":  r.stylesheet,
		"stylesheets": append(append([]string(nil), r.stylesheets...), fields.stylesheets()...),
		"form": map[string]any{
			"id":   view.Form.ID,
			"name": view.Form.Name,
		},
		"step": map[string]any{
			"id":          view.Step.ID,
			"title":       view.Step.Title,
			"description": sanitizeHTML(view.Step.Description),
			"index":       strconv.Itoa(view.Index),
			"number":      strconv.Itoa(view.Index + 1),
			"total":       strconv.Itoa(view.Total),
		},
		"hidden":      hiddenView(hidden),
		"formErrors":  options.FormErrors,
		"fields":      blocks,
		"action":      options.Action,
		"backAction":  backAction,
		"submitLabel": submitLabel,
		"backLabel":   BackLabel,
	}

	result, err := r.templates.RenderTemplate(stepTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return []byte(result), nil
}

// RenderNotice renders a message-only state. Failure notices with an Action
// include a retry button; preview success notices list the collected values.
func (r *Renderer) RenderNotice(ctx context.Context, notice render.Notice, options render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, errors.New("vanilla renderer: template renderer is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	role := "status"
	switch notice.Kind {
	case render.NoticeNotVerified, render.NoticeNotFound, render.NoticeFailure, render.NoticeError:
		role = "alert"
	}
	retry := ""
	if notice.Kind == render.NoticeFailure {
		retry = options.Action
	}

	data := map[string]any{
		"containerId": containerID(options.Hidden[render.HiddenFormID], options.ContainerID),
		"mode":        string(modeOf(options)),
		"style":       containerStyle(options),
		"stylesheet":  r.stylesheet,
		"stylesheets": r.stylesheets,
		"kind":        string(notice.Kind),
		"role":        role,
		"title":       notice.Title,
		"message":     sanitizeHTML(notice.Message),
		"values":      valuesView(notice.Values),
		"hidden":      hiddenView(options.Hidden),
		"retryAction": retry,
		"retryLabel":  RetryLabel,
	}

	result, err := r.templates.RenderTemplate(noticeTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render notice: %w", err)
	}
	return []byte(result), nil
}

func hiddenView(fields map[string]string) []map[string]any {
	sorted := render.SortedHiddenFields(fields)
	out := make([]map[string]any, 0, len(sorted))
	for _, field := range sorted {
		out = append(out, map[string]any{"name": field.Name, "value": field.Value})
	}
	return out
}

func valuesView(values model.SubmissionState) []map[string]any {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		out = append(out, map[string]any{"key": key, "value": stringValue(values[key])})
	}
	return out
}
