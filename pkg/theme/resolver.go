package theme

import (
	"fmt"
	"strings"
	"sync"

	gotheme "github.com/goliatone/go-theme"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Resolver layers caller overrides, form tokens and an optional go-theme
// selection on top of the defaults.
type Resolver struct {
	selector gotheme.ThemeSelector
	name     string
	variant  string
	logger   *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSelector consults selector for the named theme and variant. Manifest
// tokens sit below form tokens and caller overrides.
func WithSelector(selector gotheme.ThemeSelector, name, variant string) Option {
	return func(r *Resolver) {
		r.selector = selector
		r.name = strings.TrimSpace(name)
		r.variant = strings.TrimSpace(variant)
	}
}

// WithLogger sets the logger used to report selector failures.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver builds a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve returns the final tokens for a mount and the matching renderer
// config. A failing selector is logged and skipped so a broken theme never
// blocks a form from rendering.
func (r *Resolver) Resolve(form model.FormDefinition, overrides model.ThemeTokens) (model.ThemeTokens, *gotheme.RendererConfig) {
	layers := []model.ThemeTokens{overrides, form.Theme}
	name, variant := r.name, r.variant
	var partials map[string]string

	if r.selector != nil {
		selection, err := r.selector.Select(r.name, r.variant)
		switch {
		case err != nil:
			r.logger.Warn("theme selection failed",
				zap.String("theme", r.name),
				zap.String("variant", r.variant),
				zap.Error(err))
		case selection != nil && selection.Manifest != nil:
			name, variant = selection.Theme, selection.Variant
			layers = append(layers, FromMap(selectionTokens(selection)))
			partials = selectionPartials(selection)
		}
	}

	tokens := Resolve(layers...)
	cfg := RendererConfig(name, variant, tokens)
	cfg.Partials = partials
	return tokens, cfg
}

// selectionPartials merges manifest template overrides with the selected
// variant's. Keys follow the renderer partial names, e.g. "forms.input".
func selectionPartials(selection *gotheme.Selection) map[string]string {
	out := map[string]string{}
	for key, value := range selection.Manifest.Templates {
		out[key] = value
	}
	if v, ok := selection.Manifest.Variants[selection.Variant]; ok {
		for key, value := range v.Templates {
			out[key] = value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func selectionTokens(selection *gotheme.Selection) map[string]string {
	out := map[string]string{}
	for key, value := range selection.Manifest.Tokens {
		out[key] = value
	}
	if v, ok := selection.Manifest.Variants[selection.Variant]; ok {
		for key, value := range v.Tokens {
			out[key] = value
		}
	}
	return out
}

// ManifestSelector is an in-memory gotheme.ThemeSelector over registered
// manifests.
type ManifestSelector struct {
	mu             sync.RWMutex
	manifests      map[string]*gotheme.Manifest
	defaultTheme   string
	defaultVariant string
}

var _ gotheme.ThemeSelector = (*ManifestSelector)(nil)

// NewManifestSelector creates a selector falling back to defaultTheme and
// defaultVariant when Select receives empty names.
func NewManifestSelector(defaultTheme, defaultVariant string) *ManifestSelector {
	return &ManifestSelector{
		manifests:      make(map[string]*gotheme.Manifest),
		defaultTheme:   defaultTheme,
		defaultVariant: defaultVariant,
	}
}

// Register adds a manifest by name.
func (s *ManifestSelector) Register(manifest *gotheme.Manifest) error {
	if manifest == nil || strings.TrimSpace(manifest.Name) == "" {
		return fmt.Errorf("theme: manifest name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.manifests[manifest.Name]; exists {
		return fmt.Errorf("theme: manifest %q already registered", manifest.Name)
	}
	s.manifests[manifest.Name] = manifest
	return nil
}

// Select implements gotheme.ThemeSelector. Unknown variants resolve to the
// base manifest.
func (s *ManifestSelector) Select(name, variant string, _ ...gotheme.QueryOption) (*gotheme.Selection, error) {
	if name == "" {
		name = s.defaultTheme
	}
	if variant == "" {
		variant = s.defaultVariant
	}

	s.mu.RLock()
	manifest, ok := s.manifests[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("theme: manifest %q not found", name)
	}
	if _, ok := manifest.Variants[variant]; !ok {
		variant = ""
	}
	return &gotheme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}
