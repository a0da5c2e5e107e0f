// Package theme resolves embed theme tokens and exposes them as CSS custom
// properties scoped to the form container.
package theme

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	gotheme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formflow/pkg/model"
)

// CSS custom property names set on the form container.
const (
	VarPrimary    = "--formflow-primary"
	VarBackground = "--formflow-background"
	VarText       = "--formflow-text"
	VarRadius     = "--formflow-radius"
)

// Token keys shared by query strings, go-theme manifests and form definitions.
const (
	KeyPrimaryColor    = "primaryColor"
	KeyBackgroundColor = "backgroundColor"
	KeyTextColor       = "textColor"
	KeyBorderRadius    = "borderRadius"
)

// Defaults are applied per token when no layer supplies a value.
func Defaults() model.ThemeTokens {
	return model.ThemeTokens{
		PrimaryColor:    "#2563eb",
		BackgroundColor: "#ffffff",
		TextColor:       "#000000",
		BorderRadius:    "0.375rem",
	}
}

// safeValue admits colors (hex, rgb(), hsl(), names) and lengths, nothing
// that could close the style attribute or open a new declaration.
var safeValue = regexp.MustCompile(`^[#a-zA-Z0-9(),.%\s-]{1,64}$`)

// Resolve merges layers per token; earlier layers win, and the defaults fill
// whatever is left. Values that are not plain color or length literals are
// ignored.
func Resolve(layers ...model.ThemeTokens) model.ThemeTokens {
	out := model.ThemeTokens{}
	apply := func(layer model.ThemeTokens) {
		out.PrimaryColor = pick(out.PrimaryColor, layer.PrimaryColor)
		out.BackgroundColor = pick(out.BackgroundColor, layer.BackgroundColor)
		out.TextColor = pick(out.TextColor, layer.TextColor)
		out.BorderRadius = pick(out.BorderRadius, layer.BorderRadius)
	}
	for _, layer := range layers {
		apply(layer)
	}
	apply(Defaults())
	return out
}

func pick(current, candidate string) string {
	if current != "" {
		return current
	}
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || !safeValue.MatchString(candidate) {
		return ""
	}
	return candidate
}

// CSSVars maps resolved tokens onto the container custom properties.
func CSSVars(tokens model.ThemeTokens) map[string]string {
	vars := map[string]string{}
	set := func(name, value string) {
		if value != "" {
			vars[name] = value
		}
	}
	set(VarPrimary, tokens.PrimaryColor)
	set(VarBackground, tokens.BackgroundColor)
	set(VarText, tokens.TextColor)
	set(VarRadius, tokens.BorderRadius)
	return vars
}

// Style renders the inline declaration list for the container element, sorted
// by property name.
func Style(tokens model.ThemeTokens) string {
	vars := CSSVars(tokens)
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(vars[name])
		b.WriteByte(';')
	}
	return b.String()
}

// TokenMap flattens tokens into the key/value shape used by go-theme
// manifests.
func TokenMap(tokens model.ThemeTokens) map[string]string {
	out := map[string]string{}
	for key, value := range map[string]string{
		KeyPrimaryColor:    tokens.PrimaryColor,
		KeyBackgroundColor: tokens.BackgroundColor,
		KeyTextColor:       tokens.TextColor,
		KeyBorderRadius:    tokens.BorderRadius,
	} {
		if value != "" {
			out[key] = value
		}
	}
	return out
}

// FromMap reads tokens from a go-theme token map.
func FromMap(values map[string]string) model.ThemeTokens {
	return model.ThemeTokens{
		PrimaryColor:    values[KeyPrimaryColor],
		BackgroundColor: values[KeyBackgroundColor],
		TextColor:       values[KeyTextColor],
		BorderRadius:    values[KeyBorderRadius],
	}
}

// FromQuery reads caller override tokens from embed query parameters.
func FromQuery(query url.Values) model.ThemeTokens {
	return model.ThemeTokens{
		PrimaryColor:    query.Get(KeyPrimaryColor),
		BackgroundColor: query.Get(KeyBackgroundColor),
		TextColor:       query.Get(KeyTextColor),
		BorderRadius:    query.Get(KeyBorderRadius),
	}
}

// RendererConfig packages resolved tokens as a go-theme renderer config so
// themed renderers receive tokens and CSS variables in one value.
func RendererConfig(name, variant string, tokens model.ThemeTokens) *gotheme.RendererConfig {
	return &gotheme.RendererConfig{
		Theme:   name,
		Variant: variant,
		Tokens:  TokenMap(tokens),
		CSSVars: CSSVars(tokens),
	}
}
