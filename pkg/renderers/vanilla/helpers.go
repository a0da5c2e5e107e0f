package vanilla

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
)

var (
	descriptionPolicyOnce sync.Once
	descriptionPolicy     *bluemonday.Policy
)

// sanitizeHTML keeps basic inline formatting and links in author supplied
// descriptions and messages.
func sanitizeHTML(value string) string {
	descriptionPolicyOnce.Do(func() {
		descriptionPolicy = bluemonday.UGCPolicy()
		descriptionPolicy.RequireNoFollowOnLinks(true)
		descriptionPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	})
	return strings.TrimSpace(descriptionPolicy.Sanitize(value))
}

func containerID(formID, override string) string {
	if id := strings.TrimSpace(override); id != "" {
		return id
	}
	if formID == "" {
		return "formflow"
	}
	return "formflow-" + formID
}

// containerStyle prefers the explicit style and falls back to the theme's
// CSS variables.
func containerStyle(options render.RenderOptions) string {
	if style := strings.TrimSpace(options.Style); style != "" {
		return style
	}
	if options.Theme == nil || len(options.Theme.CSSVars) == 0 {
		return ""
	}
	return cssVarsStyle(options.Theme.CSSVars)
}

func cssVarsStyle(vars map[string]string) string {
	parts := make([]string, 0, len(vars))
	for _, name := range sortedKeys(vars) {
		parts = append(parts, name+": "+vars[name]+";")
	}
	return strings.Join(parts, " ")
}

func themePartials(options render.RenderOptions) map[string]string {
	if options.Theme == nil {
		return nil
	}
	return options.Theme.Partials
}

func modeOf(options render.RenderOptions) model.Mode {
	if options.Mode == "" {
		return model.ModeEmbed
	}
	return options.Mode
}

// stringValue renders an entered value for an input's value attribute.
func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case []string:
		if len(v) == 0 {
			return ""
		}
		return v[0]
	default:
		return fmt.Sprint(v)
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "on", "1", "yes":
			return true
		}
	case []string:
		return len(v) > 0 && truthy(v[0])
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
