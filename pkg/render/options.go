package render

import (
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formflow/pkg/model"
)

// RenderOptions describe per-request data that renderers can use to customise
// their output without mutating the form definition.
type RenderOptions struct {
	// Mode selects preview or embed chrome.
	Mode model.Mode
	// Values pre-populates rendered controls keyed by field id. Controllers
	// pass the raw entered values so back navigation and failed validation
	// redisplay what the user typed.
	Values map[string]any
	// Errors surfaces validation feedback keyed by field id. Renderers place
	// these beneath the matching control.
	Errors map[string][]string
	// FormErrors are messages not tied to a field (submission failures).
	FormErrors []string
	// Style is the inline CSS custom property declaration for the container.
	Style string
	// Theme carries the resolved theme. Renderers consult Partials for
	// template overrides and fall back to CSSVars when Style is empty.
	Theme *theme.RendererConfig
	// Hidden are emitted as hidden inputs in deterministic order.
	Hidden map[string]string
	// Action is the URL the step posts to. BackAction, when set, renders a
	// back control posting to it.
	Action     string
	BackAction string
	// ContainerID is the id of the element hosting the embed.
	ContainerID string
}
