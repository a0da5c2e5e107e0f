// Package formflow renders multi-step embeddable forms. The root package
// wires the step builder, theme resolution, and the vanilla renderer for
// callers that only need HTML for a single step.
package formflow

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/theme"
)

// FormDefinition aliases model.FormDefinition for callers using the root
// package only.
type FormDefinition = model.FormDefinition

// RenderOptions describes per-request overrides that renderers can use to
// prefill values or surface server-side validation errors.
type RenderOptions = render.RenderOptions

// EmbeddedTemplates exposes the built-in vanilla renderer templates so callers
// can reuse or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return vanilla.TemplatesFS()
}

// AssetsFS exposes the default stylesheet served next to embedded forms.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(formflow.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return vanilla.AssetsFS()
}

// StepView builds the render view for the step at index, including its
// validation schema.
func StepView(form model.FormDefinition, index int) (render.StepView, error) {
	step, ok := form.Step(index)
	if !ok {
		return render.StepView{}, fmt.Errorf("formflow: form %q has no step %d", form.ID, index)
	}
	return render.StepView{
		Form:   form,
		Step:   step,
		Index:  index,
		Total:  len(form.Steps),
		Schema: schema.BuildStep(step),
	}, nil
}

// StepOptions returns render options carrying the form theme and its hidden
// form id, for the given mode.
func StepOptions(form model.FormDefinition, mode model.Mode) render.RenderOptions {
	tokens := theme.Resolve(form.Theme)
	return render.RenderOptions{
		Mode:   mode,
		Style:  theme.Style(tokens),
		Theme:  theme.RendererConfig("", "", tokens),
		Hidden: render.MergeHiddenFields(nil, render.Hidden(render.HiddenFormID, form.ID)),
	}
}

// RenderStep renders one step of form in preview mode with the vanilla
// renderer. Options passed to vanilla.New customise templates or styles.
func RenderStep(ctx context.Context, form model.FormDefinition, index int, options ...vanilla.Option) ([]byte, error) {
	view, err := StepView(form, index)
	if err != nil {
		return nil, err
	}
	renderer, err := vanilla.New(options...)
	if err != nil {
		return nil, fmt.Errorf("formflow: vanilla renderer: %w", err)
	}
	return renderer.Render(ctx, view, StepOptions(form, model.ModePreview))
}
