package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	formflow "github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/renderers/tui"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
)

var renderFlags struct {
	form      string
	step      int
	mode      string
	renderer  string
	output    string
	styles    bool
	templates string
}

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render one step of a form",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderFlags.form, "form", "", "form id when the file holds several forms")
	f.IntVar(&renderFlags.step, "step", 0, "zero-based step index")
	f.StringVar(&renderFlags.mode, "mode", string(model.ModePreview), "render mode: preview or embed")
	f.StringVar(&renderFlags.renderer, "renderer", "vanilla", "renderer name: vanilla or tui")
	f.StringVarP(&renderFlags.output, "output", "o", "", "output file (stdout if empty)")
	f.BoolVar(&renderFlags.styles, "styles", false, "inline the default stylesheet")
	f.StringVar(&renderFlags.templates, "templates", "", "vanilla template overrides directory")
}

func runRender(cmd *cobra.Command, args []string) error {
	form, err := loadForm(args[0], renderFlags.form)
	if err != nil {
		return err
	}
	mode, err := model.ParseMode(renderFlags.mode)
	if err != nil {
		return err
	}
	view, err := formflow.StepView(form, renderFlags.step)
	if err != nil {
		return err
	}

	registry, err := renderers(cmd)
	if err != nil {
		return err
	}
	renderer, err := registry.Get(renderFlags.renderer)
	if err != nil {
		return err
	}

	out, err := renderer.Render(cmd.Context(), view, formflow.StepOptions(form, mode))
	if err != nil {
		return err
	}

	if renderFlags.output != "" {
		if err := os.WriteFile(renderFlags.output, out, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "step %d of %s written to %s\n", renderFlags.step+1, form.ID, renderFlags.output)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(append(out, '\n'))
	return err
}

func renderers(cmd *cobra.Command) (*render.Registry, error) {
	var opts []vanilla.Option
	if renderFlags.styles {
		opts = append(opts, vanilla.WithDefaultStyles())
	}
	if renderFlags.templates != "" {
		opts = append(opts, vanilla.WithTemplateOverrides(renderFlags.templates))
	}
	html, err := vanilla.New(opts...)
	if err != nil {
		return nil, err
	}
	terminal, err := tui.New(tui.WithOutput(cmd.ErrOrStderr()), tui.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return render.NewRegistry(html, terminal)
}
