package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/flow"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/renderers/tui"
	"github.com/goliatone/go-formflow/pkg/submit"
)

var fillFlags struct {
	form   string
	format string
}

var fillCmd = &cobra.Command{
	Use:   "fill <file>",
	Short: "Fill a form in the terminal (preview, nothing is sent)",
	Args:  cobra.ExactArgs(1),
	RunE:  runFill,
}

func init() {
	fillCmd.Flags().StringVar(&fillFlags.form, "form", "", "form id when the file holds several forms")
	fillCmd.Flags().StringVar(&fillFlags.format, "format", string(tui.OutputFormatPrettyText), "output format of each step: json, form or pretty")
}

func runFill(cmd *cobra.Command, args []string) error {
	form, err := loadForm(args[0], fillFlags.form)
	if err != nil {
		return err
	}
	dispatcher, err := submit.New(model.ModePreview, submit.WithLogger(logger))
	if err != nil {
		return err
	}
	ctrl, err := flow.New(form, dispatcher, flow.WithLogger(logger))
	if err != nil {
		return err
	}
	renderer, err := tui.New(
		tui.WithOutput(cmd.OutOrStdout()),
		tui.WithOutputFormat(tui.OutputFormat(fillFlags.format)),
		tui.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	if _, err := renderer.Run(cmd.Context(), ctrl); err != nil {
		if errors.Is(err, tui.ErrAborted) {
			fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
			return nil
		}
		return err
	}
	return nil
}
