package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/apispec"
)

var openapiFlags struct {
	form      string
	serverURL string
	version   string
}

var openapiCmd = &cobra.Command{
	Use:   "openapi <file>",
	Short: "Print the OpenAPI document of a form's collaborator endpoints",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		form, err := loadForm(args[0], openapiFlags.form)
		if err != nil {
			return err
		}
		doc, err := apispec.Document(cmd.Context(), form,
			apispec.WithServerURL(openapiFlags.serverURL),
			apispec.WithVersion(openapiFlags.version))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	},
}

func init() {
	openapiCmd.Flags().StringVar(&openapiFlags.form, "form", "", "form id when the file holds several forms")
	openapiCmd.Flags().StringVar(&openapiFlags.serverURL, "server-url", "", "server URL to advertise")
	openapiCmd.Flags().StringVar(&openapiFlags.version, "version", "", "document version")
}
