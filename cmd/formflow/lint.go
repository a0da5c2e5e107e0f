package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/validation"
)

var lintJSON bool

var lintCmd = &cobra.Command{
	Use:   "lint <files...>",
	Short: "Validate form definition files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLint,
}

func init() {
	lintCmd.Flags().BoolVar(&lintJSON, "json", false, "print results as JSON")
}

type violation struct {
	file     string
	location string
	message  string
}

func runLint(cmd *cobra.Command, args []string) error {
	results := make(map[string]validation.Result, len(args))
	var violations []violation
	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("lint %s: %w", path, err)
		}
		result := validation.ValidateDefinition(raw, path)
		results[path] = result
		for _, issue := range result.Issues {
			location := issue.FormID
			if issue.Path != "" {
				location += issue.Path
			}
			violations = append(violations, violation{file: path, location: location, message: issue.Message})
		}
	}

	if lintJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		sort.SliceStable(violations, func(i, j int) bool {
			if violations[i].file != violations[j].file {
				return violations[i].file < violations[j].file
			}
			return violations[i].location < violations[j].location
		})
		for _, v := range violations {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s -> %s\n", v.file, v.location, v.message)
		}
	}

	if len(violations) > 0 {
		return fmt.Errorf("%d issue(s) found", len(violations))
	}
	if !lintJSON {
		fmt.Fprintf(cmd.OutOrStdout(), "%d file(s) ok\n", len(args))
	}
	return nil
}
