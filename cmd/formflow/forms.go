package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-formflow/pkg/formsource"
	"github.com/goliatone/go-formflow/pkg/model"
)

// loadForm reads a definition file and picks formID, or the only form in the
// file when formID is empty.
func loadForm(path, formID string) (model.FormDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.FormDefinition{}, fmt.Errorf("read %s: %w", path, err)
	}
	defs, err := formsource.ParseDocument(data, path)
	if err != nil {
		return model.FormDefinition{}, err
	}

	formID = strings.TrimSpace(formID)
	if formID == "" {
		if len(defs) > 1 {
			ids := make([]string, 0, len(defs))
			for _, def := range defs {
				ids = append(ids, def.ID)
			}
			return model.FormDefinition{}, fmt.Errorf("%s holds several forms (%s); pick one with --form", path, strings.Join(ids, ", "))
		}
		return defs[0], nil
	}
	for _, def := range defs {
		if def.ID == formID {
			return def, nil
		}
	}
	return model.FormDefinition{}, fmt.Errorf("form %q not found in %s", formID, path)
}
