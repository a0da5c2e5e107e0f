// Package formsource loads form definitions from JSON or YAML files and
// serves them as an embed.FormSource.
package formsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/embed"
	"github.com/goliatone/go-formflow/pkg/model"
)

// Store holds the loaded definitions.
type Store struct {
	mu      sync.RWMutex
	forms   map[string]model.FormDefinition
	sources map[string]string
}

var _ embed.FormSource = (*Store)(nil)

// LoadFS walks fsys and parses every .json, .yaml and .yml file. A file holds
// either one form or a "forms" list. Each definition is normalised and
// validated; duplicate ids across files are rejected.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{}
	if err := store.Reload(fsys); err != nil {
		return nil, err
	}
	return store, nil
}

// Reload replaces the store contents with fsys. On error the previous
// contents are kept.
func (s *Store) Reload(fsys fs.FS) error {
	forms := make(map[string]model.FormDefinition)
	sources := make(map[string]string)
	if fsys == nil {
		s.swap(forms, sources)
		return nil
	}

	var problems []error
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("formsource: read %s: %w", path, err)
		}
		defs, err := ParseDocument(data, path)
		if err != nil {
			problems = append(problems, err)
			return nil
		}
		for _, def := range defs {
			if prev, exists := sources[def.ID]; exists {
				problems = append(problems, fmt.Errorf("formsource: duplicate form %q (files %s and %s)", def.ID, prev, path))
				continue
			}
			forms[def.ID] = def
			sources[def.ID] = path
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		return errors.Join(problems...)
	}

	s.swap(forms, sources)
	return nil
}

func (s *Store) swap(forms map[string]model.FormDefinition, sources map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms = forms
	s.sources = sources
}

// Form implements embed.FormSource.
func (s *Store) Form(ctx context.Context, formID string) (model.FormDefinition, error) {
	if err := ctx.Err(); err != nil {
		return model.FormDefinition{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	form, ok := s.forms[strings.TrimSpace(formID)]
	if !ok {
		return model.FormDefinition{}, fmt.Errorf("%w: %s", embed.ErrFormNotFound, formID)
	}
	return form, nil
}

// IDs lists the loaded form ids in order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.forms))
	for id := range s.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Source returns the file a form was loaded from.
func (s *Store) Source(formID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	path, ok := s.sources[formID]
	return path, ok
}

type documentFile struct {
	model.FormDefinition `yaml:",inline"`
	Forms                []model.FormDefinition `json:"forms" yaml:"forms"`
}

// ParseDocument decodes one file with DecodeDocument and validates each
// definition it holds.
func ParseDocument(data []byte, source string) ([]model.FormDefinition, error) {
	defs, err := DecodeDocument(data, source)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("formsource: %s: %w", source, err)
		}
	}
	return defs, nil
}

// DecodeDocument decodes one file, trying JSON first and YAML second, and
// normalises the definitions without validating them.
func DecodeDocument(data []byte, source string) ([]model.FormDefinition, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("formsource: file %s is empty", source)
	}

	var doc documentFile
	if err := json.Unmarshal(data, &doc); err != nil {
		doc = documentFile{}
		if yerr := yaml.Unmarshal(data, &doc); yerr != nil {
			return nil, fmt.Errorf("formsource: parse %s: invalid JSON or YAML", source)
		}
	}

	defs := doc.Forms
	if strings.TrimSpace(doc.ID) != "" || len(doc.Steps) > 0 {
		defs = append([]model.FormDefinition{doc.FormDefinition}, defs...)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("formsource: file %s defines no forms", source)
	}

	for i := range defs {
		if err := model.ApplyDecorators(&defs[i], model.NormalizeDecorator()); err != nil {
			return nil, fmt.Errorf("formsource: %s: %w", source, err)
		}
	}
	return defs, nil
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
