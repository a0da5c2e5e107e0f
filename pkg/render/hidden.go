package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Names of the hidden inputs the embed server relies on.
const (
	HiddenFormID  = "_form"
	HiddenSession = "_session"
	HiddenStep    = "_step"
	HiddenMode    = "_mode"
	HiddenCSRF    = "_csrf"
)

// HiddenField represents a hidden input emitted alongside the visible fields.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// CSRFToken carries an anti-forgery token under the default input name.
func CSRFToken(token string) HiddenField {
	return Hidden(HiddenCSRF, token)
}

// SessionFields identifies the session and the step the browser is
// answering, letting the server reject stale posts.
func SessionFields(formID, sessionID string, step int) []HiddenField {
	return []HiddenField{
		Hidden(HiddenFormID, formID),
		Hidden(HiddenSession, sessionID),
		Hidden(HiddenStep, strconv.Itoa(step)),
	}
}

// MergeHiddenFields returns a copy of base with the provided fields applied.
// Empty names are ignored; later fields win on name collisions.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	out := make(map[string]string, len(base)+len(fields))
	for key, value := range base {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out[trimmed] = value
		}
	}
	for _, field := range fields {
		if field.Name == "" {
			continue
		}
		out[field.Name] = field.Value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields orders hidden fields by name for deterministic output.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	result := make([]HiddenField, 0, len(names))
	for _, name := range names {
		result = append(result, HiddenField{Name: strings.TrimSpace(name), Value: fields[name]})
	}
	return result
}
