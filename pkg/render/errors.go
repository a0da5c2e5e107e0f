package render

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
)

// ErrorMapping splits an endpoint error payload into field-level messages
// keyed by field id and form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// ForStep returns the field errors that belong to step, plus the errors of
// fields living on other steps folded into form-level messages.
func (m ErrorMapping) ForStep(step model.Step) (map[string][]string, []string) {
	if len(m.Fields) == 0 {
		return nil, m.Form
	}
	onStep := make(map[string]struct{}, len(step.Fields))
	for _, field := range step.Fields {
		onStep[field.ID] = struct{}{}
	}
	fields := make(map[string][]string)
	form := append([]string(nil), m.Form...)
	for id, messages := range m.Fields {
		if _, ok := onStep[id]; ok {
			fields[id] = messages
			continue
		}
		form = append(form, messages...)
	}
	if len(fields) == 0 {
		fields = nil
	}
	return fields, normalizeMessages(form)
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload maps error keys (plain ids, dotted paths or JSON pointers,
// optionally wrapped in body/data/fields segments) onto the field ids of form.
// Unknown keys become form-level errors so messages are not lost.
func MapErrorPayload(form model.FormDefinition, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{}
	if len(payload) == 0 {
		return mapping
	}

	ids := make(map[string]struct{})
	for _, step := range form.Steps {
		for _, field := range step.Fields {
			if id := strings.TrimSpace(field.ID); id != "" {
				ids[id] = struct{}{}
			}
		}
	}

	fields := make(map[string][]string)
	for rawKey, messages := range payload {
		messages = normalizeMessages(messages)
		if len(messages) == 0 {
			continue
		}
		id, ok := matchFieldID(rawKey, ids)
		if !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		fields[id] = append(fields[id], messages...)
	}

	if len(fields) > 0 {
		mapping.Fields = fields
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func matchFieldID(raw string, ids map[string]struct{}) (string, bool) {
	key := strings.TrimSpace(raw)
	if isFormLevelKey(key) {
		return "", false
	}
	if _, ok := ids[key]; ok {
		return key, true
	}

	segments := stripNumericSegments(dropWrapperSegments(parsePathSegments(key)))
	if len(segments) == 0 {
		return "", false
	}
	// Field ids are flat, so the first meaningful segment decides. Dotted ids
	// are still honoured when the joined path matches exactly.
	if joined := strings.Join(segments, "."); joined != segments[0] {
		if _, ok := ids[joined]; ok {
			return joined, true
		}
	}
	if _, ok := ids[segments[0]]; ok {
		return segments[0], true
	}
	return "", false
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimLeft(clean, "#$/.")

	replacer := strings.NewReplacer("[", ".", "]", "")
	clean = strings.Trim(replacer.Replace(clean), "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

var wrapperSegments = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
	"fields":     {},
}

func dropWrapperSegments(segments []string) []string {
	for len(segments) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(segments[0])]; !ok {
			break
		}
		segments = segments[1:]
	}
	return segments
}

func stripNumericSegments(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
