// Package tui fills forms from a terminal. Render prompts the fields of a
// single step; Run drives a flow.Controller through every step, re-prompting
// on validation failure and offering back navigation.
package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
)

const skipOption = "(skip)"

// Renderer implements render.Renderer for terminal-driven sessions.
type Renderer struct {
	driver       PromptDriver
	outputFormat OutputFormat
	infoPrefix   string
	errorPrefix  string
	logger       *zap.Logger
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		format:      OutputFormatJSON,
		errorPrefix: "✗ ",
		logger:      zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	switch cfg.format {
	case OutputFormatJSON, OutputFormatFormURLEncoded, OutputFormatPrettyText:
	default:
		return nil, fmt.Errorf("tui: unsupported output format %q", cfg.format)
	}
	if cfg.driver == nil {
		cfg.driver = newSurveyDriver(cfg.out)
	}
	return &Renderer{
		driver:       cfg.driver,
		outputFormat: cfg.format,
		infoPrefix:   cfg.infoPrefix,
		errorPrefix:  cfg.errorPrefix,
		logger:       cfg.logger,
	}, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Render prompts every field of the view's step, seeded from
// options.Values, and serializes the raw answers. Errors in options are
// printed before the step so a re-prompt explains itself.
func (r *Renderer) Render(ctx context.Context, view render.StepView, options render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.driver == nil {
		return nil, errors.New("tui: prompt driver is nil")
	}

	answers, err := r.promptStep(ctx, view, options.Values, options.Errors, options.FormErrors)
	if err != nil {
		return nil, err
	}
	return r.serialize(answers)
}

func (r *Renderer) promptStep(ctx context.Context, view render.StepView, values map[string]any, fieldErrors map[string][]string, formErrors []string) (map[string]any, error) {
	header := fmt.Sprintf("Step %d of %d", view.Index+1, view.Total)
	if title := strings.TrimSpace(view.Step.Title); title != "" {
		header += ": " + title
	}
	if err := r.info(ctx, header); err != nil {
		return nil, err
	}
	for _, message := range formErrors {
		if err := r.errorf(ctx, "%s", message); err != nil {
			return nil, err
		}
	}

	answers := make(map[string]any, len(view.Step.Fields))
	for _, field := range view.Step.Fields {
		for _, message := range fieldErrors[field.ID] {
			if err := r.errorf(ctx, "%s: %s", field.DisplayLabel(), message); err != nil {
				return nil, err
			}
		}
		current, present := values[field.ID]
		if !present {
			current = field.Default
		}
		answer, keep, err := r.promptField(ctx, view, field, current)
		if err != nil {
			return nil, fmt.Errorf("tui: prompt %q: %w", field.ID, err)
		}
		if keep {
			answers[field.ID] = answer
		}
	}
	return answers, nil
}

// promptField asks for one value. keep is false when an optional choice was
// skipped so the key stays absent.
func (r *Renderer) promptField(ctx context.Context, view render.StepView, field model.Field, current any) (any, bool, error) {
	message := field.DisplayLabel()
	help := plainText(field.Description)
	validate := fieldValidator(view, field)

	prompt := Prompt{Kind: PromptText, Message: message, Help: help, Default: stringValue(current)}
	var choices []string

	switch field.Type.Normalize() {
	case model.FieldTypeCheckbox:
		prompt = Prompt{Kind: PromptConfirm, Message: message, Help: help, Default: strconv.FormatBool(truthy(current))}

	case model.FieldTypeSelect, model.FieldTypeRadio:
		prompt = Prompt{Kind: PromptChoice, Message: message, Help: help}
		if !field.Required {
			prompt.Choices = append(prompt.Choices, skipOption)
			choices = append(choices, "")
		}
		for _, option := range field.Options {
			label := option.Label
			if label == "" {
				label = option.Value
			}
			if option.Value == stringValue(current) {
				prompt.Selected = len(choices)
			}
			prompt.Choices = append(prompt.Choices, label)
			choices = append(choices, option.Value)
		}

	case model.FieldTypeParagraph:
		prompt.Kind = PromptParagraph
		prompt.Validate = validate

	default:
		if field.Required {
			prompt.Message += " *"
		}
		if field.Placeholder != "" && help == "" {
			prompt.Help = field.Placeholder
		}
		prompt.Validate = validate
	}

	answer, err := r.driver.Ask(ctx, prompt)
	if err != nil {
		return nil, false, err
	}
	switch prompt.Kind {
	case PromptConfirm:
		return answer.Yes, true, nil
	case PromptChoice:
		if answer.Choice < 0 || answer.Choice >= len(choices) || choices[answer.Choice] == "" {
			return nil, false, nil
		}
		return choices[answer.Choice], true, nil
	default:
		return answer.Text, true, nil
	}
}

// fieldValidator checks an answer against the step schema so the prompt can
// reject it before the step is submitted.
func fieldValidator(view render.StepView, field model.Field) func(string) error {
	rule, ok := view.Schema.Rule(field.ID)
	if !ok {
		return nil
	}
	return func(answer string) error {
		if _, _, messages := rule.Check(answer, true); len(messages) > 0 {
			return errors.New(messages[0])
		}
		return nil
	}
}

func (r *Renderer) serialize(values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		form := url.Values{}
		for _, key := range sortedKeys(values) {
			form.Set(key, stringValue(values[key]))
		}
		return []byte(form.Encode()), nil
	case OutputFormatPrettyText:
		var buf bytes.Buffer
		for _, key := range sortedKeys(values) {
			fmt.Fprintf(&buf, "%s: %s\n", key, stringValue(values[key]))
		}
		return buf.Bytes(), nil
	default:
		out, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("tui: encode answers: %w", err)
		}
		return out, nil
	}
}

func (r *Renderer) info(ctx context.Context, msg string) error {
	return r.driver.Notify(ctx, r.infoPrefix+msg)
}

func (r *Renderer) errorf(ctx context.Context, format string, args ...any) error {
	return r.driver.Notify(ctx, r.errorPrefix+fmt.Sprintf(format, args...))
}

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// plainText strips markup from descriptions and server messages and decodes
// entities for terminal display.
func plainText(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(value)))
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "on", "1", "yes":
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
