package tui

import (
	"io"

	"go.uber.org/zap"
)

// OutputFormat controls how Render serializes the answers of a step.
type OutputFormat string

const (
	OutputFormatJSON           OutputFormat = "json"
	OutputFormatFormURLEncoded OutputFormat = "form"
	OutputFormatPrettyText     OutputFormat = "pretty"
)

type config struct {
	driver      PromptDriver
	out         io.Writer
	format      OutputFormat
	infoPrefix  string
	errorPrefix string
	logger      *zap.Logger
}

// Option configures the TUI renderer.
type Option func(*config)

// WithPromptDriver replaces the survey driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(cfg *config) {
		if driver != nil {
			cfg.driver = driver
		}
	}
}

// WithOutput sends notices of the survey driver to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(cfg *config) {
		if w != nil {
			cfg.out = w
		}
	}
}

// WithOutputFormat selects how Render serializes answers.
func WithOutputFormat(format OutputFormat) Option {
	return func(cfg *config) {
		if format != "" {
			cfg.format = format
		}
	}
}

// WithPrefixes sets the markers printed before step headers and before
// validation or delivery errors.
func WithPrefixes(info, errs string) Option {
	return func(cfg *config) {
		cfg.infoPrefix = info
		cfg.errorPrefix = errs
	}
}

// WithLogger sets the logger used for step transitions.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
