package submit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
)

// DefaultSuccessMessage is shown when the endpoint returns neither a redirect
// nor a message.
const DefaultSuccessMessage = "Thank you! Your submission has been received."

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func messagePolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Dispatcher sends the cumulative submission state of a completed form.
type Dispatcher struct {
	mode           model.Mode
	submitter      Submitter
	logger         *zap.Logger
	now            func() time.Time
	pageURL        string
	userAgent      string
	defaultMessage string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSubmitter sets the endpoint client used in embed mode.
func WithSubmitter(submitter Submitter) Option {
	return func(d *Dispatcher) {
		d.submitter = submitter
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithPageURL records the URL of the page hosting the embed.
func WithPageURL(raw string) Option {
	return func(d *Dispatcher) {
		d.pageURL = strings.TrimSpace(raw)
	}
}

// WithUserAgent records the user agent of the submitting browser.
func WithUserAgent(ua string) Option {
	return func(d *Dispatcher) {
		d.userAgent = strings.TrimSpace(ua)
	}
}

// WithDefaultMessage replaces DefaultSuccessMessage.
func WithDefaultMessage(message string) Option {
	return func(d *Dispatcher) {
		if trimmed := strings.TrimSpace(message); trimmed != "" {
			d.defaultMessage = trimmed
		}
	}
}

// New builds a Dispatcher for mode. Embed mode requires a Submitter.
func New(mode model.Mode, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		mode:           mode,
		logger:         zap.NewNop(),
		now:            time.Now,
		defaultMessage: DefaultSuccessMessage,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	switch mode {
	case model.ModePreview:
	case model.ModeEmbed:
		if d.submitter == nil {
			return nil, ErrSubmitterRequired
		}
	default:
		return nil, fmt.Errorf("submit: unsupported mode %q", mode)
	}
	return d, nil
}

// Mode reports the dispatch mode.
func (d *Dispatcher) Mode() model.Mode { return d.mode }

// Dispatch sends state for form. Preview mode never touches the network. On
// failure the returned error is a *SubmissionError and state is not modified.
func (d *Dispatcher) Dispatch(ctx context.Context, form model.FormDefinition, state model.SubmissionState) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	if d.mode == model.ModePreview {
		d.logger.Info("preview submission",
			zap.String("form_id", form.ID),
			zap.Any("values", state))
		return Outcome{Kind: OutcomePreview, Values: state.Clone()}, nil
	}

	payload := Payload{
		FormID: form.ID,
		Data:   state.Clone(),
		Metadata: Metadata{
			Source:      d.mode,
			URL:         d.pageURL,
			UserAgent:   d.userAgent,
			SubmittedAt: d.now().UTC(),
		},
	}

	resp, err := d.submitter.Submit(ctx, form.ID, payload)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return Outcome{}, err
		}
		d.logger.Warn("submission failed", zap.String("form_id", form.ID), zap.Error(err))
		subErr := &SubmissionError{FormID: form.ID, Err: err}
		var carrier FieldErrorCarrier
		if errors.As(err, &carrier) {
			mapping := render.MapErrorPayload(form, carrier.FieldErrors())
			subErr.Fields = mapping.Fields
			subErr.Form = mapping.Form
		}
		return Outcome{}, subErr
	}

	redirect, ok := safeRedirect(resp.RedirectURL)
	if ok {
		d.logger.Debug("submission redirect", zap.String("form_id", form.ID), zap.String("url", redirect))
		return Outcome{Kind: OutcomeRedirect, RedirectURL: redirect}, nil
	}
	if strings.TrimSpace(resp.RedirectURL) != "" {
		d.logger.Warn("ignoring unsafe redirect", zap.String("form_id", form.ID), zap.String("url", resp.RedirectURL))
	}

	message := strings.TrimSpace(messagePolicy().Sanitize(resp.SuccessMessage))
	if message == "" {
		message = d.defaultMessage
	}
	return Outcome{Kind: OutcomeMessage, Message: message}, nil
}

// safeRedirect admits absolute http(s) URLs and site-relative paths.
func safeRedirect(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	switch {
	case u.Scheme == "http" || u.Scheme == "https":
		if u.Host == "" {
			return "", false
		}
		return u.String(), true
	case u.Scheme == "" && u.Host == "" && strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//"):
		return u.String(), true
	default:
		return "", false
	}
}
