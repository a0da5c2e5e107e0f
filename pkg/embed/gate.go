// Package embed mounts a form for a hosting page: it verifies the page domain
// in embed mode, fetches the definition, resolves the theme and builds the
// step controller, strictly in that order.
package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gotheme "github.com/goliatone/go-theme"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/flow"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/submit"
	"github.com/goliatone/go-formflow/pkg/theme"
)

var (
	// ErrFormNotFound is returned by a FormSource for unknown forms.
	ErrFormNotFound = errors.New("embed: form not found")
	// ErrVerifierRequired is reported when embed mode has no Verifier.
	ErrVerifierRequired = errors.New("embed: verifier is required in embed mode")
	// ErrFormSourceRequired is returned by NewGate without a FormSource.
	ErrFormSourceRequired = errors.New("embed: form source is required")
)

// Verifier answers whether domain may embed formID.
type Verifier interface {
	CheckDomainVerification(ctx context.Context, formID, domain string) (bool, error)
}

// VerifierFunc adapts a function into a Verifier.
type VerifierFunc func(ctx context.Context, formID, domain string) (bool, error)

// CheckDomainVerification calls fn.
func (fn VerifierFunc) CheckDomainVerification(ctx context.Context, formID, domain string) (bool, error) {
	return fn(ctx, formID, domain)
}

// FormSource fetches form definitions.
type FormSource interface {
	Form(ctx context.Context, formID string) (model.FormDefinition, error)
}

// DomainVerificationResult is the outcome of the embed check. It is reported
// to callers and never persisted.
type DomainVerificationResult struct {
	Verified bool
	Domain   string
}

// Status of a mount attempt.
type Status string

const (
	StatusReady       Status = "ready"
	StatusNotVerified Status = "not-verified"
	StatusNotFound    Status = "not-found"
	StatusError       Status = "error"
)

// MountRequest is the embed mount contract of the hosting page.
type MountRequest struct {
	FormID    string
	Mode      model.Mode
	PageURL   string
	UserAgent string
	Theme     model.ThemeTokens
}

// Mount is the result of Gate.Mount. Controller is set only when Status is
// StatusReady.
type Mount struct {
	Status       Status
	Mode         model.Mode
	Form         model.FormDefinition
	Controller   *flow.Controller
	Theme        model.ThemeTokens
	ThemeConfig  *gotheme.RendererConfig
	Verification *DomainVerificationResult
	Err          error
}

// Ready reports whether the form can be rendered.
func (m Mount) Ready() bool {
	return m.Status == StatusReady && m.Controller != nil
}

// Notice returns the message view replacing the form for non-ready mounts.
func (m Mount) Notice() render.Notice {
	switch m.Status {
	case StatusNotVerified:
		return render.NewNotice(render.NoticeNotVerified, "")
	case StatusNotFound:
		return render.NewNotice(render.NoticeNotFound, "")
	default:
		return render.NewNotice(render.NoticeError, "")
	}
}

// Gate performs mounts.
type Gate struct {
	forms       FormSource
	verifier    Verifier
	submitter   submit.Submitter
	resolver    *theme.Resolver
	logger      *zap.Logger
	flowOptions []flow.Option
}

// Option configures a Gate.
type Option func(*Gate)

// WithVerifier sets the domain verifier used in embed mode.
func WithVerifier(v Verifier) Option {
	return func(g *Gate) {
		g.verifier = v
	}
}

// WithSubmitter sets the submit endpoint client handed to embed dispatchers.
func WithSubmitter(s submit.Submitter) Option {
	return func(g *Gate) {
		g.submitter = s
	}
}

// WithThemeResolver replaces the default token resolver.
func WithThemeResolver(r *theme.Resolver) Option {
	return func(g *Gate) {
		if r != nil {
			g.resolver = r
		}
	}
}

// WithLogger sets the gate logger. Controllers and dispatchers inherit it.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithFlowOptions forwards options to every controller the gate builds.
func WithFlowOptions(opts ...flow.Option) Option {
	return func(g *Gate) {
		g.flowOptions = append(g.flowOptions, opts...)
	}
}

// NewGate builds a Gate over forms.
func NewGate(forms FormSource, opts ...Option) (*Gate, error) {
	if forms == nil {
		return nil, ErrFormSourceRequired
	}
	g := &Gate{
		forms:    forms,
		resolver: theme.NewResolver(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Mount verifies, fetches and mounts a form. Domain and fetch failures are
// reported through Mount.Status; the returned error is non-nil only when ctx
// ends, in which case nothing is mounted.
func (g *Gate) Mount(ctx context.Context, req MountRequest) (Mount, error) {
	mode := req.Mode
	if mode == "" {
		mode = model.ModeEmbed
	}
	formID := strings.TrimSpace(req.FormID)
	logger := g.logger.With(zap.String("form_id", formID), zap.String("mode", string(mode)))
	result := Mount{Mode: mode}

	if err := ctx.Err(); err != nil {
		return Mount{}, err
	}

	if mode != model.ModePreview {
		verification, err := g.verify(ctx, formID, req.PageURL)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Mount{}, ctxErr
		}
		result.Verification = verification
		if errors.Is(err, ErrInvalidDomain) {
			logger.Info("no embedding domain", zap.String("page_url", req.PageURL), zap.Error(err))
			result.Status = StatusNotVerified
			result.Err = err
			return result, nil
		}
		if err != nil {
			logger.Warn("domain verification failed", zap.Error(err))
			result.Status = StatusError
			result.Err = err
			return result, nil
		}
		if !verification.Verified {
			logger.Info("domain not verified", zap.String("domain", verification.Domain))
			result.Status = StatusNotVerified
			return result, nil
		}
	}

	form, err := g.forms.Form(ctx, formID)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Mount{}, ctxErr
	}
	if err != nil {
		result.Err = err
		if errors.Is(err, ErrFormNotFound) {
			result.Status = StatusNotFound
		} else {
			logger.Warn("form fetch failed", zap.Error(err))
			result.Status = StatusError
		}
		return result, nil
	}
	result.Form = form

	result.Theme, result.ThemeConfig = g.resolver.Resolve(form, req.Theme)

	controller, err := g.controller(form, mode, req)
	if err != nil {
		logger.Error("mount failed", zap.Error(err))
		result.Status = StatusError
		result.Err = err
		return result, nil
	}
	result.Controller = controller
	result.Status = StatusReady
	return result, nil
}

// Resume rebuilds the controller of an existing session without repeating
// domain verification.
func (g *Gate) Resume(ctx context.Context, req MountRequest, snap flow.Snapshot) (Mount, error) {
	mode := req.Mode
	if mode == "" {
		mode = model.ModeEmbed
	}
	form, err := g.forms.Form(ctx, req.FormID)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Mount{}, ctxErr
	}
	if err != nil {
		status := StatusError
		if errors.Is(err, ErrFormNotFound) {
			status = StatusNotFound
		}
		return Mount{Status: status, Mode: mode, Err: err}, nil
	}

	dispatcher, err := g.dispatcher(mode, req)
	if err != nil {
		return Mount{Status: StatusError, Mode: mode, Err: err}, nil
	}
	controller, err := flow.Restore(form, dispatcher, snap, g.controllerOptions()...)
	if err != nil {
		return Mount{Status: StatusError, Mode: mode, Err: err}, nil
	}
	tokens, cfg := g.resolver.Resolve(form, req.Theme)
	return Mount{
		Status:      StatusReady,
		Mode:        mode,
		Form:        form,
		Controller:  controller,
		Theme:       tokens,
		ThemeConfig: cfg,
	}, nil
}

func (g *Gate) verify(ctx context.Context, formID, pageURL string) (*DomainVerificationResult, error) {
	if g.verifier == nil {
		return nil, ErrVerifierRequired
	}
	domain, err := DomainFromURL(pageURL)
	if err != nil {
		return &DomainVerificationResult{}, err
	}
	ok, err := g.verifier.CheckDomainVerification(ctx, formID, domain)
	if err != nil {
		return &DomainVerificationResult{Domain: domain}, fmt.Errorf("embed: verify %q: %w", domain, err)
	}
	return &DomainVerificationResult{Verified: ok, Domain: domain}, nil
}

func (g *Gate) controller(form model.FormDefinition, mode model.Mode, req MountRequest) (*flow.Controller, error) {
	dispatcher, err := g.dispatcher(mode, req)
	if err != nil {
		return nil, err
	}
	return flow.New(form, dispatcher, g.controllerOptions()...)
}

func (g *Gate) dispatcher(mode model.Mode, req MountRequest) (*submit.Dispatcher, error) {
	opts := []submit.Option{
		submit.WithLogger(g.logger),
		submit.WithPageURL(req.PageURL),
		submit.WithUserAgent(req.UserAgent),
	}
	if g.submitter != nil {
		opts = append(opts, submit.WithSubmitter(g.submitter))
	}
	return submit.New(mode, opts...)
}

func (g *Gate) controllerOptions() []flow.Option {
	return append([]flow.Option{flow.WithLogger(g.logger)}, g.flowOptions...)
}
