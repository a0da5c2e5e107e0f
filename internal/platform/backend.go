package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/apispec"
	"github.com/goliatone/go-formflow/pkg/embed"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/submit"
)

// Form metadata keys the backend reads to build submit responses.
const (
	MetaSuccessMessage = "successMessage"
	MetaRedirectURL    = "redirectUrl"
)

// ErrFormMismatch is returned when a payload names a different form than
// the endpoint it was posted to.
var ErrFormMismatch = errors.New("platform: payload form does not match endpoint")

// Backend implements the three collaborator calls of the embed pipeline
// in-process.
type Backend struct {
	forms  embed.FormSource
	store  *Store
	logger *zap.Logger
}

var (
	_ embed.FormSource = (*Backend)(nil)
	_ embed.Verifier   = (*Backend)(nil)
	_ submit.Submitter = (*Backend)(nil)
)

// BackendOption configures a Backend.
type BackendOption func(*Backend)

// WithLogger sets the backend logger.
func WithLogger(logger *zap.Logger) BackendOption {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBackend wires forms and store into a Backend.
func NewBackend(forms embed.FormSource, store *Store, opts ...BackendOption) (*Backend, error) {
	if forms == nil {
		return nil, embed.ErrFormSourceRequired
	}
	if store == nil {
		return nil, errors.New("platform: store is required")
	}
	b := &Backend{forms: forms, store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b, nil
}

// Form returns the definition for formID.
func (b *Backend) Form(ctx context.Context, formID string) (model.FormDefinition, error) {
	return b.forms.Form(ctx, formID)
}

// CheckDomainVerification allows domains listed in the definition and
// domains verified in the store. Unknown forms are not verified.
func (b *Backend) CheckDomainVerification(ctx context.Context, formID, domain string) (bool, error) {
	normalized, err := embed.NormalizeDomain(domain)
	if err != nil {
		return false, err
	}
	form, err := b.forms.Form(ctx, formID)
	if err != nil {
		if errors.Is(err, embed.ErrFormNotFound) {
			return false, nil
		}
		return false, err
	}
	if embed.MatchDomain(form.Domains, normalized) {
		return true, nil
	}
	return b.store.DomainVerified(ctx, formID, normalized)
}

// Submit validates payload against the form's data schema and stores it.
// Invalid data yields an *apispec.DataError.
func (b *Backend) Submit(ctx context.Context, formID string, payload submit.Payload) (submit.Response, error) {
	if payload.FormID != "" && payload.FormID != formID {
		return submit.Response{}, fmt.Errorf("%w: %q != %q", ErrFormMismatch, payload.FormID, formID)
	}
	form, err := b.forms.Form(ctx, formID)
	if err != nil {
		return submit.Response{}, err
	}
	if err := apispec.ValidateData(form, payload.Data); err != nil {
		b.logger.Info("submission rejected", zap.String("form_id", formID), zap.Error(err))
		return submit.Response{}, err
	}

	payload.FormID = formID
	sub, err := b.store.SaveSubmission(ctx, payload)
	if err != nil {
		return submit.Response{}, err
	}
	b.logger.Info("submission stored",
		zap.String("form_id", formID),
		zap.String("submission_id", sub.ID),
		zap.String("source", string(payload.Metadata.Source)))

	return submit.Response{
		RedirectURL:    strings.TrimSpace(form.Metadata[MetaRedirectURL]),
		SuccessMessage: strings.TrimSpace(form.Metadata[MetaSuccessMessage]),
	}, nil
}
