package render

import (
	"context"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// Renderer converts the current step of a form into a byte representation
// (HTML fragment, terminal transcript, ...).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, view StepView, options RenderOptions) ([]byte, error)
}

// NoticeRenderer is implemented by renderers that can also display the
// non-form states of an embed (loading, not verified, not found, success and
// submission failure).
type NoticeRenderer interface {
	RenderNotice(ctx context.Context, notice Notice, options RenderOptions) ([]byte, error)
}

// StepView is the read-only projection of a step a renderer works from. The
// schema is always built before the view is handed out, so no field is
// rendered without its validation rules.
type StepView struct {
	Form   model.FormDefinition
	Step   model.Step
	Index  int
	Total  int
	Schema schema.StepSchema
}

// First reports whether the view is the opening step.
func (v StepView) First() bool { return v.Index == 0 }

// Last reports whether submitting the view triggers dispatch.
func (v StepView) Last() bool { return v.Total > 0 && v.Index == v.Total-1 }

// NoticeKind identifies a terminal or transient embed state.
type NoticeKind string

const (
	NoticeLoading     NoticeKind = "loading"
	NoticeNotVerified NoticeKind = "not-verified"
	NoticeNotFound    NoticeKind = "not-found"
	NoticeSuccess     NoticeKind = "success"
	NoticeFailure     NoticeKind = "failure"
	NoticeError       NoticeKind = "error"
)

// Default user-facing texts for notices.
const (
	LoadingMessage     = "Loading form..."
	NotVerifiedMessage = "Domain not verified"
	NotFoundMessage    = "Form not found"
	ErrorMessage       = "The form could not be loaded."
)

// Notice is a message-only view.
type Notice struct {
	Kind    NoticeKind
	Title   string
	Message string
	// Values carries the collected submission in preview mode.
	Values model.SubmissionState
}

// NewNotice builds a notice using the default message for kind when message is
// empty.
func NewNotice(kind NoticeKind, message string) Notice {
	if message == "" {
		switch kind {
		case NoticeLoading:
			message = LoadingMessage
		case NoticeNotVerified:
			message = NotVerifiedMessage
		case NoticeNotFound:
			message = NotFoundMessage
		case NoticeError:
			message = ErrorMessage
		}
	}
	return Notice{Kind: kind, Message: message}
}
