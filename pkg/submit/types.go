package submit

import (
	"context"
	"time"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Metadata describes the request context of a submission.
type Metadata struct {
	Source      model.Mode `json:"source"`
	URL         string     `json:"url,omitempty"`
	UserAgent   string     `json:"userAgent,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
}

// Payload is the body sent to POST /forms/{formId}/submit.
type Payload struct {
	FormID   string                `json:"formId"`
	Data     model.SubmissionState `json:"data"`
	Metadata Metadata              `json:"metadata"`
}

// Response is the success body of the submit endpoint.
type Response struct {
	RedirectURL    string `json:"redirectUrl,omitempty"`
	SuccessMessage string `json:"successMessage,omitempty"`
}

// Submitter sends a payload to the submit endpoint of a form.
type Submitter interface {
	Submit(ctx context.Context, formID string, payload Payload) (Response, error)
}

// SubmitterFunc adapts a function into a Submitter.
type SubmitterFunc func(ctx context.Context, formID string, payload Payload) (Response, error)

// Submit calls the underlying function.
func (fn SubmitterFunc) Submit(ctx context.Context, formID string, payload Payload) (Response, error) {
	return fn(ctx, formID, payload)
}

// OutcomeKind tells the host what to do after a successful dispatch.
type OutcomeKind string

const (
	// OutcomePreview means nothing was sent; Values holds what was collected.
	OutcomePreview OutcomeKind = "preview"
	// OutcomeRedirect asks the host page to navigate to RedirectURL.
	OutcomeRedirect OutcomeKind = "redirect"
	// OutcomeMessage asks the host to show Message inline.
	OutcomeMessage OutcomeKind = "message"
)

// Outcome is the result of a successful dispatch.
type Outcome struct {
	Kind        OutcomeKind           `json:"kind" msgpack:"kind"`
	RedirectURL string                `json:"redirectUrl,omitempty" msgpack:"redirect_url,omitempty"`
	Message     string                `json:"message,omitempty" msgpack:"message,omitempty"`
	Values      model.SubmissionState `json:"values,omitempty" msgpack:"values,omitempty"`
}
