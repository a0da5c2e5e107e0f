package submit

import (
	"errors"
	"fmt"
)

// GenericErrorMessage is the only failure text shown to end users.
const GenericErrorMessage = "Something went wrong while submitting the form. Please try again."

// ErrSubmitterRequired is returned when embed mode has no Submitter.
var ErrSubmitterRequired = errors.New("submit: submitter is required in embed mode")

// FieldErrorCarrier is implemented by transport errors that decoded a
// field-level error payload from the endpoint.
type FieldErrorCarrier interface {
	FieldErrors() map[string][]string
}

// SubmissionError wraps a failed dispatch. The submission state is untouched
// so the caller may retry.
type SubmissionError struct {
	FormID string
	Fields map[string][]string
	Form   []string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e == nil {
		return "submit: submission failed"
	}
	return fmt.Sprintf("submit: form %q: %v", e.FormID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UserMessage returns the retry-suggesting text for end users.
func (e *SubmissionError) UserMessage() string {
	return GenericErrorMessage
}
