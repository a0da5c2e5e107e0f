package tui

import "errors"

var (
	// ErrAborted is returned when the user interrupts a prompt.
	ErrAborted = errors.New("tui: aborted")
	// ErrSubmissionFailed is returned by Run when delivery failed and the
	// user chose not to retry.
	ErrSubmissionFailed = errors.New("tui: submission failed")
)
