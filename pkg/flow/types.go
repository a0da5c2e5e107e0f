package flow

import (
	"context"
	"errors"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/submit"
)

var (
	// ErrFormCompleted is returned by every mutating call after a successful
	// dispatch.
	ErrFormCompleted = errors.New("flow: form already submitted")
	// ErrNoSteps is returned for definitions without steps.
	ErrNoSteps = errors.New("flow: form has no steps")
	// ErrDispatcherRequired is returned when New receives a nil dispatcher.
	ErrDispatcherRequired = errors.New("flow: dispatcher is required")
	// ErrNothingToRetry is returned by Retry when the last dispatch did not
	// fail.
	ErrNothingToRetry = errors.New("flow: no failed submission to retry")
)

// Dispatcher sends the cumulative state once the terminal step validates.
// *submit.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, form model.FormDefinition, state model.SubmissionState) (submit.Outcome, error)
}

// Status of a controller.
type Status string

const (
	StatusActive     Status = "active"
	StatusDispatched Status = "dispatched"
)

// TransitionKind classifies the result of SubmitStep and Retry.
type TransitionKind string

const (
	// TransitionInvalid means the step failed validation; nothing was merged.
	TransitionInvalid TransitionKind = "invalid"
	// TransitionAdvanced means the step merged and the next step is current.
	TransitionAdvanced TransitionKind = "advanced"
	// TransitionDispatched means the terminal step merged and dispatch
	// succeeded.
	TransitionDispatched TransitionKind = "dispatched"
	// TransitionFailed means dispatch failed; state is kept for a retry.
	TransitionFailed TransitionKind = "failed"
)

// Transition reports what a submit did.
type Transition struct {
	Kind    TransitionKind
	From    int
	To      int
	Errors  map[string][]string
	Outcome submit.Outcome
	Err     error
}

// Snapshot is the serialisable state of a controller.
type Snapshot struct {
	FormID  string                 `json:"formId" msgpack:"form_id"`
	Index   int                    `json:"index" msgpack:"index"`
	Status  Status                 `json:"status" msgpack:"status"`
	State   model.SubmissionState  `json:"state,omitempty" msgpack:"state,omitempty"`
	Entered map[int]map[string]any `json:"entered,omitempty" msgpack:"entered,omitempty"`
	Failed  bool                   `json:"failed,omitempty" msgpack:"failed,omitempty"`
	Outcome *submit.Outcome        `json:"outcome,omitempty" msgpack:"outcome,omitempty"`
}
