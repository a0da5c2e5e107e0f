package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/submit"
)

// Controller walks a form one step at a time. All methods are safe for
// concurrent use; calls are serialised, including dispatch.
type Controller struct {
	mu sync.Mutex

	form       model.FormDefinition
	dispatcher Dispatcher
	logger     *zap.Logger

	index   int
	status  Status
	state   model.SubmissionState
	entered map[int]map[string]any
	schemas map[int]schema.StepSchema

	errors     map[string][]string
	formErrors []string
	failed     bool
	outcome    *submit.Outcome
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a controller positioned on the first step.
func New(form model.FormDefinition, dispatcher Dispatcher, opts ...Option) (*Controller, error) {
	if len(form.Steps) == 0 {
		return nil, ErrNoSteps
	}
	if dispatcher == nil {
		return nil, ErrDispatcherRequired
	}
	c := &Controller{
		form:       form,
		dispatcher: dispatcher,
		logger:     zap.NewNop(),
		status:     StatusActive,
		state:      model.SubmissionState{},
		entered:    make(map[int]map[string]any),
		schemas:    make(map[int]schema.StepSchema),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = c.logger.With(zap.String("form_id", form.ID))
	return c, nil
}

// Restore rebuilds a controller from a snapshot taken on the same form.
func Restore(form model.FormDefinition, dispatcher Dispatcher, snap Snapshot, opts ...Option) (*Controller, error) {
	c, err := New(form, dispatcher, opts...)
	if err != nil {
		return nil, err
	}
	if snap.FormID != form.ID {
		return nil, fmt.Errorf("flow: snapshot belongs to form %q, not %q", snap.FormID, form.ID)
	}
	if snap.Index < 0 || snap.Index >= len(form.Steps) {
		return nil, fmt.Errorf("flow: snapshot step %d out of range", snap.Index)
	}

	c.index = snap.Index
	c.failed = snap.Failed
	if snap.Status == StatusDispatched {
		c.status = StatusDispatched
	}
	if snap.State != nil {
		c.state = snap.State.Clone()
	}
	for idx, values := range snap.Entered {
		c.entered[idx] = cloneValues(values)
	}
	if snap.Outcome != nil {
		outcome := *snap.Outcome
		c.outcome = &outcome
	}
	return c, nil
}

// Form returns the definition the controller walks.
func (c *Controller) Form() model.FormDefinition {
	return c.form
}

// Index is the zero-based current step.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Total is the number of steps.
func (c *Controller) Total() int {
	return len(c.form.Steps)
}

// Status reports whether the form is still being filled.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Values returns a copy of the cumulative submission state.
func (c *Controller) Values() model.SubmissionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Outcome returns the dispatch outcome once the form is submitted.
func (c *Controller) Outcome() (submit.Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == nil {
		return submit.Outcome{}, false
	}
	return *c.outcome, true
}

// View builds the schema of the current step and returns it with the step.
func (c *Controller) View() render.StepView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() render.StepView {
	return render.StepView{
		Form:   c.form,
		Step:   c.form.Steps[c.index],
		Index:  c.index,
		Total:  len(c.form.Steps),
		Schema: c.schemaLocked(c.index),
	}
}

// Feedback returns what the current step should redisplay: the raw values
// last entered on it and the errors of the last submit.
func (c *Controller) Feedback() (values map[string]any, fieldErrors map[string][]string, formErrors []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneValues(c.entered[c.index]), cloneErrors(c.errors), append([]string(nil), c.formErrors...)
}

// SubmitStep validates values against the current step. Invalid input only
// records the raw values for redisplay. Valid input is merged into the
// cumulative state and either advances or, on the terminal step, dispatches.
func (c *Controller) SubmitStep(ctx context.Context, values map[string]any) (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusDispatched {
		return Transition{}, ErrFormCompleted
	}
	if err := ctx.Err(); err != nil {
		return Transition{}, err
	}

	from := c.index
	c.entered[from] = cloneValues(values)

	cleaned, err := c.schemaLocked(from).Validate(values)
	if err != nil {
		var vErr *schema.ValidationError
		if !errors.As(err, &vErr) {
			return Transition{}, fmt.Errorf("flow: validate step %d: %w", from, err)
		}
		c.errors = vErr.Fields
		c.formErrors = nil
		c.logger.Debug("step invalid", zap.Int("step", from), zap.Int("fields", len(vErr.Fields)))
		return Transition{Kind: TransitionInvalid, From: from, To: from, Errors: cloneErrors(vErr.Fields)}, nil
	}

	c.errors = nil
	c.formErrors = nil
	// A re-submitted step replaces its previous answers, so cleared optional
	// fields leave the state.
	for _, field := range c.form.Steps[from].Fields {
		delete(c.state, field.ID)
	}
	c.state.Merge(cleaned)

	if from < len(c.form.Steps)-1 {
		c.index = from + 1
		c.logger.Debug("step advanced", zap.Int("from", from), zap.Int("to", c.index))
		return Transition{Kind: TransitionAdvanced, From: from, To: c.index}, nil
	}
	return c.dispatchLocked(ctx)
}

// Retry re-dispatches the cumulative state after a failed dispatch.
func (c *Controller) Retry(ctx context.Context) (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusDispatched {
		return Transition{}, ErrFormCompleted
	}
	if !c.failed {
		return Transition{}, ErrNothingToRetry
	}
	return c.dispatchLocked(ctx)
}

func (c *Controller) dispatchLocked(ctx context.Context) (Transition, error) {
	from := c.index
	outcome, err := c.dispatcher.Dispatch(ctx, c.form, c.state.Clone())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Transition{}, ctxErr
		}
		c.failed = true
		c.errors, c.formErrors = failureFeedback(c.form.Steps[from], err)
		c.logger.Warn("dispatch failed", zap.Error(err))
		return Transition{Kind: TransitionFailed, From: from, To: from, Errors: cloneErrors(c.errors), Err: err}, nil
	}

	c.failed = false
	c.status = StatusDispatched
	c.outcome = &outcome
	c.logger.Info("form dispatched", zap.String("outcome", string(outcome.Kind)))
	return Transition{Kind: TransitionDispatched, From: from, To: from, Outcome: outcome}, nil
}

func failureFeedback(step model.Step, err error) (map[string][]string, []string) {
	var subErr *submit.SubmissionError
	if !errors.As(err, &subErr) {
		return nil, []string{submit.GenericErrorMessage}
	}
	mapping := render.ErrorMapping{Fields: subErr.Fields, Form: subErr.Form}
	fields, form := mapping.ForStep(step)
	return fields, render.MergeFormErrors([]string{subErr.UserMessage()}, form...)
}

// Previous moves back one step, keeping every entered value. It reports
// whether the index changed.
func (c *Controller) Previous() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusDispatched {
		return false, ErrFormCompleted
	}
	if c.index == 0 {
		return false, nil
	}
	c.index--
	c.errors = nil
	c.formErrors = nil
	c.failed = false
	return true, nil
}

// Snapshot captures the controller state for a session store.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		FormID: c.form.ID,
		Index:  c.index,
		Status: c.status,
		State:  c.state.Clone(),
		Failed: c.failed,
	}
	if len(c.entered) > 0 {
		snap.Entered = make(map[int]map[string]any, len(c.entered))
		for idx, values := range c.entered {
			snap.Entered[idx] = cloneValues(values)
		}
	}
	if c.outcome != nil {
		outcome := *c.outcome
		snap.Outcome = &outcome
	}
	return snap
}

func (c *Controller) schemaLocked(index int) schema.StepSchema {
	if s, ok := c.schemas[index]; ok {
		return s
	}
	s := schema.BuildStep(c.form.Steps[index])
	c.schemas[index] = s
	return s
}

func cloneValues(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for key, value := range values {
		out[key] = value
	}
	return out
}

func cloneErrors(errs map[string][]string) map[string][]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string][]string, len(errs))
	for key, messages := range errs {
		out[key] = append([]string(nil), messages...)
	}
	return out
}
