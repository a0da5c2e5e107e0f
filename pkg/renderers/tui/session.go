package tui

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/flow"
	"github.com/goliatone/go-formflow/pkg/submit"
)

const (
	continueOption = "Continue"
	backOption     = "Back"
)

// Run fills ctrl from the terminal until it dispatches. Each step is
// prompted with the values entered earlier; on steps after the first the
// user may go back instead of submitting. Invalid steps are re-prompted with
// their errors. A failed dispatch offers a retry.
func (r *Renderer) Run(ctx context.Context, ctrl *flow.Controller) (submit.Outcome, error) {
	if ctrl == nil {
		return submit.Outcome{}, errors.New("tui: controller is required")
	}

	for {
		if err := ctx.Err(); err != nil {
			return submit.Outcome{}, err
		}
		if outcome, done := ctrl.Outcome(); done {
			return outcome, r.showOutcome(ctx, outcome)
		}

		view := ctrl.View()
		values, fieldErrors, formErrors := ctrl.Feedback()
		answers, err := r.promptStep(ctx, view, values, fieldErrors, formErrors)
		if err != nil {
			return submit.Outcome{}, err
		}

		if !view.First() {
			next, err := r.driver.Ask(ctx, Prompt{
				Kind:    PromptChoice,
				Message: "Next action",
				Choices: []string{continueOption, backOption},
			})
			if err != nil {
				return submit.Outcome{}, err
			}
			if next.Choice == 1 {
				if _, err := ctrl.Previous(); err != nil {
					return submit.Outcome{}, err
				}
				continue
			}
		}

		transition, err := ctrl.SubmitStep(ctx, answers)
		if err != nil {
			return submit.Outcome{}, fmt.Errorf("tui: submit step: %w", err)
		}
		r.logger.Debug("step submitted",
			zap.String("transition", string(transition.Kind)),
			zap.Int("from", transition.From),
			zap.Int("to", transition.To))

		if transition.Kind != flow.TransitionFailed {
			continue
		}
		for transition.Kind == flow.TransitionFailed {
			_, _, formErrors := ctrl.Feedback()
			for _, message := range formErrors {
				if err := r.errorf(ctx, "%s", plainText(message)); err != nil {
					return submit.Outcome{}, err
				}
			}
			retry, err := r.driver.Ask(ctx, Prompt{Kind: PromptConfirm, Message: "Try again?", Default: "true"})
			if err != nil {
				return submit.Outcome{}, err
			}
			if !retry.Yes {
				return submit.Outcome{}, fmt.Errorf("%w: %w", ErrSubmissionFailed, transition.Err)
			}
			if transition, err = ctrl.Retry(ctx); err != nil {
				return submit.Outcome{}, fmt.Errorf("tui: retry: %w", err)
			}
		}
	}
}

func (r *Renderer) showOutcome(ctx context.Context, outcome submit.Outcome) error {
	switch outcome.Kind {
	case submit.OutcomeRedirect:
		return r.info(ctx, "Redirecting to "+outcome.RedirectURL)
	case submit.OutcomePreview:
		if err := r.info(ctx, "Preview submission (nothing was sent):"); err != nil {
			return err
		}
		for _, key := range sortedKeys(outcome.Values) {
			if err := r.info(ctx, fmt.Sprintf("  %s: %s", key, stringValue(outcome.Values[key]))); err != nil {
				return err
			}
		}
		return nil
	default:
		return r.info(ctx, plainText(outcome.Message))
	}
}
