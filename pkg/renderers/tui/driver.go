package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// PromptKind selects the terminal control used for a prompt.
type PromptKind int

const (
	// PromptText asks for a single line of text.
	PromptText PromptKind = iota
	// PromptParagraph asks for multi-line text.
	PromptParagraph
	// PromptChoice asks the user to pick one of Choices.
	PromptChoice
	// PromptConfirm asks a yes/no question.
	PromptConfirm
)

// Prompt is one question put to the user.
type Prompt struct {
	Kind    PromptKind
	Message string
	Help    string
	// Default seeds text prompts; "true" preselects yes on confirms.
	Default string
	Choices []string
	// Selected is the preselected index of Choices.
	Selected int
	// Validate rejects a text answer before it is accepted.
	Validate func(string) error
}

// Answer holds the reply to a Prompt. Only the member matching the prompt
// kind is set.
type Answer struct {
	Text   string
	Choice int
	Yes    bool
}

// PromptDriver puts prompts to a terminal. Tests substitute a scripted one.
type PromptDriver interface {
	Ask(ctx context.Context, prompt Prompt) (Answer, error)
	Notify(ctx context.Context, message string) error
}

type surveyDriver struct {
	out io.Writer
}

func newSurveyDriver(out io.Writer) PromptDriver {
	if out == nil {
		out = os.Stdout
	}
	return &surveyDriver{out: out}
}

func (d *surveyDriver) Ask(ctx context.Context, p Prompt) (Answer, error) {
	if err := ctx.Err(); err != nil {
		return Answer{}, err
	}

	var opts []survey.AskOpt
	if p.Validate != nil {
		validate := p.Validate
		opts = append(opts, survey.WithValidator(func(ans any) error {
			text, _ := ans.(string)
			return validate(text)
		}))
	}

	var answer Answer
	var err error
	switch p.Kind {
	case PromptConfirm:
		err = survey.AskOne(&survey.Confirm{Message: p.Message, Help: p.Help, Default: p.Default == "true"}, &answer.Yes)
	case PromptChoice:
		q := &survey.Select{Message: p.Message, Help: p.Help, Options: p.Choices}
		if p.Selected >= 0 && p.Selected < len(p.Choices) {
			q.Default = p.Choices[p.Selected]
		}
		// survey writes the chosen index when the target is an int.
		err = survey.AskOne(q, &answer.Choice)
	case PromptParagraph:
		err = survey.AskOne(&survey.Multiline{Message: p.Message, Help: p.Help, Default: p.Default}, &answer.Text, opts...)
	case PromptText:
		err = survey.AskOne(&survey.Input{Message: p.Message, Help: p.Help, Default: p.Default}, &answer.Text, opts...)
	default:
		return Answer{}, fmt.Errorf("tui: unknown prompt kind %d", p.Kind)
	}
	if errors.Is(err, terminal.InterruptErr) {
		return Answer{}, ErrAborted
	}
	return answer, err
}

func (d *surveyDriver) Notify(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, message)
	return err
}
