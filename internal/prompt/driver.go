// Package prompt fills a registration session interactively in the terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// InputConfig describes a single-line question.
type InputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

// ConfirmConfig describes a yes/no question, used for agreements.
type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// SelectConfig describes a choice among Options. DefaultIndex applies to
// Select, Defaults to MultiSelect; both index into Options.
type SelectConfig struct {
	Message      string
	Options      []string
	DefaultIndex int
	Defaults     []int
	Help         string
}

// TextAreaConfig describes a multi-line question.
type TextAreaConfig struct {
	Message string
	Default string
	Help    string
}

// Driver is the terminal seen by Fill and Review. Tests swap in a scripted
// implementation.
type Driver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
	Select(ctx context.Context, cfg SelectConfig) (int, error)
	MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error)
	TextArea(ctx context.Context, cfg TextAreaConfig) (string, error)
	Info(ctx context.Context, msg string) error
}

const choicePageSize = 12

type surveyDriver struct {
	in  terminal.FileReader
	out terminal.FileWriter
}

// NewSurveyDriver returns a Driver that renders survey prompts and notices on
// out (stderr when nil) and reads from stdin, leaving stdout to the caller.
func NewSurveyDriver(out *os.File) Driver {
	if out == nil {
		out = os.Stderr
	}
	return &surveyDriver{in: os.Stdin, out: out}
}

// askOne runs p unless ctx is already done and maps an interrupt to
// ErrAborted.
func (d *surveyDriver) askOne(ctx context.Context, p survey.Prompt, dst any, opts ...survey.AskOpt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts = append(opts, survey.WithStdio(d.in, d.out, d.out))
	err := survey.AskOne(p, dst, opts...)
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

func (d *surveyDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	var opts []survey.AskOpt
	if validate := cfg.Validator; validate != nil {
		opts = append(opts, survey.WithValidator(func(ans any) error {
			text, _ := ans.(string)
			return validate(text)
		}))
	}
	var answer string
	err := d.askOne(ctx, &survey.Input{Message: cfg.Message, Default: cfg.Default, Help: cfg.Help}, &answer, opts...)
	return answer, err
}

func (d *surveyDriver) TextArea(ctx context.Context, cfg TextAreaConfig) (string, error) {
	var answer string
	err := d.askOne(ctx, &survey.Multiline{Message: cfg.Message, Default: cfg.Default, Help: cfg.Help}, &answer)
	return answer, err
}

func (d *surveyDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	var answer bool
	err := d.askOne(ctx, &survey.Confirm{Message: cfg.Message, Default: cfg.Default, Help: cfg.Help}, &answer)
	return answer, err
}

// Select returns the chosen index. survey reports single choices as an
// OptionAnswer, so the index comes back without a string lookup.
func (d *surveyDriver) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	p := &survey.Select{
		Message:  cfg.Message,
		Options:  cfg.Options,
		Help:     cfg.Help,
		PageSize: choicePageSize,
	}
	if cfg.DefaultIndex > 0 && cfg.DefaultIndex < len(cfg.Options) {
		p.Default = cfg.DefaultIndex
	}
	var answer survey.OptionAnswer
	if err := d.askOne(ctx, p, &answer); err != nil {
		return 0, err
	}
	return answer.Index, nil
}

func (d *surveyDriver) MultiSelect(ctx context.Context, cfg SelectConfig) ([]int, error) {
	p := &survey.MultiSelect{
		Message:  cfg.Message,
		Options:  cfg.Options,
		Help:     cfg.Help,
		PageSize: choicePageSize,
	}
	var defaults []int
	for _, idx := range cfg.Defaults {
		if idx >= 0 && idx < len(cfg.Options) {
			defaults = append(defaults, idx)
		}
	}
	if len(defaults) > 0 {
		p.Default = defaults
	}
	var answers []survey.OptionAnswer
	if err := d.askOne(ctx, p, &answers); err != nil {
		return nil, err
	}
	picked := make([]int, len(answers))
	for i, a := range answers {
		picked[i] = a.Index
	}
	return picked, nil
}

func (d *surveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}
