package prompt

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/tsxcorp/go-regform/pkg/schema"
	"github.com/tsxcorp/go-regform/pkg/session"
	"github.com/tsxcorp/go-regform/pkg/textnorm"
)

// Messages are the fixed strings the fill flow prints. They are not part of
// the event schema, so callers localize them separately.
type Messages struct {
	Required     string
	InvalidEmail string
	InvalidNum   string
	MustAgree    string
	SwitchFailed string
}

// DefaultMessages returns English messages.
func DefaultMessages() Messages {
	return Messages{
		Required:     "This field is required",
		InvalidEmail: "Enter a valid email address",
		InvalidNum:   "Enter a number",
		MustAgree:    "You must agree to continue",
		SwitchFailed: "Could not switch language",
	}
}

// SwitchPrefix typed into a text prompt switches the session language, for
// example ":lang en". The interrupted field is asked again in the new
// language, or in the old one when the switch fails.
const SwitchPrefix = ":lang "

func isSwitch(text string) bool {
	return strings.HasPrefix(text, SwitchPrefix) || text == strings.TrimSpace(SwitchPrefix)
}

type switchRequest struct {
	lang string
}

func (r switchRequest) Error() string { return "prompt: switch language to " + r.lang }

// Fill asks for every visible field of s in display order and records the
// answers. Visibility is recomputed after each answer, so fields revealed by
// a later answer are asked as soon as they appear, and fields hidden by one
// are skipped.
func Fill(ctx context.Context, s *session.Session, driver Driver, messages Messages) error {
	if s == nil || driver == nil {
		return errors.New("prompt: session and driver are required")
	}
	asked := make(map[string]bool)
	lastSection := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		field, ok := nextField(s, asked)
		if !ok {
			return nil
		}
		asked[field.FieldID] = true

		if section := strings.TrimSpace(field.SectionName); section != "" && section != lastSection {
			lastSection = section
			if err := driver.Info(ctx, "== "+section+" =="); err != nil {
				return err
			}
		}

		current := s.Answers()[field.FieldID]
		value, answered, err := ask(ctx, driver, field, current, messages)
		var sw switchRequest
		if errors.As(err, &sw) {
			delete(asked, field.FieldID)
			if _, err := s.SwitchLanguage(ctx, sw.lang); err != nil {
				if ctx.Err() != nil {
					return fmt.Errorf("prompt: %w", err)
				}
				if err := driver.Info(ctx, fmt.Sprintf("%s: %v", messages.SwitchFailed, err)); err != nil {
					return err
				}
				continue
			}
			lastSection = ""
			if err := driver.Info(ctx, "language: "+s.Language()); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("prompt: %s: %w", field.FieldID, err)
		}
		if !answered {
			s.Clear(field.FieldID)
			continue
		}
		if err := s.Set(field.FieldID, value); err != nil {
			return err
		}
	}
}

func nextField(s *session.Session, asked map[string]bool) (schema.FieldSchema, bool) {
	decisions := s.Visibility()
	for _, field := range s.Schema().SortedFields() {
		if asked[field.FieldID] || !decisions.Visible(field.FieldID) {
			continue
		}
		return field, true
	}
	return schema.FieldSchema{}, false
}

func title(field schema.FieldSchema) string {
	label := strings.TrimSpace(field.Label)
	if field.Required {
		label += " *"
	}
	return label
}

func help(field schema.FieldSchema) string {
	if h := strings.TrimSpace(field.HelpText); h != "" {
		return h
	}
	return strings.TrimSpace(field.Placeholder)
}

func ask(ctx context.Context, driver Driver, field schema.FieldSchema, current schema.Value, messages Messages) (schema.Value, bool, error) {
	switch field.Type {
	case schema.FieldTypeSelect, schema.FieldTypeRadio:
		return askSelect(ctx, driver, field, current)
	case schema.FieldTypeMultiSelect, schema.FieldTypeCheckbox:
		return askMulti(ctx, driver, field, current, messages)
	case schema.FieldTypeAgreement:
		return askAgreement(ctx, driver, field, current, messages)
	case schema.FieldTypeTextarea:
		text, err := driver.TextArea(ctx, TextAreaConfig{
			Message: title(field),
			Default: current.String(),
			Help:    help(field),
		})
		if err != nil {
			return schema.Value{}, false, err
		}
		return textAnswer(text)
	default:
		text, err := driver.Input(ctx, InputConfig{
			Message:   title(field),
			Default:   current.String(),
			Help:      help(field),
			Validator: validatorFor(field, messages),
		})
		if err != nil {
			return schema.Value{}, false, err
		}
		return textAnswer(text)
	}
}

func textAnswer(text string) (schema.Value, bool, error) {
	text = strings.TrimSpace(text)
	if isSwitch(text) {
		lang := strings.TrimPrefix(text, strings.TrimSpace(SwitchPrefix))
		return schema.Value{}, false, switchRequest{lang: strings.TrimSpace(lang)}
	}
	if text == "" {
		return schema.Value{}, false, nil
	}
	return schema.Text(text), true, nil
}

func validatorFor(field schema.FieldSchema, messages Messages) func(string) error {
	return func(raw string) error {
		text := strings.TrimSpace(raw)
		if isSwitch(text) {
			return nil
		}
		if text == "" {
			if field.Required {
				return errors.New(messages.Required)
			}
			return nil
		}
		switch field.Type {
		case schema.FieldTypeEmail:
			if _, err := mail.ParseAddress(text); err != nil {
				return errors.New(messages.InvalidEmail)
			}
		case schema.FieldTypeNumber:
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				return errors.New(messages.InvalidNum)
			}
		}
		return nil
	}
}

func optionLabels(field schema.FieldSchema) []string {
	labels := make([]string, len(field.Options))
	for i := range field.Options {
		labels[i] = field.OptionLabel(i)
	}
	return labels
}

// optionIndices locates the answered values among the field's options under
// the same normalization conditions use.
func optionIndices(field schema.FieldSchema, current schema.Value) []int {
	if current.IsZero() {
		return nil
	}
	answered := make(map[string]struct{})
	for _, v := range current.Strings() {
		answered[textnorm.Key(v)] = struct{}{}
	}
	var out []int
	for i, option := range field.Options {
		if _, ok := answered[textnorm.Key(option)]; ok {
			out = append(out, i)
		}
	}
	return out
}

func askSelect(ctx context.Context, driver Driver, field schema.FieldSchema, current schema.Value) (schema.Value, bool, error) {
	defaultIndex := -1
	if picked := optionIndices(field, current); len(picked) > 0 && current.Kind() == schema.KindText {
		defaultIndex = picked[0]
	}
	idx, err := driver.Select(ctx, SelectConfig{
		Message:      title(field),
		Options:      optionLabels(field),
		DefaultIndex: defaultIndex,
		Help:         help(field),
	})
	if err != nil {
		return schema.Value{}, false, err
	}
	if idx < 0 || idx >= len(field.Options) {
		return schema.Value{}, false, ErrNoOption
	}
	return schema.Text(field.Options[idx]), true, nil
}

func askMulti(ctx context.Context, driver Driver, field schema.FieldSchema, current schema.Value, messages Messages) (schema.Value, bool, error) {
	defaults := optionIndices(field, current)
	for {
		picked, err := driver.MultiSelect(ctx, SelectConfig{
			Message:  title(field),
			Options:  optionLabels(field),
			Defaults: defaults,
			Help:     help(field),
		})
		if err != nil {
			return schema.Value{}, false, err
		}
		values := make([]string, 0, len(picked))
		for _, idx := range picked {
			if idx >= 0 && idx < len(field.Options) {
				values = append(values, field.Options[idx])
			}
		}
		if len(values) > 0 {
			return schema.List(values...), true, nil
		}
		if !field.Required {
			return schema.Value{}, false, nil
		}
		if err := driver.Info(ctx, messages.Required); err != nil {
			return schema.Value{}, false, err
		}
	}
}

func askAgreement(ctx context.Context, driver Driver, field schema.FieldSchema, current schema.Value, messages Messages) (schema.Value, bool, error) {
	var intro []string
	for _, part := range []string{field.AgreementTitle, field.AgreementText} {
		if part = strings.TrimSpace(part); part != "" {
			intro = append(intro, part)
		}
	}
	if len(intro) > 0 {
		if err := driver.Info(ctx, strings.Join(intro, "\n")); err != nil {
			return schema.Value{}, false, err
		}
	}
	message := strings.TrimSpace(field.CheckboxLabel)
	if message == "" {
		message = title(field)
	}
	agreed, _ := current.Bool()
	for {
		ok, err := driver.Confirm(ctx, ConfirmConfig{Message: message, Default: agreed, Help: help(field)})
		if err != nil {
			return schema.Value{}, false, err
		}
		if ok || !field.Required {
			return schema.Bool(ok), true, nil
		}
		if err := driver.Info(ctx, messages.MustAgree); err != nil {
			return schema.Value{}, false, err
		}
	}
}
