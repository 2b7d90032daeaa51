// Package validation checks a submission against the fields that are visible
// for it. Hidden fields are never required.
package validation

import (
	"net/mail"
	"strconv"
	"strings"

	"github.com/tsxcorp/go-regform/pkg/registry"
	"github.com/tsxcorp/go-regform/pkg/schema"
	"github.com/tsxcorp/go-regform/pkg/textnorm"
	"github.com/tsxcorp/go-regform/pkg/visibility"
)

// IssueCode classifies a failed check.
type IssueCode string

const (
	IssueRequired      IssueCode = "required"
	IssueInvalidEmail  IssueCode = "invalid_email"
	IssueInvalidNumber IssueCode = "invalid_number"
	IssueUnknownOption IssueCode = "unknown_option"
	IssueNotAgreed     IssueCode = "not_agreed"
)

// Issue is one validation failure.
type Issue struct {
	Field   string    `json:"field"`
	Label   string    `json:"label,omitempty"`
	Code    IssueCode `json:"code"`
	Message string    `json:"message"`
}

// Result captures validation outcomes.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

// ByField groups issue messages by field id.
func (r Result) ByField() map[string][]string {
	if len(r.Issues) == 0 {
		return nil
	}
	out := make(map[string][]string)
	for _, issue := range r.Issues {
		out[issue.Field] = append(out[issue.Field], issue.Message)
	}
	return out
}

// Validate checks answers of the fields decisions marks visible, in display
// order. Option answers are compared with the same normalization conditions
// use.
func Validate(reg *registry.Registry, answers schema.Answers, decisions visibility.Decisions) Result {
	var issues []Issue
	for _, field := range reg.Fields() {
		if !decisions.Visible(field.FieldID) {
			continue
		}
		issues = append(issues, checkField(field, answers[field.FieldID])...)
	}
	return Result{Valid: len(issues) == 0, Issues: issues}
}

func checkField(field schema.FieldSchema, value schema.Value) []Issue {
	issue := func(code IssueCode, message string) []Issue {
		return []Issue{{Field: field.FieldID, Label: field.Label, Code: code, Message: message}}
	}

	if field.Type == schema.FieldTypeAgreement {
		agreed, isBool := value.Bool()
		if !isBool {
			agreed = textnorm.Key(value.String()) == "true"
		}
		if field.Required && !agreed {
			return issue(IssueNotAgreed, "agreement must be accepted")
		}
		return nil
	}
	if value.IsZero() {
		if field.Required {
			return issue(IssueRequired, "this field is required")
		}
		return nil
	}

	switch {
	case field.Type.HasOptions() && len(field.Options) > 0:
		for _, member := range value.Strings() {
			if !hasOption(field.Options, member) {
				return issue(IssueUnknownOption, "unknown option "+strconv.Quote(member))
			}
		}
	case field.Type == schema.FieldTypeEmail:
		if _, err := mail.ParseAddress(strings.TrimSpace(value.String())); err != nil {
			return issue(IssueInvalidEmail, "invalid email address")
		}
	case field.Type == schema.FieldTypeNumber:
		if _, err := strconv.ParseFloat(strings.TrimSpace(value.String()), 64); err != nil {
			return issue(IssueInvalidNumber, "not a number")
		}
	}
	return nil
}

func hasOption(options []string, value string) bool {
	key := textnorm.Key(value)
	for _, option := range options {
		if textnorm.Key(option) == key {
			return true
		}
	}
	return false
}
