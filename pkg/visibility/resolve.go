package visibility

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tsxcorp/go-regform/internal/logging"
	"github.com/tsxcorp/go-regform/pkg/condition"
	"github.com/tsxcorp/go-regform/pkg/registry"
	"github.com/tsxcorp/go-regform/pkg/schema"
)

// DiagnosticKind classifies a rule that could not be evaluated cleanly.
type DiagnosticKind string

const (
	// DiagnosticMalformed marks a rule that failed to parse; the target stays
	// visible.
	DiagnosticMalformed DiagnosticKind = "malformed_rule"
	// DiagnosticUnknownField marks a rule naming a field id the schema lacks;
	// the term cannot be satisfied.
	DiagnosticUnknownField DiagnosticKind = "unknown_field"
	// DiagnosticEvaluator marks any other error returned by a custom Evaluator.
	DiagnosticEvaluator DiagnosticKind = "evaluator_error"
)

// Diagnostic records a configuration problem found while resolving.
type Diagnostic struct {
	FieldID string         `json:"field_id,omitempty"`
	Section string         `json:"section,omitempty"`
	Rule    string         `json:"rule"`
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
}

// Decisions is the visibility outcome for one registry snapshot and answer
// set.
type Decisions struct {
	Fields      map[string]bool `json:"fields"`
	Sections    map[string]bool `json:"sections"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`

	order []string
}

// Visible reports whether the field id was resolved as visible. Ids outside
// the snapshot are not visible.
func (d Decisions) Visible(id string) bool {
	return d.Fields[strings.TrimSpace(id)]
}

// SectionVisible reports whether the named section is shown.
func (d Decisions) SectionVisible(name string) bool {
	visible, ok := d.Sections[strings.TrimSpace(name)]
	return !ok || visible
}

// VisibleFields lists visible field ids in display order.
func (d Decisions) VisibleFields() []string {
	out := make([]string, 0, len(d.order))
	for _, id := range d.order {
		if d.Fields[id] {
			out = append(out, id)
		}
	}
	return out
}

// HiddenFields lists hidden field ids in display order.
func (d Decisions) HiddenFields() []string {
	var out []string
	for _, id := range d.order {
		if !d.Fields[id] {
			out = append(out, id)
		}
	}
	return out
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithEvaluator swaps the rule evaluator.
func WithEvaluator(evaluator Evaluator) Option {
	return func(r *Resolver) {
		if evaluator != nil {
			r.evaluator = evaluator
		}
	}
}

// WithCache shares a parse cache with other resolvers.
func WithCache(cache *condition.Cache) Option {
	return func(r *Resolver) {
		r.evaluator = NewRuleEvaluator(cache)
	}
}

// WithLogger routes diagnostics to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithCascade toggles cascading hide. When on (the default), answers of
// hidden fields are treated as unanswered while evaluating the remaining
// rules, so an answer left behind in a hidden branch never reveals its
// dependents.
func WithCascade(enabled bool) Option {
	return func(r *Resolver) {
		r.cascade = enabled
	}
}

// WithExtras passes caller context through to custom evaluators.
func WithExtras(extras map[string]any) Option {
	return func(r *Resolver) {
		r.extras = extras
	}
}

// Resolver evaluates field and section rules for a registry snapshot.
type Resolver struct {
	evaluator Evaluator
	logger    logrus.FieldLogger
	cascade   bool
	extras    map[string]any
}

// NewResolver builds a Resolver with a private parse cache, cascading hide
// and the shared logger unless overridden.
func NewResolver(options ...Option) *Resolver {
	r := &Resolver{cascade: true}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.evaluator == nil {
		r.evaluator = NewRuleEvaluator(nil)
	}
	r.logger = logging.Or(r.logger)
	return r
}

// Resolve is a convenience wrapper around NewResolver(options...).Resolve.
func Resolve(reg *registry.Registry, answers schema.Answers, options ...Option) Decisions {
	return NewResolver(options...).Resolve(reg, answers)
}

// Resolve decides visibility for every field and section in reg.
func (r *Resolver) Resolve(reg *registry.Registry, answers schema.Answers) Decisions {
	decisions := r.pass(reg, answers)
	if r.cascade {
		// At most one extra pass per field; oscillating rules keep the last.
		for i := 0; i < reg.Len(); i++ {
			masked := mask(answers, decisions)
			if len(masked) == len(answers) {
				break
			}
			next := r.pass(reg, masked)
			if sameFields(next, decisions) {
				decisions = next
				break
			}
			decisions = next
		}
	}
	r.report(decisions.Diagnostics)
	return decisions
}

func (r *Resolver) pass(reg *registry.Registry, answers schema.Answers) Decisions {
	decisions := Decisions{
		Fields:   make(map[string]bool, reg.Len()),
		Sections: make(map[string]bool),
		order:    reg.IDs(),
	}
	ctx := Context{Answers: answers, Registry: reg, Extras: r.extras}

	for _, section := range reg.Sections() {
		shown := true
		if strings.TrimSpace(section.Condition) != "" {
			ok, err := r.evaluator.Eval("section:"+section.Name, section.Condition, ctx)
			shown = ok
			if err != nil {
				decisions.Diagnostics = append(decisions.Diagnostics, diagnose("", section.Name, section.Condition, err))
			}
		}
		if section.Name != "" {
			decisions.Sections[section.Name] = shown
		}

		for _, id := range section.FieldIDs {
			field, _ := reg.Field(id)
			visible := shown
			// Rules in hidden sections still run so their diagnostics do not
			// depend on the answers.
			if strings.TrimSpace(field.FieldCondition) != "" {
				ok, err := r.evaluator.Eval(id, field.FieldCondition, ctx)
				visible = shown && ok
				if err != nil {
					decisions.Diagnostics = append(decisions.Diagnostics, diagnose(id, "", field.FieldCondition, err))
				}
			}
			decisions.Fields[id] = visible
		}
	}
	return decisions
}

func (r *Resolver) report(diagnostics []Diagnostic) {
	for _, diag := range diagnostics {
		entry := r.logger.WithFields(logrus.Fields{
			"rule": diag.Rule,
			"kind": diag.Kind,
		})
		if diag.FieldID != "" {
			entry = entry.WithField("field_id", diag.FieldID)
		}
		if diag.Section != "" {
			entry = entry.WithField("section", diag.Section)
		}
		switch diag.Kind {
		case DiagnosticMalformed:
			entry.Warnf("visibility: malformed rule, showing: %v", diag.Err)
		case DiagnosticUnknownField:
			entry.Warnf("visibility: rule references unknown field, treating its terms as false: %v", diag.Err)
		default:
			entry.Warnf("visibility: evaluator error: %v", diag.Err)
		}
	}
}

func diagnose(fieldID, section, rule string, err error) Diagnostic {
	kind := DiagnosticEvaluator
	switch {
	case errors.Is(err, condition.ErrSyntax):
		kind = DiagnosticMalformed
	case errors.Is(err, condition.ErrUnknownField):
		kind = DiagnosticUnknownField
	}
	return Diagnostic{
		FieldID: fieldID,
		Section: section,
		Rule:    rule,
		Kind:    kind,
		Message: err.Error(),
		Err:     err,
	}
}

func mask(answers schema.Answers, decisions Decisions) schema.Answers {
	out := make(schema.Answers, len(answers))
	for id, value := range answers {
		if visible, known := decisions.Fields[id]; known && !visible {
			continue
		}
		out[id] = value
	}
	return out
}

func sameFields(a, b Decisions) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for id, visible := range a.Fields {
		if b.Fields[id] != visible {
			return false
		}
	}
	return true
}

// Prune returns a copy of answers without the fields decisions hides. Answers
// for ids the decisions do not know are kept.
func Prune(answers schema.Answers, decisions Decisions) schema.Answers {
	return mask(answers, decisions)
}
