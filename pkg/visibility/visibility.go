// Package visibility decides which fields and sections of a registration form
// are shown for the current answers.
package visibility

import (
	"github.com/tsxcorp/go-regform/pkg/registry"
	"github.com/tsxcorp/go-regform/pkg/schema"
)

// Evaluator determines whether a field should be visible based on a rule
// string and the current answers.
//
// A non-nil error is diagnostic; the boolean is still authoritative. Parse
// failures come back as (true, err) so malformed rules fail open.
type Evaluator interface {
	Eval(fieldPath, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Answers are keyed by field id and
// resolved through Registry. Extras allows callers to inject arbitrary context
// such as operator roles or feature flags for custom evaluators.
type Context struct {
	Answers  schema.Answers
	Registry *registry.Registry
	Extras   map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldPath, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldPath, rule string, ctx Context) (bool, error) {
	return fn(fieldPath, rule, ctx)
}
