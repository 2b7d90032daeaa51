package visibility

import (
	"github.com/tsxcorp/go-regform/pkg/condition"
)

// RuleEvaluator evaluates condition expressions, memoizing parses.
type RuleEvaluator struct {
	cache *condition.Cache
}

// NewRuleEvaluator returns an evaluator backed by cache. A nil cache gets a
// private one.
func NewRuleEvaluator(cache *condition.Cache) *RuleEvaluator {
	if cache == nil {
		cache = condition.NewCache()
	}
	return &RuleEvaluator{cache: cache}
}

// Eval implements Evaluator. Malformed rules yield (true, *condition.ParseError);
// rules naming unknown fields always return an error wrapping
// condition.ErrUnknownField, and the boolean is false unless another branch
// holds.
func (e *RuleEvaluator) Eval(_ string, rule string, ctx Context) (bool, error) {
	cond, err := e.cache.Parse(rule)
	if err != nil {
		return true, err
	}
	return condition.Evaluate(cond, ctx.Answers, ctx.Registry)
}

// Cache exposes the parse cache, mainly for diagnostics.
func (e *RuleEvaluator) Cache() *condition.Cache { return e.cache }
