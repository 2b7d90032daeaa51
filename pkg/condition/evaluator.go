package condition

import (
	"errors"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/tsxcorp/go-regform/pkg/registry"
	"github.com/tsxcorp/go-regform/pkg/schema"
	"github.com/tsxcorp/go-regform/pkg/textnorm"
)

// Evaluate decides whether c holds for answers against the registry snapshot.
//
// The boolean is authoritative. A term that references a field missing from
// reg cannot be satisfied and evaluates to false (Not and NotEquals
// included), while the rest of the tree is still evaluated. Every such
// reference is reported in the returned error, which wraps ErrUnknownField,
// whatever the answers are and whichever branch decided the result.
//
// Evaluate is a pure function of its inputs.
func Evaluate(c Condition, answers schema.Answers, reg *registry.Registry) (bool, error) {
	ev := evaluation{answers: answers, reg: reg}
	ok, _ := ev.eval(c.Root())
	return ok, unknownRefs(c, reg)
}

// EvaluateLabels evaluates against legacy label-keyed answers by binding them
// to field ids through the registry first.
func EvaluateLabels(c Condition, labels schema.LabelAnswers, reg *registry.Registry) (bool, error) {
	answers, _ := reg.Bind(labels)
	return Evaluate(c, answers, reg)
}

// Check reports every reference in c that reg cannot resolve.
func Check(c Condition, reg *registry.Registry) error {
	var result *multierror.Error
	for _, id := range c.References() {
		if _, ok := reg.Field(id); !ok {
			result = multierror.Append(result, &UnknownFieldError{FieldID: id})
		}
	}
	return result.ErrorOrNil()
}

// unknownRefs is Check with a single unknown reference returned bare.
func unknownRefs(c Condition, reg *registry.Registry) error {
	err := Check(c, reg)
	var merr *multierror.Error
	if errors.As(err, &merr) && len(merr.Errors) == 1 {
		return merr.Errors[0]
	}
	return err
}

type evaluation struct {
	answers schema.Answers
	reg     *registry.Registry
}

// eval returns the result and whether the subtree touched an unknown field.
func (e *evaluation) eval(n Node) (bool, bool) {
	switch v := n.(type) {
	case nil, Always:
		return true, false
	case Equals:
		view, ok := e.answer(v.Field)
		if !ok {
			return false, true
		}
		return view.matches(v.Value), false
	case NotEquals:
		view, ok := e.answer(v.Field)
		if !ok {
			return false, true
		}
		return !view.matches(v.Value), false
	case AnyOf:
		view, ok := e.answer(v.Field)
		if !ok {
			return false, true
		}
		return view.matches(v.Values...), false
	case Not:
		ok, unknown := e.eval(v.Inner)
		if unknown {
			return false, true
		}
		return !ok, false
	case And:
		for _, term := range v.Terms {
			ok, unknown := e.eval(term)
			if unknown {
				return false, true
			}
			if !ok {
				return false, false
			}
		}
		return true, false
	case Or:
		anyUnknown := false
		for _, term := range v.Terms {
			ok, unknown := e.eval(term)
			if ok {
				return true, false
			}
			anyUnknown = anyUnknown || unknown
		}
		return false, anyUnknown
	default:
		return false, false
	}
}

// answer resolves the field through the registry and returns its comparison
// view. An unanswered field has a single empty member so that `= ""` tests
// for blank answers.
func (e *evaluation) answer(rawID string) (answerView, bool) {
	id := strings.TrimSpace(rawID)
	field, ok := e.reg.Field(id)
	if !ok {
		return answerView{}, false
	}

	value, answered := e.answers[id]
	if !answered || value.IsZero() {
		return answerView{members: []string{""}}, true
	}
	if flag, isBool := value.Bool(); isBool {
		return answerView{boolean: true, flag: flag}, true
	}
	members := value.Strings()
	if !field.Type.MultiValue() && value.Kind() == schema.KindText {
		members = members[:1]
	}
	return answerView{members: members}, true
}

type answerView struct {
	members []string
	boolean bool
	flag    bool
}

var booleanWords = map[string]bool{
	"true": true, "yes": true, "1": true, "on": true, "checked": true, "có": true,
	"false": false, "no": false, "0": false, "off": false, "unchecked": false, "không": false,
}

// matches reports whether any member equals any expected value under
// textnorm.Key. Boolean answers compare against boolean spellings.
func (a answerView) matches(expected ...string) bool {
	for _, want := range expected {
		key := textnorm.Key(want)
		if a.boolean {
			if flag, ok := booleanWords[key]; ok && flag == a.flag {
				return true
			}
			continue
		}
		for _, member := range a.members {
			if textnorm.Key(member) == key {
				return true
			}
		}
	}
	return false
}
