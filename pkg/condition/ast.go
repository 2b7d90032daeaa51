package condition

import (
	"sort"
	"strconv"
	"strings"
)

// Node is one variant of the parsed predicate tree. The set is closed:
// Always, Equals, NotEquals, AnyOf, And, Or, Not.
type Node interface {
	String() string
	node()
}

// Always is the empty predicate; it holds for any answers.
type Always struct{}

// Equals holds when the field's answer matches Value. For multi-value
// answers it holds when any selected member matches.
type Equals struct {
	Field string
	Value string
}

// NotEquals is the negation of Equals for a known field.
type NotEquals struct {
	Field string
	Value string
}

// AnyOf holds when the field's answer (or any selected member) matches one
// of Values.
type AnyOf struct {
	Field  string
	Values []string
}

// And holds when every term holds.
type And struct {
	Terms []Node
}

// Or holds when at least one term holds.
type Or struct {
	Terms []Node
}

// Not inverts Inner.
type Not struct {
	Inner Node
}

func (Always) node()    {}
func (Equals) node()    {}
func (NotEquals) node() {}
func (AnyOf) node()     {}
func (And) node()       {}
func (Or) node()        {}
func (Not) node()       {}

func (Always) String() string { return "true" }

func (n Equals) String() string {
	return "{" + n.Field + "} = " + strconv.Quote(n.Value)
}

func (n NotEquals) String() string {
	return "{" + n.Field + "} != " + strconv.Quote(n.Value)
}

func (n AnyOf) String() string {
	quoted := make([]string, len(n.Values))
	for i, v := range n.Values {
		quoted[i] = strconv.Quote(v)
	}
	return "{" + n.Field + "} in (" + strings.Join(quoted, ", ") + ")"
}

func (n And) String() string { return joinTerms(n.Terms, " and ") }

func (n Or) String() string { return joinTerms(n.Terms, " or ") }

func (n Not) String() string { return "not (" + n.Inner.String() + ")" }

func joinTerms(terms []Node, sep string) string {
	parts := make([]string, len(terms))
	for i, term := range terms {
		parts[i] = "(" + term.String() + ")"
	}
	return strings.Join(parts, sep)
}

// Condition is an immutable parsed expression. The original source is kept
// verbatim for diagnostics.
type Condition struct {
	source string
	root   Node
}

// Source returns the text the condition was parsed from.
func (c Condition) Source() string { return c.source }

// Root returns the predicate tree. A zero Condition has an Always root.
func (c Condition) Root() Node {
	if c.root == nil {
		return Always{}
	}
	return c.root
}

// String renders the canonical form of the predicate.
func (c Condition) String() string { return c.Root().String() }

// IsAlways reports whether the condition places no constraint.
func (c Condition) IsAlways() bool {
	_, ok := c.Root().(Always)
	return ok
}

// References returns the trimmed field ids the condition reads, sorted and
// de-duplicated.
func (c Condition) References() []string {
	seen := make(map[string]struct{})
	collectRefs(c.Root(), seen)
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func collectRefs(n Node, seen map[string]struct{}) {
	switch v := n.(type) {
	case Equals:
		seen[strings.TrimSpace(v.Field)] = struct{}{}
	case NotEquals:
		seen[strings.TrimSpace(v.Field)] = struct{}{}
	case AnyOf:
		seen[strings.TrimSpace(v.Field)] = struct{}{}
	case And:
		for _, term := range v.Terms {
			collectRefs(term, seen)
		}
	case Or:
		for _, term := range v.Terms {
			collectRefs(term, seen)
		}
	case Not:
		collectRefs(v.Inner, seen)
	}
}
