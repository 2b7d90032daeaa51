package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tsxcorp/go-regform/pkg/condition"
	"github.com/tsxcorp/go-regform/pkg/registry"
	"github.com/tsxcorp/go-regform/pkg/schema"
)

type problem struct {
	target string
	rule   string
	err    error
}

func (p problem) String() string {
	return fmt.Sprintf("%s: %v (rule %q)", p.target, p.err, p.rule)
}

// checkEvent parses every field and section rule and verifies that the ids
// they reference exist. Duplicate field ids are reported as well.
func checkEvent(event *schema.EventSchema) []problem {
	reg := registry.Build(event)
	var out []problem
	for _, id := range reg.Duplicates() {
		out = append(out, problem{target: "field " + id, err: errors.New("duplicate field id")})
	}

	check := func(target, rule string) {
		if strings.TrimSpace(rule) == "" {
			return
		}
		c, err := condition.Parse(rule)
		if err == nil {
			err = condition.Check(c, reg)
		}
		if err != nil {
			out = append(out, problem{target: target, rule: rule, err: err})
		}
	}
	for _, section := range reg.Sections() {
		check("section "+section.Name, section.Condition)
	}
	for _, field := range reg.Fields() {
		check("field "+field.FieldID, field.FieldCondition)
	}
	return out
}

func runCheck(ctx context.Context, args []string, w io.Writer) (int, error) {
	a, _, err := setup(ctx, "check", args, nil)
	if err != nil {
		return 0, err
	}
	defer a.Close()

	event, err := a.LoadEvent(ctx, "")
	if err != nil {
		return 0, err
	}
	problems := checkEvent(event)
	for _, p := range problems {
		fmt.Fprintln(w, p.String())
	}
	if len(problems) == 0 {
		fmt.Fprintf(w, "%s: %d fields, no problems\n", event.ID, len(event.Fields))
	}
	return len(problems), nil
}
