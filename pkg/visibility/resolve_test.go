package visibility_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/tsxcorp/go-regform/pkg/condition"
	"github.com/tsxcorp/go-regform/pkg/registry"
	"github.com/tsxcorp/go-regform/pkg/schema"
	"github.com/tsxcorp/go-regform/pkg/testsupport"
	"github.com/tsxcorp/go-regform/pkg/visibility"
)

func quietLogger() (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return logger, buf
}

func TestResolve_AW2025(t *testing.T) {
	t.Parallel()

	reg := registry.Build(testsupport.AW2025(t))
	logger, _ := quietLogger()

	answers := schema.Answers{
		"aw2025_purpose":   schema.Text(" tham quan thông thường"),
		"aw2025_interests": schema.List("Dịch vụ"),
	}
	got := visibility.Resolve(reg, answers, visibility.WithLogger(logger))

	want := []string{"full_name", "email", "aw2025_purpose", "aw2025_group_size", "aw2025_interests", "company_name", "terms"}
	if diff := cmp.Diff(want, got.VisibleFields()); diff != "" {
		t.Fatalf("visible fields mismatch (-want +got):\n%s", diff)
	}
	if got.Visible("aw2025_purpose_other") {
		t.Fatalf("expected the 'other' detail field to be hidden")
	}
	if !got.SectionVisible("Kết nối giao thương") {
		t.Fatalf("expected business matching section to be visible")
	}
	if len(got.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", got.Diagnostics)
	}

	answers["aw2025_interests"] = schema.List("Nguyên liệu")
	answers["aw2025_purpose"] = schema.Text("Khác")
	got = visibility.Resolve(reg, answers, visibility.WithLogger(logger))
	if got.SectionVisible("Kết nối giao thương") || got.Visible("company_name") {
		t.Fatalf("expected hidden section to hide its fields")
	}
	if !got.Visible("aw2025_purpose_other") || got.Visible("aw2025_group_size") {
		t.Fatalf("unexpected purpose branch: %v", got.Fields)
	}
}

func TestResolve_MalformedRuleFailsOpen(t *testing.T) {
	t.Parallel()

	event := testsupport.AW2025(t)
	for i := range event.Fields {
		if event.Fields[i].FieldID == "aw2025_group_size" {
			event.Fields[i].FieldCondition = `show if {aw2025_purpose = "Tham quan thông thường"`
		}
	}
	reg := registry.Build(event)
	logger, buf := quietLogger()

	got := visibility.Resolve(reg, schema.Answers{"aw2025_purpose": schema.Text("Khác")}, visibility.WithLogger(logger))
	if !got.Visible("aw2025_group_size") {
		t.Fatalf("expected malformed rule to leave the field visible")
	}
	if len(got.Diagnostics) != 1 || got.Diagnostics[0].Kind != visibility.DiagnosticMalformed {
		t.Fatalf("expected one malformed diagnostic, got %+v", got.Diagnostics)
	}
	if !errors.Is(got.Diagnostics[0].Err, condition.ErrSyntax) {
		t.Fatalf("expected ErrSyntax, got %v", got.Diagnostics[0].Err)
	}
	if !strings.Contains(buf.String(), "malformed rule") {
		t.Fatalf("expected a warning in the log, got %q", buf.String())
	}
}

func TestResolve_UnknownFieldHides(t *testing.T) {
	t.Parallel()

	event := testsupport.AW2025(t)
	for i := range event.Fields {
		if event.Fields[i].FieldID == "email" {
			event.Fields[i].FieldCondition = `show if {retired_field} = "yes"`
		}
	}
	reg := registry.Build(event)
	logger, buf := quietLogger()

	got := visibility.Resolve(reg, schema.Answers{}, visibility.WithLogger(logger))
	if got.Visible("email") {
		t.Fatalf("expected rule with unknown reference to hide the field")
	}
	if len(got.Diagnostics) != 1 || got.Diagnostics[0].Kind != visibility.DiagnosticUnknownField {
		t.Fatalf("expected one unknown-field diagnostic, got %+v", got.Diagnostics)
	}
	if got.Diagnostics[0].FieldID != "email" {
		t.Fatalf("diagnostic attached to %q", got.Diagnostics[0].FieldID)
	}
	if !strings.Contains(buf.String(), "unknown field") {
		t.Fatalf("expected a warning in the log, got %q", buf.String())
	}
}

func TestResolve_UnknownReferenceReportedForAnyAnswers(t *testing.T) {
	t.Parallel()

	event := &schema.EventSchema{
		ID:       "typo",
		Language: "en",
		Fields: []schema.FieldSchema{
			{FieldID: "kind", Label: "Kind", Type: schema.FieldTypeSelect, Options: []string{"person", "company"}, Sort: 1},
			{FieldID: "company", Label: "Company", FieldCondition: `show if {kind} = "company" and {knd} = "x"`, Sort: 2},
			{FieldID: "vat", Label: "VAT", SectionName: "Billing", SectionCondition: `show if {kind} = "company"`, FieldCondition: `show if {vat_mode} = "eu"`, Sort: 3},
		},
	}
	reg := registry.Build(event)
	logger, _ := quietLogger()

	for _, kind := range []string{"person", "company"} {
		got := visibility.Resolve(reg, schema.Answers{"kind": schema.Text(kind)}, visibility.WithLogger(logger))
		if got.Visible("company") || got.Visible("vat") {
			t.Fatalf("kind=%s: expected rules with unknown references to hide, got %v", kind, got.Fields)
		}
		var ids []string
		for _, diag := range got.Diagnostics {
			if diag.Kind != visibility.DiagnosticUnknownField {
				t.Fatalf("kind=%s: unexpected diagnostic %+v", kind, diag)
			}
			ids = append(ids, diag.FieldID)
		}
		if diff := cmp.Diff([]string{"company", "vat"}, ids); diff != "" {
			t.Fatalf("kind=%s: diagnostics mismatch (-want +got):\n%s", kind, diff)
		}
	}
}

func chainSchema() *schema.EventSchema {
	return &schema.EventSchema{
		ID:       "chain",
		Language: "en",
		Fields: []schema.FieldSchema{
			{FieldID: "kind", Label: "Kind", Type: schema.FieldTypeSelect, Options: []string{"person", "company"}, Sort: 1},
			{FieldID: "company", Label: "Company", Type: schema.FieldTypeText, FieldCondition: `show if {kind} = "company"`, Sort: 2},
			{FieldID: "vat", Label: "VAT", Type: schema.FieldTypeText, FieldCondition: `show if {company} != ""`, Sort: 3},
		},
	}
}

func TestResolve_Cascade(t *testing.T) {
	t.Parallel()

	reg := registry.Build(chainSchema())
	logger, _ := quietLogger()
	answers := schema.Answers{
		"kind":    schema.Text("person"),
		"company": schema.Text("ACME"),
	}

	cascaded := visibility.Resolve(reg, answers, visibility.WithLogger(logger))
	if cascaded.Visible("company") || cascaded.Visible("vat") {
		t.Fatalf("expected stale company answer not to reveal vat: %v", cascaded.Fields)
	}

	flat := visibility.Resolve(reg, answers, visibility.WithLogger(logger), visibility.WithCascade(false))
	if flat.Visible("company") || !flat.Visible("vat") {
		t.Fatalf("expected vat visible without cascade: %v", flat.Fields)
	}

	pruned := visibility.Prune(answers, cascaded)
	if _, ok := pruned["company"]; ok {
		t.Fatalf("expected hidden answer to be pruned")
	}
	if _, ok := answers["company"]; !ok {
		t.Fatalf("prune mutated its input")
	}
	if diff := cmp.Diff([]string{"company", "vat"}, cascaded.HiddenFields()); diff != "" {
		t.Fatalf("hidden fields mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_CustomEvaluator(t *testing.T) {
	t.Parallel()

	reg := registry.Build(chainSchema())
	logger, _ := quietLogger()

	var paths []string
	evaluator := visibility.EvaluatorFunc(func(path, rule string, ctx visibility.Context) (bool, error) {
		paths = append(paths, path)
		return ctx.Extras["role"] == "staff", nil
	})

	got := visibility.Resolve(reg, nil,
		visibility.WithLogger(logger),
		visibility.WithEvaluator(evaluator),
		visibility.WithCascade(false),
		visibility.WithExtras(map[string]any{"role": "staff"}),
	)
	if diff := cmp.Diff([]string{"kind", "company", "vat"}, got.VisibleFields()); diff != "" {
		t.Fatalf("visible fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"company", "vat"}, paths); diff != "" {
		t.Fatalf("evaluated paths mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_SharedCache(t *testing.T) {
	t.Parallel()

	cache := condition.NewCache()
	reg := registry.Build(testsupport.AW2025(t))
	logger, _ := quietLogger()

	for i := 0; i < 3; i++ {
		visibility.Resolve(reg, schema.Answers{}, visibility.WithCache(cache), visibility.WithLogger(logger))
	}
	if cache.Len() != 3 {
		t.Fatalf("expected three distinct rules cached, got %d", cache.Len())
	}
}
