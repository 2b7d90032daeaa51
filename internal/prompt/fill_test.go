package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tsxcorp/go-regform/internal/logging"
	"github.com/tsxcorp/go-regform/pkg/schema"
	"github.com/tsxcorp/go-regform/pkg/session"
	"github.com/tsxcorp/go-regform/pkg/testsupport"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	textAreas    []string
	infoMessages []string
	asked        []string
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
	textPos      int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.asked = append(s.asked, cfg.Message)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.asked = append(s.asked, cfg.Message)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.asked = append(s.asked, cfg.Message)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, cfg SelectConfig) ([]int, error) {
	s.asked = append(s.asked, cfg.Message)
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	s.asked = append(s.asked, cfg.Message)
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func newSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New(testsupport.AW2025(t), session.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func TestFill_RevealsDependentFields(t *testing.T) {
	s := newSession(t)
	driver := &stubDriver{
		inputs:    []string{"An", "an@example.com", "Networking", "ACME"},
		selectIdx: []int{2},
		multiIdx:  [][]int{{0}},
		confirm:   []bool{true},
	}

	if err := Fill(context.Background(), s, driver, DefaultMessages()); err != nil {
		t.Fatalf("fill: %v", err)
	}

	want := schema.Answers{
		"full_name":            schema.Text("An"),
		"email":                schema.Text("an@example.com"),
		"aw2025_purpose":       schema.Text("Khác"),
		"aw2025_purpose_other": schema.Text("Networking"),
		"aw2025_interests":     schema.List("Máy móc"),
		"company_name":         schema.Text("ACME"),
		"terms":                schema.Bool(true),
	}
	if diff := cmp.Diff(want, s.Submission(), cmp.Comparer(schema.Value.Equal)); diff != "" {
		t.Fatalf("submission mismatch (-want +got):\n%s", diff)
	}
	for _, label := range driver.asked {
		if label == "Số người trong đoàn" {
			t.Fatalf("hidden field was asked")
		}
	}
}

func TestFill_SkipsHiddenSectionAndReasksAgreement(t *testing.T) {
	s := newSession(t)
	driver := &stubDriver{
		inputs:    []string{"An", "an@example.com", "5"},
		selectIdx: []int{0},
		multiIdx:  [][]int{{}},
		confirm:   []bool{false, true},
	}

	if err := Fill(context.Background(), s, driver, DefaultMessages()); err != nil {
		t.Fatalf("fill: %v", err)
	}

	got := s.Submission()
	if _, ok := got["company_name"]; ok {
		t.Fatalf("company_name should not be asked while its section is hidden")
	}
	if _, ok := got["aw2025_interests"]; ok {
		t.Fatalf("empty optional multi-select should stay unanswered")
	}
	if !got["aw2025_group_size"].Equal(schema.Text("5")) {
		t.Fatalf("group size = %v", got["aw2025_group_size"])
	}
	if driver.confirmPos != 2 {
		t.Fatalf("expected agreement to be asked twice, got %d", driver.confirmPos)
	}
	if !containsString(driver.infoMessages, DefaultMessages().MustAgree) {
		t.Fatalf("expected must-agree message, got %v", driver.infoMessages)
	}
}

func TestFill_PropagatesAbort(t *testing.T) {
	s := newSession(t)
	driver := &stubDriver{}

	err := Fill(context.Background(), s, driver, DefaultMessages())
	if err == nil {
		t.Fatalf("expected error when the driver runs out of input")
	}
}

func TestValidatorFor(t *testing.T) {
	messages := DefaultMessages()
	email := validatorFor(schema.FieldSchema{Type: schema.FieldTypeEmail, Required: true}, messages)
	if err := email(""); err == nil || err.Error() != messages.Required {
		t.Fatalf("expected required error, got %v", err)
	}
	if err := email("not-an-email"); err == nil || err.Error() != messages.InvalidEmail {
		t.Fatalf("expected email error, got %v", err)
	}
	if err := email("an@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	number := validatorFor(schema.FieldSchema{Type: schema.FieldTypeNumber}, messages)
	if err := number(""); err != nil {
		t.Fatalf("optional number should accept blank: %v", err)
	}
	if err := number("two"); err == nil {
		t.Fatalf("expected number error")
	}
}

func containsString(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}

func TestFill_SwitchesLanguageMidway(t *testing.T) {
	s := newSession(t)
	driver := &stubDriver{
		inputs:    []string{"An", ":lang en", "an@example.com", "Networking"},
		selectIdx: []int{2},
		multiIdx:  [][]int{{}},
		confirm:   []bool{true},
	}

	if err := Fill(context.Background(), s, driver, DefaultMessages()); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if got := s.Language(); got != "en" {
		t.Fatalf("language = %q, want en", got)
	}

	want := []string{"Họ và tên *", "Email *", "Email *", "Purpose of visit", "Mục đích khác", "Areas of interest", "Tôi đồng ý"}
	if diff := cmp.Diff(want, driver.asked); diff != "" {
		t.Fatalf("prompts mismatch (-want +got):\n%s", diff)
	}
	got := s.Submission()
	if !got["full_name"].Equal(schema.Text("An")) || !got["aw2025_purpose"].Equal(schema.Text("Khác")) {
		t.Fatalf("answers did not survive the switch: %v", got)
	}
	if !containsString(driver.infoMessages, "language: en") {
		t.Fatalf("expected language notice, got %v", driver.infoMessages)
	}
}

func TestFill_FailedSwitchReasksField(t *testing.T) {
	s := newSession(t)
	before := s.Language()
	driver := &stubDriver{
		inputs:    []string{"An", ":lang ", "an@example.com", "Networking"},
		selectIdx: []int{2},
		multiIdx:  [][]int{{}},
		confirm:   []bool{true},
	}

	if err := Fill(context.Background(), s, driver, DefaultMessages()); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if got := s.Language(); got != before {
		t.Fatalf("language = %q, want %q", got, before)
	}
	if driver.asked[1] != driver.asked[2] {
		t.Fatalf("expected the interrupted field to be asked again, got %v", driver.asked)
	}
	if !s.Submission()["email"].Equal(schema.Text("an@example.com")) {
		t.Fatalf("expected email answer after the failed switch, got %v", s.Submission())
	}
	failed := false
	for _, msg := range driver.infoMessages {
		if strings.HasPrefix(msg, DefaultMessages().SwitchFailed) {
			failed = true
		}
	}
	if !failed {
		t.Fatalf("expected a switch failure notice, got %v", driver.infoMessages)
	}
}
