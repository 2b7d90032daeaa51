package prompt

import (
	"context"
	"testing"

	"github.com/tsxcorp/go-regform/internal/logging"
	"github.com/tsxcorp/go-regform/pkg/testsupport"
	"github.com/tsxcorp/go-regform/pkg/translate"
	"github.com/tsxcorp/go-regform/pkg/translate/store"
)

func TestReview_SavesChoices(t *testing.T) {
	ctx := context.Background()
	event := testsupport.AW2025(t)
	overrides := store.NewMemory(nil)
	svc := translate.New(
		translate.WithTranslator(&testsupport.RecordingTranslator{}),
		translate.WithStore(overrides),
		translate.WithLogger(logging.Discard()),
	)

	pending := translate.PendingStrings(event, "en")
	if len(pending) < 3 {
		t.Fatalf("expected several pending strings, got %v", pending)
	}

	// Each string offers [machine translation, type own, skip]. Accept the
	// first, type the second, skip everything else.
	selects := []int{0, 1}
	for range pending[2:] {
		selects = append(selects, 2)
	}
	driver := &stubDriver{selectIdx: selects, inputs: []string{"Typed by operator"}}

	result, err := Review(ctx, svc, event, "en", driver)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	want := ReviewResult{Reviewed: len(pending), Saved: 2, Skipped: len(pending) - 2}
	if result != want {
		t.Fatalf("result = %+v, want %+v", result, want)
	}

	saved, err := svc.CustomTranslations(ctx)
	if err != nil {
		t.Fatalf("custom translations: %v", err)
	}
	if got, _ := saved.Get(pending[0], "en"); got != "[en] "+pending[0] {
		t.Fatalf("first override = %q", got)
	}
	if got, _ := saved.Get(pending[1], "en"); got != "Typed by operator" {
		t.Fatalf("second override = %q", got)
	}
	if overrides.Saves() != 2 {
		t.Fatalf("expected 2 store saves, got %d", overrides.Saves())
	}
}

func TestReviewOptions(t *testing.T) {
	got := reviewOptions([]string{"Other", " Other ", ""}, "Other")
	if len(got) != 1 || got[0] != "Other" {
		t.Fatalf("reviewOptions = %v", got)
	}
}
