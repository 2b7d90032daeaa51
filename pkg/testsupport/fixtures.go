package testsupport

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/tsxcorp/go-regform/pkg/schema"
)

//go:embed testdata/aw2025.json
var aw2025 []byte

// AW2025Raw returns the raw Automation World 2025 payload, wrapped in the
// registration API envelope.
func AW2025Raw() []byte {
	return append([]byte(nil), aw2025...)
}

// AW2025 decodes the Automation World 2025 fixture. Each call returns a fresh
// copy so tests can mutate it freely.
func AW2025(t testing.TB) *schema.EventSchema {
	t.Helper()

	doc, err := schema.NewDocument(schema.SourceFromFS("testdata/aw2025.json"), aw2025)
	if err != nil {
		t.Fatalf("testsupport: new document: %v", err)
	}
	event, err := doc.Decode()
	if err != nil {
		t.Fatalf("testsupport: decode fixture: %v", err)
	}
	return event
}

// ErrTranslate is returned by RecordingTranslator for texts listed in Fail.
var ErrTranslate = errors.New("testsupport: translation backend unavailable")

// RecordingTranslator is a deterministic remote translator double. Known
// texts come from Dictionary (keyed by "lang:text"); unknown texts are
// rendered as "[lang] text". Every call is counted.
type RecordingTranslator struct {
	Dictionary map[string]string
	Fail       map[string]bool
	FailAll    bool
	Delay      time.Duration

	mu    sync.Mutex
	calls map[string]int
}

// Translate implements translate.Translator.
func (r *RecordingTranslator) Translate(ctx context.Context, text, lang string) (string, error) {
	r.mu.Lock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[lang+":"+text]++
	r.mu.Unlock()

	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if r.FailAll || r.Fail[text] {
		return "", ErrTranslate
	}
	if out, ok := r.Dictionary[lang+":"+text]; ok {
		return out, nil
	}
	return fmt.Sprintf("[%s] %s", lang, text), nil
}

// Calls returns how many times text was sent for lang.
func (r *RecordingTranslator) Calls(text, lang string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[lang+":"+text]
}

// TotalCalls returns the number of remote calls made so far.
func (r *RecordingTranslator) TotalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.calls {
		total += n
	}
	return total
}

// CalledKeys lists the "lang:text" pairs seen, sorted.
func (r *RecordingTranslator) CalledKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for key := range r.calls {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Reset forgets recorded calls.
func (r *RecordingTranslator) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// Labels returns the field labels of event in input order, handy for diffs.
func Labels(event *schema.EventSchema) []string {
	if event == nil {
		return nil
	}
	out := make([]string, 0, len(event.Fields))
	for _, field := range event.Fields {
		out = append(out, strings.TrimSpace(field.Label))
	}
	return out
}
