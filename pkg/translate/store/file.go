package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/tsxcorp/go-regform/pkg/translate"
)

// File keeps overrides in a YAML or JSON document, chosen by extension
// (.json is JSON, anything else YAML). The layout is language -> source text
// -> replacement. A missing file loads as empty.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a store backed by path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file.
func (f *File) Path() string { return f.path }

func (f *File) isJSON() bool {
	return strings.EqualFold(filepath.Ext(f.path), ".json")
}

// Load implements translate.OverrideStore.
func (f *File) Load(ctx context.Context) (translate.Overrides, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return translate.Overrides{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", f.path, err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return translate.Overrides{}, nil
	}

	var overrides translate.Overrides
	if f.isJSON() {
		err = json.Unmarshal(raw, &overrides)
	} else {
		err = yaml.Unmarshal(raw, &overrides)
	}
	if err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", f.path, err)
	}
	return overrides.Normalize(), nil
}

// Save implements translate.OverrideStore. The document is written to a
// temporary file and renamed into place.
func (f *File) Save(ctx context.Context, overrides translate.Overrides) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var (
		payload []byte
		err     error
	)
	if f.isJSON() {
		payload, err = json.MarshalIndent(overrides, "", "  ")
	} else {
		payload, err = yaml.Marshal(overrides)
	}
	if err != nil {
		return fmt.Errorf("store: encode overrides: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".overrides-*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: write overrides: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: write overrides: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("store: replace %s: %w", f.path, err)
	}
	return nil
}
