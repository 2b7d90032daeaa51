package regform

import (
	"context"
	"embed"
	"io/fs"
	"strings"

	"github.com/tsxcorp/go-regform/internal/loader"
	"github.com/tsxcorp/go-regform/pkg/schema"
)

//go:embed samples/*.json
var embeddedSamples embed.FS

// SamplesFS exposes the bundled sample event schemas so demos and local runs
// work without a registration backend.
func SamplesFS() fs.FS {
	sub, err := fs.Sub(embeddedSamples, "samples")
	if err != nil {
		return embeddedSamples
	}
	return sub
}

// LoadSample decodes a bundled sample by name, with or without the .json
// suffix.
func LoadSample(ctx context.Context, name string) (*EventSchema, error) {
	name = strings.TrimSpace(name)
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	l := NewLoader(schema.WithFileSystem(SamplesFS()))
	return loader.LoadEvent(ctx, l, schema.SourceFromFS(name))
}
