package schema

import (
	"fmt"
	"net/url"
	"path/filepath"
)

// Source identifies where an event schema payload came from so loaders can
// read files, fs.FS entries, or the registration API without leaking
// implementation details.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

type fileSource struct {
	path string
}

func (s fileSource) Location() string { return s.path }

func (s fileSource) Kind() SourceKind { return SourceKindFile }

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return fileSource{path: filepath.Clean(path)}
}

type fsSource struct {
	name string
}

func (s fsSource) Location() string { return s.name }

func (s fsSource) Kind() SourceKind { return SourceKindFS }

// SourceFromFS returns a Source identifying a resource inside an fs.FS.
func SourceFromFS(name string) Source {
	return fsSource{name: name}
}

type urlSource struct {
	raw string
}

func (s urlSource) Location() string { return s.raw }

func (s urlSource) Kind() SourceKind { return SourceKindURL }

// ParseURLSource validates raw and returns a URL Source.
func ParseURLSource(raw string) (Source, error) {
	if raw == "" {
		return nil, fmt.Errorf("schema: empty URL source")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return nil, fmt.Errorf("schema: invalid URL %q: %w", raw, err)
	}
	return urlSource{raw: raw}, nil
}

// SourceFromURL is ParseURLSource for configuration constants. It panics on
// invalid input to surface mistakes early.
func SourceFromURL(raw string) Source {
	src, err := ParseURLSource(raw)
	if err != nil {
		panic(err.Error())
	}
	return src
}
