package regform

import (
	"fmt"
	"strings"

	"github.com/tsxcorp/go-regform/internal/loader"
	"github.com/tsxcorp/go-regform/pkg/schema"
)

// NewLoader constructs a schema loader while keeping the concrete type
// hidden from consumers.
func NewLoader(options ...schema.LoaderOption) schema.Loader {
	return loader.New(schema.NewLoaderOptions(options...))
}

// ParseSource turns a command-line location into a Source: http(s) URLs load
// remotely, anything else is a file path.
func ParseSource(raw string) (schema.Source, error) {
	location := strings.TrimSpace(raw)
	if location == "" {
		return nil, fmt.Errorf("regform: empty schema location")
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return schema.ParseURLSource(location)
	}
	return schema.SourceFromFile(location), nil
}
