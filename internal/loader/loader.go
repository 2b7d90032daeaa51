// Package loader fetches event schema payloads from files, an fs.FS or the
// registration API.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/tsxcorp/go-regform/pkg/schema"
)

// ErrHTTPDisabled is returned for URL sources when no HTTP client was
// configured.
var ErrHTTPDisabled = errors.New("loader: http support disabled")

// Loader implements schema.Loader. Each source kind has its own fetch
// strategy.
type Loader struct {
	files   fs.FS
	client  *http.Client
	timeout time.Duration
	headers map[string]string
}

var _ schema.Loader = (*Loader)(nil)

// New constructs a Loader from pre-resolved options. An HTTP client is only
// set up when one is injected or the fallback is enabled.
func New(options schema.LoaderOptions) *Loader {
	l := &Loader{
		files:   options.FileSystem,
		timeout: options.RequestTimeout,
		headers: make(map[string]string, len(options.Headers)),
	}
	for k, v := range options.Headers {
		l.headers[k] = v
	}

	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if l.timeout > 0 && clone.Timeout == 0 {
			clone.Timeout = l.timeout
		}
		l.client = &clone
	case options.AllowHTTPFallback:
		l.client = &http.Client{Timeout: l.timeout}
	}
	return l
}

// Load fetches the raw payload for src and wraps it in a Document.
func (l *Loader) Load(ctx context.Context, src schema.Source) (schema.Document, error) {
	if src == nil {
		return schema.Document{}, errors.New("loader: source is nil")
	}
	data, err := l.fetch(ctx, src)
	if err != nil {
		return schema.Document{}, fmt.Errorf("loader: %s %q: %w", src.Kind(), src.Location(), err)
	}
	return schema.NewDocument(src, data)
}

func (l *Loader) fetch(ctx context.Context, src schema.Source) ([]byte, error) {
	switch src.Kind() {
	case schema.SourceKindFile:
		return loadFile(ctx, src.Location())
	case schema.SourceKindFS:
		return loadFromFS(ctx, l.files, src.Location())
	case schema.SourceKindURL:
		if l.client == nil {
			return nil, ErrHTTPDisabled
		}
		return loadHTTP(ctx, l.client, src.Location(), l.headers, l.timeout)
	default:
		return nil, errors.New("unsupported source kind")
	}
}

// LoadEvent loads and decodes an event schema in one step.
func LoadEvent(ctx context.Context, l schema.Loader, src schema.Source) (*schema.EventSchema, error) {
	doc, err := l.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return doc.Decode()
}
