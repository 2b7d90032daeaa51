package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tsxcorp/go-regform/internal/logging"
	"github.com/tsxcorp/go-regform/pkg/schema"
	"github.com/tsxcorp/go-regform/pkg/visibility"
)

// GuardFunc rejects a request before it reaches a handler. Returning an
// HTTPError selects the status; any other error maps to 403.
type GuardFunc func(r *http.Request) error

// BearerGuard accepts requests carrying "Authorization: Bearer <token>" and
// answers 401 otherwise. The token is compared in constant time.
func BearerGuard(token string) GuardFunc {
	want := []byte(token)
	return func(r *http.Request) error {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			return StatusError{Code: http.StatusUnauthorized}
		}
		return nil
	}
}

// Options configures the API router.
type Options struct {
	BasePath     string
	MaxBodyBytes int64
	// Guard protects the override and cache administration routes.
	Guard    GuardFunc
	Logger   logrus.FieldLogger
	Resolver *visibility.Resolver

	// Event is served by GET /event and used when a request omits one.
	Event *schema.EventSchema
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		BasePath:     "/api",
		MaxBodyBytes: 1 << 20,
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.BasePath == "" {
		opts.BasePath = "/"
	}
	opts.Logger = logging.Or(opts.Logger)
	if opts.Resolver == nil {
		opts.Resolver = visibility.NewResolver(visibility.WithLogger(opts.Logger))
	}
	return opts
}

func WithBasePath(path string) OptionFn {
	return func(o *Options) { o.BasePath = path }
}

func WithMaxBodyBytes(n int64) OptionFn {
	return func(o *Options) { o.MaxBodyBytes = n }
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) { o.Guard = guard }
}

func WithLogger(logger logrus.FieldLogger) OptionFn {
	return func(o *Options) { o.Logger = logger }
}

func WithResolver(resolver *visibility.Resolver) OptionFn {
	return func(o *Options) { o.Resolver = resolver }
}

func WithEvent(event *schema.EventSchema) OptionFn {
	return func(o *Options) { o.Event = event }
}
