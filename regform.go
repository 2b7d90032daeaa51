// Package regform is the entry point for the registration form engine. It
// re-exports the constructors most callers need: loading an event schema,
// localizing it, and running a fill session with visibility and migration.
package regform

import (
	"context"

	"github.com/tsxcorp/go-regform/internal/loader"
	"github.com/tsxcorp/go-regform/pkg/registry"
	"github.com/tsxcorp/go-regform/pkg/schema"
	"github.com/tsxcorp/go-regform/pkg/session"
	"github.com/tsxcorp/go-regform/pkg/translate"
	"github.com/tsxcorp/go-regform/pkg/visibility"
)

// EventSchema aliases the schema aggregate for callers that only import the
// root package.
type EventSchema = schema.EventSchema

// Answers aliases the field-id keyed answer map.
type Answers = schema.Answers

// NewTranslationService exposes the localization service constructor.
func NewTranslationService(options ...translate.Option) *translate.Service {
	return translate.New(options...)
}

// NewSession starts a fill session on event.
func NewSession(event *EventSchema, options ...session.Option) (*session.Session, error) {
	return session.New(event, options...)
}

// LoadEvent reads and decodes an event schema from a location string using a
// loader built from options. HTTP sources need WithHTTPFallback or
// WithHTTPClient.
func LoadEvent(ctx context.Context, location string, options ...schema.LoaderOption) (*EventSchema, error) {
	src, err := ParseSource(location)
	if err != nil {
		return nil, err
	}
	return loader.LoadEvent(ctx, NewLoader(options...), src)
}

// Resolve computes field and section visibility for answers against event.
func Resolve(event *EventSchema, answers Answers, options ...visibility.Option) visibility.Decisions {
	return visibility.Resolve(registry.Build(event), answers, options...)
}
