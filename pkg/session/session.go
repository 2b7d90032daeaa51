// Package session ties one registration form together: the untranslated
// schema, the active translation, its registry and the answers entered so
// far. Language switches are tagged with a sequence number; only the latest
// request is applied.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tsxcorp/go-regform/internal/logging"
	"github.com/tsxcorp/go-regform/pkg/migrate"
	"github.com/tsxcorp/go-regform/pkg/registry"
	"github.com/tsxcorp/go-regform/pkg/schema"
	"github.com/tsxcorp/go-regform/pkg/translate"
	"github.com/tsxcorp/go-regform/pkg/validation"
	"github.com/tsxcorp/go-regform/pkg/visibility"
)

var (
	// ErrStale is returned by SwitchLanguage when a later switch was
	// requested before this one finished. The result was discarded.
	ErrStale = errors.New("session: language switch superseded")
	// ErrUnknownField rejects answers for ids the active schema lacks.
	ErrUnknownField = errors.New("session: unknown field")
	// ErrNilSchema is returned by New without a schema.
	ErrNilSchema = errors.New("session: nil schema")
)

// Localizer produces a translated copy of a schema. *translate.Service
// satisfies it.
type Localizer interface {
	TranslateEventData(ctx context.Context, event *schema.EventSchema, lang string) (*schema.EventSchema, translate.Report, error)
}

// Switch is the outcome of a successful language switch.
type Switch struct {
	Language    string              `json:"language"`
	Translation translate.Report    `json:"translation"`
	Migration   migrate.Report      `json:"migration"`
	Labels      schema.LabelAnswers `json:"labels"`
}

// Option configures a Session.
type Option func(*Session)

// WithLocalizer sets the translation service used on language switches.
func WithLocalizer(localizer Localizer) Option {
	return func(s *Session) {
		if localizer != nil {
			s.localizer = localizer
		}
	}
}

// WithResolver sets the visibility resolver.
func WithResolver(resolver *visibility.Resolver) Option {
	return func(s *Session) {
		if resolver != nil {
			s.resolver = resolver
		}
	}
}

// WithLogger routes session logs.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithID fixes the session id instead of generating one.
func WithID(id string) Option {
	return func(s *Session) {
		if strings.TrimSpace(id) != "" {
			s.id = id
		}
	}
}

// Session is safe for concurrent use.
type Session struct {
	id        string
	localizer Localizer
	resolver  *visibility.Resolver
	logger    logrus.FieldLogger

	mu      sync.Mutex
	source  *schema.EventSchema
	current *schema.EventSchema
	reg     *registry.Registry
	answers schema.Answers
	seq     uint64
	target  string
}

// New starts a session on event in its source language. The schema is
// copied.
func New(event *schema.EventSchema, options ...Option) (*Session, error) {
	if event == nil {
		return nil, ErrNilSchema
	}
	s := &Session{
		id:      uuid.NewString(),
		source:  event.Clone(),
		current: event.Clone(),
		answers: schema.Answers{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = logging.Or(s.logger)
	if s.localizer == nil {
		s.localizer = translate.New(translate.WithLogger(s.logger))
	}
	if s.resolver == nil {
		s.resolver = visibility.NewResolver(visibility.WithLogger(s.logger))
	}
	s.reg = registry.Build(s.current)
	s.target = s.current.Language
	s.logger = s.logger.WithField("session", s.id)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Language returns the language of the applied schema.
func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Language
}

// Schema returns a copy of the applied schema.
func (s *Session) Schema() *schema.EventSchema {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Source returns a copy of the untranslated schema.
func (s *Session) Source() *schema.EventSchema {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source.Clone()
}

// Registry returns the registry of the applied schema. Registries are
// immutable, so the value may be shared.
func (s *Session) Registry() *registry.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg
}

// Answers returns a copy of the id-keyed answers.
func (s *Session) Answers() schema.Answers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.Clone()
}

// LabelAnswers returns the legacy label-keyed view for the applied schema.
func (s *Session) LabelAnswers() schema.LabelAnswers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Project(s.answers)
}

// Set records the answer for field id.
func (s *Session) Set(id string, value schema.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = strings.TrimSpace(id)
	if _, ok := s.reg.Field(id); !ok {
		return fmt.Errorf("session: set %q: %w", id, ErrUnknownField)
	}
	s.answers[id] = value
	return nil
}

// SetLabel records an answer addressed by its current label.
func (s *Session) SetLabel(label string, value schema.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.reg.IDForLabel(label)
	if !ok {
		return fmt.Errorf("session: set label %q: %w", label, ErrUnknownField)
	}
	s.answers[id] = value
	return nil
}

// Clear forgets the answer for field id.
func (s *Session) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.answers, strings.TrimSpace(id))
}

// Visibility resolves field and section visibility for the current answers.
func (s *Session) Visibility() visibility.Decisions {
	s.mu.Lock()
	reg, answers := s.reg, s.answers.Clone()
	s.mu.Unlock()
	return s.resolver.Resolve(reg, answers)
}

// Submission returns the answers of visible fields only.
func (s *Session) Submission() schema.Answers {
	s.mu.Lock()
	reg, answers := s.reg, s.answers.Clone()
	s.mu.Unlock()
	return visibility.Prune(answers, s.resolver.Resolve(reg, answers))
}

// Validate checks the answers of visible fields.
func (s *Session) Validate() validation.Result {
	s.mu.Lock()
	reg, answers := s.reg, s.answers.Clone()
	s.mu.Unlock()
	return validation.Validate(reg, answers, s.resolver.Resolve(reg, answers))
}

// SwitchLanguage translates the untranslated schema into lang and applies it.
//
// Each call is tagged; if another switch is requested while this one is in
// flight, this result is discarded and ErrStale returned, so the last
// requested language always wins. Answers are keyed by field id and survive
// unchanged; the label-keyed view is migrated and returned for UI bindings.
func (s *Session) SwitchLanguage(ctx context.Context, lang string) (Switch, error) {
	s.mu.Lock()
	s.seq++
	ticket := s.seq
	s.target = lang
	source := s.source
	s.mu.Unlock()

	translated, report, err := s.localizer.TranslateEventData(ctx, source, lang)
	if err != nil {
		return Switch{}, fmt.Errorf("session: switch language to %q: %w", lang, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.seq {
		s.logger.WithFields(logrus.Fields{"lang": lang, "current": s.target}).
			Debug("session: discarding superseded language switch")
		return Switch{}, ErrStale
	}

	previous := s.current
	labels, migration := migrate.Migrate(previous.Fields, translated.Fields, s.reg.Project(s.answers), migrate.WithLogger(s.logger))
	answers, _ := migrate.MigrateAnswers(translated.Fields, s.answers, migrate.WithLogger(s.logger))

	s.current = translated
	s.reg = registry.Build(translated)
	s.answers = answers

	s.logger.WithFields(logrus.Fields{
		"from":      previous.Language,
		"to":        translated.Language,
		"moved":     len(migration.Moved),
		"fallbacks": report.Fallbacks,
	}).Info("session: language switched")

	return Switch{
		Language:    translated.Language,
		Translation: report,
		Migration:   migration,
		Labels:      labels,
	}, nil
}
