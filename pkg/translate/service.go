package translate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tsxcorp/go-regform/internal/logging"
	"github.com/tsxcorp/go-regform/pkg/schema"
	"github.com/tsxcorp/go-regform/pkg/textnorm"
)

// Stats is the observability snapshot returned by GetCacheStats.
type Stats struct {
	Entries        int `json:"entries"`
	Hits           int `json:"hits"`
	Misses         int `json:"misses"`
	RemoteCalls    int `json:"remote_calls"`
	RemoteFailures int `json:"remote_failures"`
	Overrides      int `json:"overrides"`
}

// Service localizes schemas and manages operator overrides. It is safe for
// concurrent use.
type Service struct {
	translator    Translator
	cache         *Cache
	store         OverrideStore
	logger        logrus.FieldLogger
	workers       int
	persistRemote bool
	now           func() time.Time

	group          singleflight.Group
	remoteCalls    atomic.Int64
	remoteFailures atomic.Int64

	mu        sync.RWMutex
	overrides Overrides
	loaded    bool
	prebaked  map[key][]string
}

// New constructs a Service. Overrides are loaded from the store on first use.
func New(options ...Option) *Service {
	s := &Service{workers: defaultWorkers}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.cache == nil {
		s.cache = NewCache()
	}
	if s.now != nil {
		s.cache.mu.Lock()
		s.cache.now = s.now
		s.cache.mu.Unlock()
	}
	s.logger = logging.Or(s.logger)
	s.prebaked = make(map[key][]string)
	return s
}

// Cache exposes the translation cache.
func (s *Service) Cache() *Cache { return s.cache }

type resolution struct {
	text   string
	origin Origin
}

// TranslateEventData returns a localized deep copy of event for lang. The
// input is never modified.
//
// Remote failures do not fail the call: the affected strings keep their
// source text and are listed in Report.Failures. The error is reserved for
// invalid input and context cancellation.
func (s *Service) TranslateEventData(ctx context.Context, event *schema.EventSchema, lang string) (*schema.EventSchema, Report, error) {
	if event == nil {
		return nil, Report{}, ErrNilSchema
	}
	target := textnorm.Lang(lang)
	if target == "" {
		return nil, Report{}, ErrNoLanguage
	}

	report := Report{Language: target}
	if textnorm.SameLang(event.Language, target) {
		report.SameLanguage = true
		return event.Clone(), report, nil
	}

	if err := s.ensureOverrides(ctx); err != nil {
		s.logger.WithError(err).Warn("translate: overrides unavailable, continuing without them")
	}

	p := planEvent(event, target, func(source, value string) {
		s.rememberPrebaked(source, target, value)
	})
	shared := p.shared
	resolved, failures, err := s.resolveAll(ctx, p.remote, target)
	if err != nil {
		return nil, report, fmt.Errorf("translate: translate event %q: %w", event.ID, err)
	}

	out := event.Clone()
	localizeEvent(out, target, func(source, prebaked string) string {
		if strings.TrimSpace(prebaked) != "" {
			report.count(OriginPrebaked)
			return prebaked
		}
		text := strings.TrimSpace(source)
		if text == "" {
			return source
		}
		if value, ok := shared[text]; ok {
			report.count(OriginPrebaked)
			return value
		}
		res, ok := resolved[text]
		if !ok || res.origin == OriginSource {
			report.count(OriginSource)
			return source
		}
		report.count(res.origin)
		return res.text
	})
	out.Language = target
	report.Failures = failures

	s.logger.WithFields(logrus.Fields{
		"event":     event.ID,
		"lang":      target,
		"strings":   report.Strings,
		"remote":    report.Remote,
		"fallbacks": report.Fallbacks,
	}).Debug("translate: event translated")
	return out, report, nil
}

// TranslateText resolves a single string through overrides, the cache and the
// remote translator. On remote failure the source text is returned together
// with the error.
func (s *Service) TranslateText(ctx context.Context, text, lang string) (string, Origin, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text, OriginSource, ErrEmptyText
	}
	target := textnorm.Lang(lang)
	if target == "" {
		return text, OriginSource, ErrNoLanguage
	}
	if err := s.ensureOverrides(ctx); err != nil {
		s.logger.WithError(err).Warn("translate: overrides unavailable, continuing without them")
	}

	resolved, failures, err := s.resolveAll(ctx, []string{trimmed}, target)
	if err != nil {
		return text, OriginSource, fmt.Errorf("translate: translate text: %w", err)
	}
	if len(failures) > 0 {
		return text, OriginSource, fmt.Errorf("translate: translate text: %w", failures[0].Err)
	}
	res := resolved[trimmed]
	if res.origin == OriginSource {
		return text, OriginSource, nil
	}
	return res.text, res.origin, nil
}

func (s *Service) resolveAll(ctx context.Context, texts []string, lang string) (map[string]resolution, []Failure, error) {
	out := make(map[string]resolution, len(texts))
	var remote []string
	for _, text := range texts {
		if value, ok := s.override(text, lang); ok {
			out[text] = resolution{text: value, origin: OriginOverride}
			continue
		}
		if entry, ok := s.cache.Get(text, lang); ok {
			out[text] = resolution{text: entry.Text, origin: OriginCache}
			continue
		}
		remote = append(remote, text)
	}
	if len(remote) == 0 {
		return out, nil, nil
	}
	if s.translator == nil {
		for _, text := range remote {
			out[text] = resolution{text: text, origin: OriginSource}
		}
		return out, nil, nil
	}

	results := make([]resolution, len(remote))
	errs := make([]error, len(remote))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, text := range remote {
		i, text := i, text
		g.Go(func() error {
			results[i], errs[i] = s.fetch(ctx, text, lang)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var failures []Failure
	var fresh []Entry
	for i, text := range remote {
		if err := errs[i]; err != nil {
			failures = append(failures, Failure{Text: text, Message: err.Error(), Err: err})
			s.logger.WithFields(logrus.Fields{"text": text, "lang": lang}).
				WithError(err).
				Warn("translate: remote translation failed, keeping source text")
			out[text] = resolution{text: text, origin: OriginSource}
			continue
		}
		out[text] = results[i]
		if results[i].origin == OriginRemote {
			fresh = append(fresh, Entry{Text: text, Lang: lang, Value: results[i].text})
		}
	}
	if s.persistRemote && len(fresh) > 0 {
		s.persist(ctx, fresh)
	}
	return out, failures, nil
}

// fetch calls the translator once per (text, lang) even when several
// translations ask for it concurrently.
func (s *Service) fetch(ctx context.Context, text, lang string) (resolution, error) {
	k := keyFor(text, lang)
	v, err, _ := s.group.Do(k.lang+"\x00"+k.text, func() (any, error) {
		if entry, ok := s.cache.Peek(text, lang); ok {
			return resolution{text: entry.Text, origin: OriginCache}, nil
		}
		s.remoteCalls.Add(1)
		translated, err := s.translator.Translate(ctx, text, lang)
		if err != nil {
			s.remoteFailures.Add(1)
			return nil, err
		}
		clean := sanitizeText(translated)
		if clean == "" {
			s.remoteFailures.Add(1)
			return nil, ErrEmptyTranslation
		}
		s.cache.Put(text, lang, clean)
		return resolution{text: clean, origin: OriginRemote}, nil
	})
	if err != nil {
		return resolution{}, err
	}
	return v.(resolution), nil
}

// LearnEvent records the pre-baked bundle values of event for every language
// it carries, without translating anything, so GetTranslationSuggestions can
// offer them before the event has been translated through s.
func (s *Service) LearnEvent(event *schema.EventSchema) {
	if event == nil {
		return
	}
	langs := make(map[string]struct{})
	for _, field := range event.Fields {
		for code := range field.Translation {
			if lang := textnorm.Lang(code); lang != "" {
				langs[lang] = struct{}{}
			}
		}
	}
	for lang := range langs {
		planEvent(event, lang, func(source, value string) {
			s.rememberPrebaked(source, lang, value)
		})
	}
}

// GetTranslationSuggestions lists candidate translations of text in lang for
// an operator: the current override, pre-baked values, then the cached
// machine translation. Duplicates are removed.
//
// Pre-baked values are only known for events passed to TranslateEventData or
// LearnEvent on this service.
func (s *Service) GetTranslationSuggestions(ctx context.Context, text, lang string) []string {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(lang) == "" {
		return nil
	}
	if err := s.ensureOverrides(ctx); err != nil {
		s.logger.WithError(err).Warn("translate: overrides unavailable for suggestions")
	}

	var candidates []string
	if value, ok := s.override(text, lang); ok {
		candidates = append(candidates, value)
	}
	s.mu.RLock()
	candidates = append(candidates, s.prebaked[keyFor(text, lang)]...)
	s.mu.RUnlock()
	if entry, ok := s.cache.Peek(text, lang); ok {
		candidates = append(candidates, entry.Text)
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

// AddCustomTranslation persists an override that takes priority over the
// cache and the remote translator from now on. Pre-baked bundle values still
// win.
func (s *Service) AddCustomTranslation(ctx context.Context, text, lang, value string) error {
	clean := sanitizeText(value)
	if strings.TrimSpace(text) == "" || clean == "" {
		return ErrEmptyText
	}
	if textnorm.Lang(lang) == "" {
		return ErrNoLanguage
	}
	if err := s.ensureOverrides(ctx); err != nil {
		return fmt.Errorf("translate: add custom translation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.overrides.Clone()
	next.Set(text, lang, clean)
	if s.store != nil {
		if err := s.store.Save(ctx, next); err != nil {
			return fmt.Errorf("translate: add custom translation: %w", err)
		}
	}
	s.overrides = next
	return nil
}

// RemoveCustomTranslation deletes an override.
func (s *Service) RemoveCustomTranslation(ctx context.Context, text, lang string) error {
	if err := s.ensureOverrides(ctx); err != nil {
		return fmt.Errorf("translate: remove custom translation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.overrides.Clone()
	if !next.Delete(text, lang) {
		return ErrNotFound
	}
	if s.store != nil {
		if err := s.store.Save(ctx, next); err != nil {
			return fmt.Errorf("translate: remove custom translation: %w", err)
		}
	}
	s.overrides = next
	return nil
}

// CustomTranslations returns a copy of the current overrides.
func (s *Service) CustomTranslations(ctx context.Context) (Overrides, error) {
	if err := s.ensureOverrides(ctx); err != nil {
		return nil, fmt.Errorf("translate: list custom translations: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overrides.Clone(), nil
}

// ReloadOverrides re-reads the store, replacing in-memory overrides.
func (s *Service) ReloadOverrides(ctx context.Context) error {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
	return s.ensureOverrides(ctx)
}

// ClearTranslationCache drops every cached machine translation. Overrides are
// untouched.
func (s *Service) ClearTranslationCache() {
	entries := s.cache.Len()
	s.cache.Clear()
	s.logger.WithField("entries", entries).Info("translate: cache cleared")
}

// GetCacheStats reports cache size and traffic counters.
func (s *Service) GetCacheStats() Stats {
	hits, misses := s.cache.counters()
	s.mu.RLock()
	overrides := s.overrides.Len()
	s.mu.RUnlock()
	return Stats{
		Entries:        s.cache.Len(),
		Hits:           hits,
		Misses:         misses,
		RemoteCalls:    int(s.remoteCalls.Load()),
		RemoteFailures: int(s.remoteFailures.Load()),
		Overrides:      overrides,
	}
}

func (s *Service) override(text, lang string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overrides.Get(text, lang)
}

func (s *Service) rememberPrebaked(source, lang, value string) {
	k := keyFor(source, lang)
	if k.text == "" {
		return
	}
	value = strings.TrimSpace(value)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.prebaked[k] {
		if existing == value {
			return
		}
	}
	s.prebaked[k] = append(s.prebaked[k], value)
}

func (s *Service) ensureOverrides(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	if s.store == nil {
		if s.overrides == nil {
			s.overrides = Overrides{}
		}
		s.loaded = true
		return nil
	}
	overrides, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("translate: load overrides: %w", err)
	}
	s.overrides = overrides.Normalize()
	s.loaded = true
	return nil
}

func (s *Service) persist(ctx context.Context, entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return
	}
	next := s.overrides.Clone()
	for _, entry := range entries {
		if _, exists := next.Get(entry.Text, entry.Lang); exists {
			continue
		}
		next.Set(entry.Text, entry.Lang, entry.Value)
	}
	if s.store != nil {
		if err := s.store.Save(ctx, next); err != nil {
			s.logger.WithError(err).Warn("translate: persist remote translations")
			return
		}
	}
	s.overrides = next
}
