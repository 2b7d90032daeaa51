package translate

import (
	"time"

	"github.com/sirupsen/logrus"
)

const defaultWorkers = 4

// Option configures a Service.
type Option func(*Service)

// WithTranslator sets the remote translator. Without one, strings lacking a
// pre-baked value, override or cache entry keep their source text.
func WithTranslator(t Translator) Option {
	return func(s *Service) {
		s.translator = t
	}
}

// WithCache injects the translation cache, e.g. to share it across services.
func WithCache(cache *Cache) Option {
	return func(s *Service) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithStore sets the override persistence.
func WithStore(store OverrideStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithLogger routes service logs.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithWorkers bounds concurrent remote calls per TranslateEventData call.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithPersistRemote saves successful remote translations as overrides.
func WithPersistRemote(enabled bool) Option {
	return func(s *Service) {
		s.persistRemote = enabled
	}
}

// WithClock overrides the cache timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
