package translate

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Origin names where a resolved string came from.
type Origin string

const (
	OriginPrebaked Origin = "prebaked"
	OriginOverride Origin = "override"
	OriginCache    Origin = "cache"
	OriginRemote   Origin = "remote"
	// OriginSource means no translation was available and the source text
	// was kept.
	OriginSource Origin = "source"
)

// Failure records one string whose remote translation failed.
type Failure struct {
	Text    string `json:"text"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// Report summarizes one TranslateEventData call. Counts are per localizable
// slot, so a string used twice counts twice.
type Report struct {
	Language     string    `json:"language"`
	SameLanguage bool      `json:"same_language,omitempty"`
	Strings      int       `json:"strings"`
	Prebaked     int       `json:"prebaked"`
	Overrides    int       `json:"overrides"`
	Cached       int       `json:"cached"`
	Remote       int       `json:"remote"`
	Fallbacks    int       `json:"fallbacks"`
	Failures     []Failure `json:"failures,omitempty"`
}

func (r *Report) count(origin Origin) {
	r.Strings++
	switch origin {
	case OriginPrebaked:
		r.Prebaked++
	case OriginOverride:
		r.Overrides++
	case OriginCache:
		r.Cached++
	case OriginRemote:
		r.Remote++
	default:
		r.Fallbacks++
	}
}

// Degraded reports whether any string stayed in the source language.
func (r Report) Degraded() bool {
	return r.Fallbacks > 0
}

// Err aggregates the failures, or returns nil when there are none. The
// translation itself still succeeded; this is for logging and operators.
func (r Report) Err() error {
	var result *multierror.Error
	for _, failure := range r.Failures {
		err := failure.Err
		if err == nil {
			err = fmt.Errorf("%s", failure.Message)
		}
		result = multierror.Append(result, fmt.Errorf("translate %q: %w", failure.Text, err))
	}
	return result.ErrorOrNil()
}
