// Package translate localizes event schemas.
//
// Every localizable string is resolved in priority order: the pre-baked
// bundle the backend ships for the target language, an operator override,
// the in-memory cache, then the remote Translator. A remote failure falls back
// to the source text for that string only.
package translate

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/tsxcorp/go-regform/pkg/textnorm"
)

var (
	// ErrNilSchema is returned when no schema is supplied.
	ErrNilSchema = errors.New("translate: nil schema")
	// ErrNoLanguage is returned for a blank target language.
	ErrNoLanguage = errors.New("translate: target language required")
	// ErrEmptyText rejects blank source or override text.
	ErrEmptyText = errors.New("translate: empty text")
	// ErrNotFound is returned when removing an override that does not exist.
	ErrNotFound = errors.New("translate: override not found")
	// ErrEmptyTranslation marks a remote answer that was blank after
	// sanitizing.
	ErrEmptyTranslation = errors.New("translate: empty translation")
)

// Translator is the remote machine-translation collaborator.
type Translator interface {
	Translate(ctx context.Context, text, lang string) (string, error)
}

// TranslatorFunc adapts a function into a Translator.
type TranslatorFunc func(ctx context.Context, text, lang string) (string, error)

// Translate delegates to the underlying function.
func (fn TranslatorFunc) Translate(ctx context.Context, text, lang string) (string, error) {
	return fn(ctx, text, lang)
}

// OverrideStore persists operator overrides. Implementations live in
// pkg/translate/store.
type OverrideStore interface {
	Load(ctx context.Context) (Overrides, error)
	Save(ctx context.Context, overrides Overrides) error
}

// Overrides maps language -> source text -> replacement. Keys are stored in
// the normalized form produced by Set.
type Overrides map[string]map[string]string

// Get returns the override for text in lang.
func (o Overrides) Get(text, lang string) (string, bool) {
	k := keyFor(text, lang)
	value, ok := o[k.lang][k.text]
	return value, ok
}

// Set records an override, normalizing the key.
func (o Overrides) Set(text, lang, value string) {
	k := keyFor(text, lang)
	bucket, ok := o[k.lang]
	if !ok {
		bucket = make(map[string]string)
		o[k.lang] = bucket
	}
	bucket[k.text] = value
}

// Delete removes an override and reports whether it existed.
func (o Overrides) Delete(text, lang string) bool {
	k := keyFor(text, lang)
	bucket, ok := o[k.lang]
	if !ok {
		return false
	}
	if _, ok := bucket[k.text]; !ok {
		return false
	}
	delete(bucket, k.text)
	if len(bucket) == 0 {
		delete(o, k.lang)
	}
	return true
}

// Len counts overrides across languages.
func (o Overrides) Len() int {
	total := 0
	for _, bucket := range o {
		total += len(bucket)
	}
	return total
}

// Clone returns a deep copy.
func (o Overrides) Clone() Overrides {
	out := make(Overrides, len(o))
	for lang, bucket := range o {
		copied := make(map[string]string, len(bucket))
		for text, value := range bucket {
			copied[text] = value
		}
		out[lang] = copied
	}
	return out
}

// Normalize rebuilds o with canonical keys. Stores call it after decoding
// hand-edited files.
func (o Overrides) Normalize() Overrides {
	out := make(Overrides, len(o))
	for lang, bucket := range o {
		for text, value := range bucket {
			if strings.TrimSpace(text) == "" || strings.TrimSpace(lang) == "" {
				continue
			}
			out.Set(text, lang, value)
		}
	}
	return out
}

// Entry is one override in a flat listing.
type Entry struct {
	Text  string `json:"text"`
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

// Entries lists overrides sorted by language then text.
func (o Overrides) Entries() []Entry {
	out := make([]Entry, 0, o.Len())
	for lang, bucket := range o {
		for text, value := range bucket {
			out = append(out, Entry{Text: text, Lang: lang, Value: value})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lang != out[j].Lang {
			return out[i].Lang < out[j].Lang
		}
		return out[i].Text < out[j].Text
	})
	return out
}

// key identifies a source string in a target language. Text is trimmed and
// otherwise exact; the language is canonicalized and lower-cased.
type key struct {
	text string
	lang string
}

func keyFor(text, lang string) key {
	return key{
		text: strings.TrimSpace(text),
		lang: strings.ToLower(textnorm.Lang(lang)),
	}
}
