package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/tsxcorp/go-regform/pkg/schema"
	"github.com/tsxcorp/go-regform/pkg/translate"
)

// Reviewer is the part of the translation service the review loop uses.
type Reviewer interface {
	TranslateText(ctx context.Context, text, lang string) (string, translate.Origin, error)
	GetTranslationSuggestions(ctx context.Context, text, lang string) []string
	AddCustomTranslation(ctx context.Context, text, lang, value string) error
}

const (
	optionTypeOwn = "✎ type a translation"
	optionSkip    = "→ skip"
)

// ReviewResult counts what happened during a review.
type ReviewResult struct {
	Reviewed int
	Saved    int
	Skipped  int
}

// Review walks every string of event that has no pre-baked translation for
// lang, shows the current translation with the known suggestions, and stores
// the operator's choice as a custom translation.
func Review(ctx context.Context, svc Reviewer, event *schema.EventSchema, lang string, driver Driver) (ReviewResult, error) {
	var result ReviewResult
	for _, text := range translate.PendingStrings(event, lang) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Reviewed++

		current, origin, err := svc.TranslateText(ctx, text, lang)
		if err != nil {
			if err := driver.Info(ctx, fmt.Sprintf("machine translation failed: %v", err)); err != nil {
				return result, err
			}
		}
		candidates := reviewOptions(svc.GetTranslationSuggestions(ctx, text, lang), current)
		options := append(append([]string{}, candidates...), optionTypeOwn, optionSkip)

		idx, err := driver.Select(ctx, SelectConfig{
			Message:      fmt.Sprintf("%s  [%s]", text, origin),
			Options:      options,
			DefaultIndex: 0,
			Help:         "current: " + current,
		})
		if err != nil {
			return result, err
		}

		var value string
		switch {
		case idx >= 0 && idx < len(candidates):
			value = candidates[idx]
		case idx == len(candidates):
			value, err = driver.Input(ctx, InputConfig{Message: text, Default: current})
			if err != nil {
				return result, err
			}
		}
		value = strings.TrimSpace(value)
		if value == "" || (origin == translate.OriginOverride && value == current) {
			result.Skipped++
			continue
		}
		if err := svc.AddCustomTranslation(ctx, text, lang, value); err != nil {
			return result, fmt.Errorf("prompt: save %q: %w", text, err)
		}
		result.Saved++
	}
	return result, nil
}

func reviewOptions(suggestions []string, current string) []string {
	out := make([]string, 0, len(suggestions)+1)
	seen := make(map[string]struct{}, len(suggestions)+1)
	for _, candidate := range append(suggestions, current) {
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
