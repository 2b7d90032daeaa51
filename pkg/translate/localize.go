package translate

import (
	"strings"

	"github.com/tsxcorp/go-regform/pkg/schema"
	"github.com/tsxcorp/go-regform/pkg/textnorm"
)

// resolveFunc returns the localized value for source. prebaked is the value
// the backend bundle carries for the target language and may be empty.
type resolveFunc func(source, prebaked string) string

// localizeEvent rewrites every localizable string of event in place. Option
// values are canonical answer values and are never rewritten; their display
// text goes to OptionLabels.
func localizeEvent(event *schema.EventSchema, lang string, resolve resolveFunc) {
	if event == nil {
		return
	}
	event.Name = resolve(event.Name, "")
	event.Description = resolve(event.Description, "")
	for i := range event.Fields {
		localizeField(&event.Fields[i], lang, resolve)
	}
}

func localizeField(field *schema.FieldSchema, lang string, resolve resolveFunc) {
	bundle, _ := bundleFor(*field, lang)

	field.Label = resolve(field.Label, bundle.Label)
	field.Placeholder = resolve(field.Placeholder, bundle.Placeholder)
	field.HelpText = resolve(field.HelpText, bundle.HelpText)
	field.AgreementTitle = resolve(field.AgreementTitle, bundle.AgreementTitle)
	field.AgreementText = resolve(field.AgreementText, bundle.AgreementText)
	field.CheckboxLabel = resolve(field.CheckboxLabel, bundle.CheckboxLabel)
	field.SectionName = resolve(field.SectionName, bundle.SectionName)

	if len(field.Options) == 0 {
		return
	}
	labels := make([]string, len(field.Options))
	for i := range field.Options {
		prebaked := ""
		if i < len(bundle.Options) {
			prebaked = bundle.Options[i]
		}
		labels[i] = resolve(field.OptionLabel(i), prebaked)
	}
	field.OptionLabels = labels
}

// bundleFor finds the bundle for lang, falling back from a regional code
// ("en-US") to its base language.
func bundleFor(field schema.FieldSchema, lang string) (schema.TranslationBundle, bool) {
	if bundle, ok := field.Bundle(lang); ok {
		return bundle, true
	}
	if base, _, found := strings.Cut(lang, "-"); found {
		return field.Bundle(base)
	}
	return schema.TranslationBundle{}, false
}

// plan is the outcome of a dry localization pass: pre-baked values by source
// text and the distinct texts that still need resolving.
type plan struct {
	shared map[string]string
	remote []string
}

// planEvent walks a copy of event. Pre-baked values are shared across slots
// with the same source text so that, for example, every field of a section
// agrees on its name.
func planEvent(event *schema.EventSchema, lang string, onPrebaked func(source, value string)) plan {
	p := plan{shared: make(map[string]string)}
	var pending []string
	seen := make(map[string]struct{})
	localizeEvent(event.Clone(), lang, func(source, prebaked string) string {
		text := strings.TrimSpace(source)
		if strings.TrimSpace(prebaked) != "" {
			if onPrebaked != nil {
				onPrebaked(source, prebaked)
			}
			if _, ok := p.shared[text]; !ok && text != "" {
				p.shared[text] = prebaked
			}
			return prebaked
		}
		if text == "" {
			return source
		}
		if _, dup := seen[text]; !dup {
			seen[text] = struct{}{}
			pending = append(pending, text)
		}
		return source
	})
	for _, text := range pending {
		if _, ok := p.shared[text]; !ok {
			p.remote = append(p.remote, text)
		}
	}
	return p
}

// PendingStrings lists, in schema order, the distinct texts of event that
// have no pre-baked value for lang. These are resolved through overrides, the
// cache and the remote translator.
func PendingStrings(event *schema.EventSchema, lang string) []string {
	if event == nil {
		return nil
	}
	target := textnorm.Lang(lang)
	if target == "" || textnorm.SameLang(event.Language, target) {
		return nil
	}
	return planEvent(event, target, nil).remote
}
