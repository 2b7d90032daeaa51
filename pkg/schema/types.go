package schema

import (
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// FieldType is the backend field kind.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeEmail       FieldType = "email"
	FieldTypePhone       FieldType = "phone"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDate        FieldType = "date"
	FieldTypeTextarea    FieldType = "textarea"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multi-select"
	FieldTypeRadio       FieldType = "radio"
	FieldTypeCheckbox    FieldType = "checkbox"
	FieldTypeAgreement   FieldType = "agreement"
)

// MultiValue reports whether answers for the type are stored as a set.
func (t FieldType) MultiValue() bool {
	switch t {
	case FieldTypeMultiSelect, FieldTypeCheckbox:
		return true
	default:
		return false
	}
}

// HasOptions reports whether the type renders a fixed option list.
func (t FieldType) HasOptions() bool {
	switch t {
	case FieldTypeSelect, FieldTypeMultiSelect, FieldTypeRadio, FieldTypeCheckbox:
		return true
	default:
		return false
	}
}

// TranslationBundle holds the pre-baked strings the backend ships for one
// language. Any member may be empty.
type TranslationBundle struct {
	Label          string   `json:"label,omitempty" yaml:"label,omitempty"`
	Placeholder    string   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	HelpText       string   `json:"help_text,omitempty" yaml:"help_text,omitempty"`
	AgreementTitle string   `json:"agreement_title,omitempty" yaml:"agreement_title,omitempty"`
	AgreementText  string   `json:"agreement_text,omitempty" yaml:"agreement_text,omitempty"`
	CheckboxLabel  string   `json:"checkbox_label,omitempty" yaml:"checkbox_label,omitempty"`
	SectionName    string   `json:"section_name,omitempty" yaml:"section_name,omitempty"`
	Options        []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Empty reports whether the bundle carries no text at all.
func (b TranslationBundle) Empty() bool {
	if strings.TrimSpace(b.Label+b.Placeholder+b.HelpText+b.AgreementTitle+b.AgreementText+b.CheckboxLabel+b.SectionName) != "" {
		return false
	}
	for _, option := range b.Options {
		if strings.TrimSpace(option) != "" {
			return false
		}
	}
	return true
}

// FieldSchema describes one form field or agreement block.
//
// FieldID is stable across languages. Label is the localized display string
// and, in legacy payloads, the key under which answers were stored. Options
// hold the canonical option values (what answers and conditions compare
// against) while OptionLabels is the display projection, index-aligned with
// Options.
type FieldSchema struct {
	FieldID          string                       `json:"field_id" yaml:"field_id"`
	Label            string                       `json:"label" yaml:"label"`
	Type             FieldType                    `json:"type" yaml:"type"`
	Required         bool                         `json:"required,omitempty" yaml:"required,omitempty"`
	Options          []string                     `json:"options,omitempty" yaml:"options,omitempty"`
	OptionLabels     []string                     `json:"option_labels,omitempty" yaml:"option_labels,omitempty"`
	Placeholder      string                       `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	HelpText         string                       `json:"help_text,omitempty" yaml:"help_text,omitempty"`
	AgreementTitle   string                       `json:"agreement_title,omitempty" yaml:"agreement_title,omitempty"`
	AgreementText    string                       `json:"agreement_text,omitempty" yaml:"agreement_text,omitempty"`
	CheckboxLabel    string                       `json:"checkbox_label,omitempty" yaml:"checkbox_label,omitempty"`
	SectionName      string                       `json:"section_name,omitempty" yaml:"section_name,omitempty"`
	SectionSort      int                          `json:"section_sort,omitempty" yaml:"section_sort,omitempty"`
	Sort             int                          `json:"sort,omitempty" yaml:"sort,omitempty"`
	FieldCondition   string                       `json:"field_condition,omitempty" yaml:"field_condition,omitempty"`
	SectionCondition string                       `json:"section_condition,omitempty" yaml:"section_condition,omitempty"`
	Translation      map[string]TranslationBundle `json:"translation,omitempty" yaml:"translation,omitempty"`
}

// fieldAlias has FieldSchema's fields without its decode methods.
type fieldAlias FieldSchema

// UnmarshalJSON accepts "values" as the option list when "options" is absent.
func (f *FieldSchema) UnmarshalJSON(data []byte) error {
	var aux struct {
		fieldAlias
		Values []string `json:"values"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*f = FieldSchema(aux.fieldAlias)
	f.adoptValues(aux.Values)
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON.
func (f *FieldSchema) UnmarshalYAML(node *yaml.Node) error {
	var aux struct {
		fieldAlias `yaml:",inline"`
		Values     []string `yaml:"values"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	*f = FieldSchema(aux.fieldAlias)
	f.adoptValues(aux.Values)
	return nil
}

func (f *FieldSchema) adoptValues(values []string) {
	if len(f.Options) == 0 && len(values) > 0 {
		f.Options = values
	}
}

// OptionLabel returns the display label for the option at index i, falling
// back to the canonical value.
func (f FieldSchema) OptionLabel(i int) string {
	if i < 0 || i >= len(f.Options) {
		return ""
	}
	if i < len(f.OptionLabels) && strings.TrimSpace(f.OptionLabels[i]) != "" {
		return f.OptionLabels[i]
	}
	return f.Options[i]
}

// Bundle returns the pre-baked bundle for lang. Language codes are matched
// case-insensitively.
func (f FieldSchema) Bundle(lang string) (TranslationBundle, bool) {
	if len(f.Translation) == 0 {
		return TranslationBundle{}, false
	}
	if bundle, ok := f.Translation[lang]; ok {
		return bundle, true
	}
	for code, bundle := range f.Translation {
		if strings.EqualFold(strings.TrimSpace(code), strings.TrimSpace(lang)) {
			return bundle, true
		}
	}
	return TranslationBundle{}, false
}

// Clone returns a deep copy.
func (f FieldSchema) Clone() FieldSchema {
	out := f
	out.Options = cloneStrings(f.Options)
	out.OptionLabels = cloneStrings(f.OptionLabels)
	if f.Translation != nil {
		out.Translation = make(map[string]TranslationBundle, len(f.Translation))
		for lang, bundle := range f.Translation {
			bundle.Options = cloneStrings(bundle.Options)
			out.Translation[lang] = bundle
		}
	}
	return out
}

// EventSchema is the aggregate the backend returns for an event: metadata plus
// the ordered registration fields.
type EventSchema struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Location    string        `json:"location,omitempty" yaml:"location,omitempty"`
	StartDate   string        `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate     string        `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Banner      string        `json:"banner,omitempty" yaml:"banner,omitempty"`
	Language    string        `json:"language,omitempty" yaml:"language,omitempty"`
	Fields      []FieldSchema `json:"form_fields" yaml:"form_fields"`
}

// Clone returns a fully independent copy. Translation works on clones so the
// fetched schema stays the untranslated source of truth.
func (s *EventSchema) Clone() *EventSchema {
	if s == nil {
		return nil
	}
	out := *s
	if s.Fields != nil {
		out.Fields = make([]FieldSchema, len(s.Fields))
		for i, field := range s.Fields {
			out.Fields[i] = field.Clone()
		}
	}
	return &out
}

// SortedFields returns the fields ordered by section sort, field sort and
// input position.
func (s *EventSchema) SortedFields() []FieldSchema {
	if s == nil || len(s.Fields) == 0 {
		return nil
	}
	out := make([]FieldSchema, len(s.Fields))
	copy(out, s.Fields)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SectionSort != out[j].SectionSort {
			return out[i].SectionSort < out[j].SectionSort
		}
		return out[i].Sort < out[j].Sort
	})
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
