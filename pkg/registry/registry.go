// Package registry indexes one schema snapshot by field id and by label.
//
// A Registry is immutable after Build and is rebuilt whenever the schema
// changes (initial load, language switch). It is safe for concurrent readers.
package registry

import (
	"sort"
	"strings"

	"github.com/tsxcorp/go-regform/pkg/schema"
	"github.com/tsxcorp/go-regform/pkg/textnorm"
)

// Section groups the fields sharing a section name, in display order.
type Section struct {
	Name      string
	Sort      int
	Condition string
	FieldIDs  []string
}

// Registry maps field ids to schemas and current labels back to field ids.
type Registry struct {
	language   string
	byID       map[string]schema.FieldSchema
	byLabel    map[string]string
	byLabelKey map[string]string
	order      []string
	sections   []Section
	duplicates []string
}

// Build indexes the supplied schema snapshot. A nil or empty schema yields an
// empty registry. Duplicate field ids keep their first occurrence.
func Build(event *schema.EventSchema) *Registry {
	reg := &Registry{
		byID:       make(map[string]schema.FieldSchema),
		byLabel:    make(map[string]string),
		byLabelKey: make(map[string]string),
	}
	if event == nil {
		return reg
	}
	reg.language = event.Language

	sectionIndex := make(map[string]int)
	for _, field := range event.SortedFields() {
		id := strings.TrimSpace(field.FieldID)
		if id == "" {
			continue
		}
		if _, exists := reg.byID[id]; exists {
			reg.duplicates = append(reg.duplicates, id)
			continue
		}
		reg.byID[id] = field.Clone()
		reg.order = append(reg.order, id)

		if _, taken := reg.byLabel[field.Label]; !taken {
			reg.byLabel[field.Label] = id
		}
		if key := textnorm.Key(field.Label); key != "" {
			if _, taken := reg.byLabelKey[key]; !taken {
				reg.byLabelKey[key] = id
			}
		}

		name := strings.TrimSpace(field.SectionName)
		idx, ok := sectionIndex[name]
		if !ok {
			idx = len(reg.sections)
			sectionIndex[name] = idx
			reg.sections = append(reg.sections, Section{Name: name, Sort: field.SectionSort})
		}
		section := &reg.sections[idx]
		section.FieldIDs = append(section.FieldIDs, id)
		if section.Condition == "" && strings.TrimSpace(field.SectionCondition) != "" {
			section.Condition = field.SectionCondition
		}
	}

	sort.SliceStable(reg.sections, func(i, j int) bool {
		return reg.sections[i].Sort < reg.sections[j].Sort
	})
	return reg
}

// Language returns the language of the indexed snapshot.
func (r *Registry) Language() string {
	if r == nil {
		return ""
	}
	return r.language
}

// Len returns the number of indexed fields.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Field returns the schema for id. Surrounding whitespace in id is ignored.
func (r *Registry) Field(id string) (schema.FieldSchema, bool) {
	if r == nil {
		return schema.FieldSchema{}, false
	}
	field, ok := r.byID[strings.TrimSpace(id)]
	return field, ok
}

// Label returns the current label for id.
func (r *Registry) Label(id string) (string, bool) {
	field, ok := r.Field(id)
	if !ok {
		return "", false
	}
	return field.Label, true
}

// IDForLabel resolves a label key to a field id. Exact matches win; otherwise
// the normalized form (trim, case fold) is tried so keys saved with stray
// whitespace still resolve.
func (r *Registry) IDForLabel(label string) (string, bool) {
	if r == nil {
		return "", false
	}
	if id, ok := r.byLabel[label]; ok {
		return id, true
	}
	id, ok := r.byLabelKey[textnorm.Key(label)]
	return id, ok
}

// Fields returns every field in display order.
func (r *Registry) Fields() []schema.FieldSchema {
	if r == nil {
		return nil
	}
	out := make([]schema.FieldSchema, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs returns every field id in display order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Sections returns the sections in display order.
func (r *Registry) Sections() []Section {
	if r == nil {
		return nil
	}
	out := make([]Section, len(r.sections))
	for i, section := range r.sections {
		section.FieldIDs = append([]string(nil), section.FieldIDs...)
		out[i] = section
	}
	return out
}

// SectionOf returns the section name of the field id.
func (r *Registry) SectionOf(id string) string {
	field, ok := r.Field(id)
	if !ok {
		return ""
	}
	return strings.TrimSpace(field.SectionName)
}

// Duplicates lists field ids that appeared more than once in the snapshot.
func (r *Registry) Duplicates() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.duplicates...)
}

// Bind converts label-keyed answers into id-keyed answers. Keys that do not
// resolve to a field are returned separately.
func (r *Registry) Bind(labels schema.LabelAnswers) (schema.Answers, []string) {
	answers := make(schema.Answers, len(labels))
	var unbound []string

	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		id, ok := r.IDForLabel(key)
		if !ok {
			unbound = append(unbound, key)
			continue
		}
		// Exact label keys win over normalized duplicates.
		if _, exists := answers[id]; exists {
			if field, _ := r.Field(id); field.Label != key {
				continue
			}
		}
		answers[id] = labels[key]
	}
	return answers, unbound
}

// Project converts id-keyed answers into the label-keyed view for the current
// snapshot. Answers for unknown ids are omitted.
func (r *Registry) Project(answers schema.Answers) schema.LabelAnswers {
	out := make(schema.LabelAnswers, len(answers))
	for id, value := range answers {
		label, ok := r.Label(id)
		if !ok {
			continue
		}
		out[label] = value
	}
	return out
}
