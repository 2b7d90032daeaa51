// Package migrate carries entered answers across schema snapshots.
//
// Fields are matched by field id, never by label. Label-keyed answers (the
// legacy shape) are moved to the new label of the same field; answers whose
// field disappeared are dropped and reported.
package migrate

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tsxcorp/go-regform/internal/logging"
	"github.com/tsxcorp/go-regform/pkg/schema"
	"github.com/tsxcorp/go-regform/pkg/textnorm"
)

// Move records an answer that changed key.
type Move struct {
	FieldID string `json:"field_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// Drop records an answer whose field is absent from the new snapshot.
type Drop struct {
	FieldID string       `json:"field_id"`
	Label   string       `json:"label,omitempty"`
	Value   schema.Value `json:"value"`
}

// Report describes what a migration did.
type Report struct {
	Moved   []Move `json:"moved,omitempty"`
	Dropped []Drop `json:"dropped,omitempty"`
	// Unbound lists answer keys that matched no field of the old snapshot.
	// They are carried over unchanged unless a moved answer takes the key.
	Unbound []string `json:"unbound,omitempty"`
	// Collisions lists answers that lost their key to another answer.
	Collisions []Collision `json:"collisions,omitempty"`
}

// Collision records an answer displaced because two answers ended up under
// the same label. Kept names the field whose answer holds the label. FieldID
// is the field of the displaced answer, empty when it was an unbound key.
type Collision struct {
	Label   string       `json:"label"`
	Kept    string       `json:"kept"`
	FieldID string       `json:"field_id,omitempty"`
	From    string       `json:"from"`
	Value   schema.Value `json:"value"`
}

// Lossy reports whether any answer was dropped or displaced.
func (r Report) Lossy() bool {
	return len(r.Dropped) > 0 || len(r.Collisions) > 0
}

// Option configures a migration.
type Option func(*config)

type config struct {
	logger logrus.FieldLogger
}

// WithLogger routes drop warnings.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func newConfig(options []Option) config {
	var cfg config
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.logger = logging.Or(cfg.logger)
	return cfg
}

// Migrate rekeys label-keyed answers from the oldFields snapshot to the
// newFields snapshot. The input map is not modified.
//
// For each old field with an answer: if the field id still exists and its
// label changed, the value moves to the new label; if the id is gone, the
// answer is dropped with a warning. When two answers land on the same new
// label, the first field keeps it and the other is reported in
// Report.Collisions with a warning. Unanswered fields and fields new to the
// snapshot are left unset. Calling Migrate again on its own output with the
// same snapshots is a no-op.
func Migrate(oldFields, newFields []schema.FieldSchema, answers schema.LabelAnswers, options ...Option) (schema.LabelAnswers, Report) {
	cfg := newConfig(options)
	out := answers.Clone()
	if out == nil {
		out = schema.LabelAnswers{}
	}
	var report Report

	newByID := indexByID(newFields)
	keys := keyIndex(answers)
	claimed := make(map[string]struct{})

	type pending struct {
		id    string
		from  string
		to    string
		value schema.Value
	}
	var moves []pending
	// owners maps output keys to the field whose answer sits there.
	owners := make(map[string]string)

	seen := make(map[string]struct{}, len(oldFields))
	for _, old := range oldFields {
		id := strings.TrimSpace(old.FieldID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		key, answered := keys.lookup(old.Label)
		if !answered {
			continue
		}
		if _, taken := claimed[key]; taken {
			continue
		}
		claimed[key] = struct{}{}

		next, exists := newByID[id]
		if !exists {
			report.Dropped = append(report.Dropped, Drop{FieldID: id, Label: key, Value: answers[key]})
			delete(out, key)
			cfg.logger.WithFields(logrus.Fields{"field_id": id, "label": key}).
				Warn("migrate: field removed from schema, dropping answer")
			continue
		}
		if next.Label == key {
			owners[key] = id
			continue
		}
		moves = append(moves, pending{id: id, from: key, to: next.Label, value: answers[key]})
		report.Moved = append(report.Moved, Move{FieldID: id, From: key, To: next.Label})
		delete(out, key)
	}

	// A key already held by a field's answer stays with it and the incoming
	// answer is displaced. An unbound key yields to the moved answer.
	for _, move := range moves {
		if owner, held := owners[move.to]; held {
			report.Collisions = append(report.Collisions, Collision{
				Label: move.to, Kept: owner, FieldID: move.id, From: move.from, Value: move.value,
			})
			cfg.logger.WithFields(logrus.Fields{"field_id": move.id, "from": move.from, "to": move.to, "kept": owner}).
				Warn("migrate: label already taken, dropping answer")
			continue
		}
		if existing, exists := out[move.to]; exists {
			report.Collisions = append(report.Collisions, Collision{
				Label: move.to, Kept: move.id, From: move.to, Value: existing,
			})
			cfg.logger.WithFields(logrus.Fields{"field_id": move.id, "from": move.from, "to": move.to}).
				Warn("migrate: moved answer replaces unbound key")
		}
		out[move.to] = move.value
		owners[move.to] = move.id
	}

	for key := range answers {
		if _, ok := claimed[key]; !ok {
			report.Unbound = append(report.Unbound, key)
		}
	}
	sort.Strings(report.Unbound)
	return out, report
}

// MigrateAnswers carries id-keyed answers to a new snapshot. Ids are stable,
// so the only change is dropping answers for fields that no longer exist.
func MigrateAnswers(newFields []schema.FieldSchema, answers schema.Answers, options ...Option) (schema.Answers, Report) {
	cfg := newConfig(options)
	newByID := indexByID(newFields)
	out := make(schema.Answers, len(answers))
	var report Report

	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if _, ok := newByID[strings.TrimSpace(id)]; ok {
			out[id] = answers[id]
			continue
		}
		report.Dropped = append(report.Dropped, Drop{FieldID: id, Value: answers[id]})
		cfg.logger.WithField("field_id", id).Warn("migrate: field removed from schema, dropping answer")
	}
	return out, report
}

func indexByID(fields []schema.FieldSchema) map[string]schema.FieldSchema {
	out := make(map[string]schema.FieldSchema, len(fields))
	for _, field := range fields {
		id := strings.TrimSpace(field.FieldID)
		if id == "" {
			continue
		}
		if _, exists := out[id]; !exists {
			out[id] = field
		}
	}
	return out
}

// answerKeys finds the stored key for a label: the exact key first, then a
// key equal under textnorm.Key (stray whitespace or case in legacy data).
type answerKeys struct {
	exact      map[string]struct{}
	normalized map[string]string
}

func keyIndex(answers schema.LabelAnswers) answerKeys {
	idx := answerKeys{
		exact:      make(map[string]struct{}, len(answers)),
		normalized: make(map[string]string, len(answers)),
	}
	keys := make([]string, 0, len(answers))
	for key := range answers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		idx.exact[key] = struct{}{}
		if norm := textnorm.Key(key); norm != "" {
			if _, taken := idx.normalized[norm]; !taken {
				idx.normalized[norm] = key
			}
		}
	}
	return idx
}

func (idx answerKeys) lookup(label string) (string, bool) {
	if _, ok := idx.exact[label]; ok {
		return label, true
	}
	key, ok := idx.normalized[textnorm.Key(label)]
	return key, ok
}
