package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tsxcorp/go-regform/pkg/translate"
)

const createOverridesTable = `
CREATE TABLE IF NOT EXISTS translation_overrides (
	lang        TEXT NOT NULL,
	source      TEXT NOT NULL,
	value       TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	PRIMARY KEY (lang, source)
)`

// SQLite keeps overrides in a translation_overrides table.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at dsn, e.g.
// "file:overrides.db" or ":memory:".
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps an already opened database and ensures the table exists.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	s := &SQLite{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createOverridesTable); err != nil {
		return fmt.Errorf("store: create overrides table: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load implements translate.OverrideStore.
func (s *SQLite) Load(ctx context.Context) (translate.Overrides, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT lang, source, value FROM translation_overrides`)
	if err != nil {
		return nil, fmt.Errorf("store: query overrides: %w", err)
	}
	defer rows.Close()

	overrides := translate.Overrides{}
	for rows.Next() {
		var lang, source, value string
		if err := rows.Scan(&lang, &source, &value); err != nil {
			return nil, fmt.Errorf("store: scan override: %w", err)
		}
		overrides.Set(source, lang, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate overrides: %w", err)
	}
	return overrides, nil
}

// Save implements translate.OverrideStore. In one transaction it upserts
// new and changed entries and deletes rows absent from overrides; unchanged
// rows keep their updated_at.
func (s *SQLite) Save(ctx context.Context, overrides translate.Overrides) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stored, err := storedValues(ctx, tx)
	if err != nil {
		return err
	}

	upsert, err := tx.PrepareContext(ctx, `
INSERT INTO translation_overrides (lang, source, value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (lang, source) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("store: prepare upsert: %w", err)
	}
	defer upsert.Close()

	stamp := s.now().UTC().Format(time.RFC3339)
	for _, entry := range overrides.Entries() {
		k := rowKey{lang: entry.Lang, source: entry.Text}
		value, exists := stored[k]
		delete(stored, k)
		if exists && value == entry.Value {
			continue
		}
		if _, err = upsert.ExecContext(ctx, entry.Lang, entry.Text, entry.Value, stamp); err != nil {
			return fmt.Errorf("store: upsert override: %w", err)
		}
	}

	for k := range stored {
		if _, err = tx.ExecContext(ctx, `DELETE FROM translation_overrides WHERE lang = ? AND source = ?`, k.lang, k.source); err != nil {
			return fmt.Errorf("store: delete override: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

type rowKey struct {
	lang   string
	source string
}

func storedValues(ctx context.Context, tx *sql.Tx) (map[rowKey]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT lang, source, value FROM translation_overrides`)
	if err != nil {
		return nil, fmt.Errorf("store: query overrides: %w", err)
	}
	defer rows.Close()

	out := make(map[rowKey]string)
	for rows.Next() {
		var k rowKey
		var value string
		if err := rows.Scan(&k.lang, &k.source, &value); err != nil {
			return nil, fmt.Errorf("store: scan override: %w", err)
		}
		out[k] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate overrides: %w", err)
	}
	return out, nil
}
