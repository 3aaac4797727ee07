package dictionary

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"

	// FormatVersion is written to the metadata table of every index.
	FormatVersion = "1"
)

// ErrInvalidIndex is returned when a file is not a usable dictionary index.
var ErrInvalidIndex = errors.New("invalid dictionary index")

const indexSchema = `
CREATE TABLE metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE entries (
	id INTEGER PRIMARY KEY,
	lemma TEXT NOT NULL,
	headword TEXT NOT NULL,
	language TEXT NOT NULL,
	definitions TEXT NOT NULL DEFAULT '[]',
	translations TEXT NOT NULL DEFAULT '[]',
	frequency INTEGER,
	pronunciation TEXT
);
CREATE INDEX idx_entries_lemma ON entries (lemma COLLATE NOCASE);
CREATE INDEX idx_entries_lemma_length ON entries (length(lemma));
`

var requiredColumns = []string{"id", "lemma", "headword", "language", "definitions", "translations", "frequency", "pronunciation"}

type entryRow struct {
	ID            int64          `db:"id"`
	Lemma         string         `db:"lemma"`
	Headword      string         `db:"headword"`
	Language      string         `db:"language"`
	Definitions   string         `db:"definitions"`
	Translations  string         `db:"translations"`
	Frequency     sql.NullInt64  `db:"frequency"`
	Pronunciation sql.NullString `db:"pronunciation"`
}

func (row entryRow) toEntry(packID string) (Entry, error) {
	entry := Entry{
		ID:            row.ID,
		PackID:        packID,
		Lemma:         row.Lemma,
		Headword:      row.Headword,
		Language:      row.Language,
		Frequency:     row.Frequency.Int64,
		Pronunciation: row.Pronunciation.String,
	}
	if row.Definitions != "" {
		if err := json.Unmarshal([]byte(row.Definitions), &entry.Definitions); err != nil {
			return Entry{}, fmt.Errorf("json.Unmarshal(definitions of %q) > %w", row.Lemma, err)
		}
	}
	if row.Translations != "" {
		if err := json.Unmarshal([]byte(row.Translations), &entry.Translations); err != nil {
			return Entry{}, fmt.Errorf("json.Unmarshal(translations of %q) > %w", row.Lemma, err)
		}
	}
	return entry, nil
}

// CreateIndex writes a new index file at path containing entries. An existing
// file at path is replaced. Lemmas are stored normalized.
func CreateIndex(ctx context.Context, path string, metadata Metadata, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("os.MkdirAll(%s) > %w", filepath.Dir(path), err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("os.Remove(%s) > %w", path, err)
	}

	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return fmt.Errorf("sqlx.Open(%s) > %w", path, err)
	}
	defer func() {
		_ = db.Close()
	}()

	if _, err := db.ExecContext(ctx, indexSchema); err != nil {
		return fmt.Errorf("db.ExecContext(schema) > %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTxx > %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if metadata.FormatVersion == "" {
		metadata.FormatVersion = FormatVersion
	}
	for key, value := range map[string]string{
		"pack_id":         metadata.PackID,
		"source_language": metadata.SourceLanguage,
		"target_language": metadata.TargetLanguage,
		"format_version":  metadata.FormatVersion,
	} {
		if _, err := tx.ExecContext(ctx, "INSERT INTO metadata (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("tx.ExecContext(metadata %s) > %w", key, err)
		}
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO entries
		(lemma, headword, language, definitions, translations, frequency, pronunciation)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("tx.PreparexContext(entries) > %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, entry := range entries {
		lemma := Normalize(entry.Lemma)
		if lemma == "" {
			lemma = Normalize(entry.Headword)
		}
		if lemma == "" {
			continue
		}
		headword := entry.Headword
		if headword == "" {
			headword = entry.Lemma
		}
		language := entry.Language
		if language == "" {
			language = metadata.SourceLanguage
		}

		definitions, err := json.Marshal(nonNil(entry.Definitions))
		if err != nil {
			return fmt.Errorf("json.Marshal(definitions of %q) > %w", entry.Lemma, err)
		}
		translations, err := json.Marshal(nonNil(entry.Translations))
		if err != nil {
			return fmt.Errorf("json.Marshal(translations of %q) > %w", entry.Lemma, err)
		}

		frequency := sql.NullInt64{Int64: entry.Frequency, Valid: entry.Frequency > 0}
		pronunciation := sql.NullString{String: entry.Pronunciation, Valid: entry.Pronunciation != ""}
		if _, err := stmt.ExecContext(ctx, lemma, headword, language, string(definitions), string(translations), frequency, pronunciation); err != nil {
			return fmt.Errorf("stmt.ExecContext(entry %q) > %w", entry.Lemma, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit > %w", err)
	}
	return nil
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}

// openIndex opens an index file read-only. The file must already exist.
func openIndex(ctx context.Context, path string) (*sqlx.DB, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("os.Stat(%s) > %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidIndex, path)
	}

	db, err := sqlx.Open(driverName, fmt.Sprintf("file:%s?mode=ro", filepath.ToSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open(%s) > %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.PingContext(%s) > %w", path, err)
	}
	return db, nil
}

// VerifyIndex checks that path is an index with the expected layout and, when
// expectedSourceLanguage is not empty, that it was built for that language.
func VerifyIndex(ctx context.Context, path string, expectedSourceLanguage string) (Metadata, error) {
	db, err := openIndex(ctx, path)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}
	defer func() {
		_ = db.Close()
	}()
	return verifyIndex(ctx, db, expectedSourceLanguage)
}

func verifyIndex(ctx context.Context, db *sqlx.DB, expectedSourceLanguage string) (Metadata, error) {
	var columns []struct {
		CID          int            `db:"cid"`
		Name         string         `db:"name"`
		Type         string         `db:"type"`
		NotNull      int            `db:"notnull"`
		DefaultValue sql.NullString `db:"dflt_value"`
		PrimaryKey   int            `db:"pk"`
	}
	if err := db.SelectContext(ctx, &columns, "PRAGMA table_info(entries)"); err != nil {
		return Metadata{}, fmt.Errorf("%w: table_info(entries) > %w", ErrInvalidIndex, err)
	}
	if len(columns) == 0 {
		return Metadata{}, fmt.Errorf("%w: entries table is missing", ErrInvalidIndex)
	}
	present := make(map[string]bool, len(columns))
	for _, column := range columns {
		present[column.Name] = true
	}
	for _, name := range requiredColumns {
		if !present[name] {
			return Metadata{}, fmt.Errorf("%w: entries.%s column is missing", ErrInvalidIndex, name)
		}
	}

	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := db.SelectContext(ctx, &rows, "SELECT key, value FROM metadata"); err != nil {
		return Metadata{}, fmt.Errorf("%w: metadata > %w", ErrInvalidIndex, err)
	}
	var metadata Metadata
	for _, row := range rows {
		switch row.Key {
		case "pack_id":
			metadata.PackID = row.Value
		case "source_language":
			metadata.SourceLanguage = row.Value
		case "target_language":
			metadata.TargetLanguage = row.Value
		case "format_version":
			metadata.FormatVersion = row.Value
		}
	}
	if metadata.SourceLanguage == "" {
		return Metadata{}, fmt.Errorf("%w: metadata.source_language is missing", ErrInvalidIndex)
	}
	if expectedSourceLanguage != "" && metadata.SourceLanguage != expectedSourceLanguage {
		return Metadata{}, fmt.Errorf("%w: source language is %q, expected %q", ErrInvalidIndex, metadata.SourceLanguage, expectedSourceLanguage)
	}
	return metadata, nil
}
