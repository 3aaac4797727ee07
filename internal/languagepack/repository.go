package languagepack

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/lexipack/internal/manifest"
)

//go:generate mockgen -source=repository.go -destination=../mocks/languagepack/mock_repository.go -package=mock_languagepack

// Repository persists installed pack records.
type Repository interface {
	FindAll(ctx context.Context) ([]InstalledLanguagePack, error)
	FindByID(ctx context.Context, id string) (*InstalledLanguagePack, error)
	Save(ctx context.Context, pack *InstalledLanguagePack) error
	Delete(ctx context.Context, id string) error
	AddLookups(ctx context.Context, counts map[string]int64) error
}

// DBRepository implements Repository on the installed_packs table.
type DBRepository struct {
	db *sqlx.DB
}

func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db}
}

type installedPackRow struct {
	ID                string    `db:"id"`
	Manifest          string    `db:"manifest"`
	DictionaryPath    string    `db:"dictionary_path"`
	InstalledAt       time.Time `db:"installed_at"`
	DictionaryLookups int64     `db:"dictionary_lookups"`
}

func (row installedPackRow) toModel() (InstalledLanguagePack, error) {
	var m manifest.PackManifest
	if err := json.Unmarshal([]byte(row.Manifest), &m); err != nil {
		return InstalledLanguagePack{}, fmt.Errorf("json.Unmarshal(manifest of %s) > %w", row.ID, err)
	}
	return InstalledLanguagePack{
		ID:                row.ID,
		Manifest:          m,
		DictionaryPath:    row.DictionaryPath,
		InstalledAt:       row.InstalledAt,
		DictionaryLookups: row.DictionaryLookups,
	}, nil
}

// FindAll returns all installed packs ordered by id.
func (r *DBRepository) FindAll(ctx context.Context) ([]InstalledLanguagePack, error) {
	var rows []installedPackRow
	if err := r.db.SelectContext(ctx, &rows,
		"SELECT id, manifest, dictionary_path, installed_at, dictionary_lookups FROM installed_packs ORDER BY id"); err != nil {
		return nil, fmt.Errorf("db.SelectContext(installed_packs) > %w", err)
	}

	packs := make([]InstalledLanguagePack, 0, len(rows))
	for _, row := range rows {
		pack, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("row.toModel > %w", err)
		}
		packs = append(packs, pack)
	}
	return packs, nil
}

// FindByID returns an installed pack, or nil if it is not installed.
func (r *DBRepository) FindByID(ctx context.Context, id string) (*InstalledLanguagePack, error) {
	var row installedPackRow
	err := r.db.GetContext(ctx, &row,
		"SELECT id, manifest, dictionary_path, installed_at, dictionary_lookups FROM installed_packs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(installed_pack) > %w", err)
	}
	pack, err := row.toModel()
	if err != nil {
		return nil, fmt.Errorf("row.toModel > %w", err)
	}
	return &pack, nil
}

// Save replaces the record of pack.ID.
func (r *DBRepository) Save(ctx context.Context, pack *InstalledLanguagePack) error {
	encoded, err := json.Marshal(pack.Manifest)
	if err != nil {
		return fmt.Errorf("json.Marshal(manifest) > %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTxx > %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM installed_packs WHERE id = ?", pack.ID); err != nil {
		return fmt.Errorf("tx.ExecContext(delete installed_pack) > %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO installed_packs (id, manifest, dictionary_path, installed_at, dictionary_lookups)
		VALUES (?, ?, ?, ?, ?)`,
		pack.ID, string(encoded), pack.DictionaryPath, pack.InstalledAt, pack.DictionaryLookups); err != nil {
		return fmt.Errorf("tx.ExecContext(insert installed_pack) > %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit > %w", err)
	}
	return nil
}

func (r *DBRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM installed_packs WHERE id = ?", id); err != nil {
		return fmt.Errorf("db.ExecContext(delete installed_pack) > %w", err)
	}
	return nil
}

// AddLookups adds counts to the dictionary_lookups of each pack.
func (r *DBRepository) AddLookups(ctx context.Context, counts map[string]int64) error {
	for _, id := range sortedKeys(counts) {
		if _, err := r.db.ExecContext(ctx,
			"UPDATE installed_packs SET dictionary_lookups = dictionary_lookups + ? WHERE id = ?",
			counts[id], id); err != nil {
			return fmt.Errorf("db.ExecContext(update dictionary_lookups) > %w", err)
		}
	}
	return nil
}

func sortedKeys(counts map[string]int64) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// YAMLRepository keeps installed pack records in a single YAML file.
type YAMLRepository struct {
	path string
	mu   sync.Mutex
}

func NewYAMLRepository(path string) *YAMLRepository {
	return &YAMLRepository{path: path}
}

type installedPacksFile struct {
	Packs []InstalledLanguagePack `yaml:"packs"`
}

func (r *YAMLRepository) read() ([]InstalledLanguagePack, error) {
	file, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s) > %w", r.path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	var contents installedPacksFile
	if err := yaml.NewDecoder(file).Decode(&contents); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("yaml.NewDecoder().Decode() > %w", err)
	}
	return contents.Packs, nil
}

// write replaces the file atomically.
func (r *YAMLRepository) write(packs []InstalledLanguagePack) error {
	sort.Slice(packs, func(i, j int) bool {
		return packs[i].ID < packs[j].ID
	})
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("os.MkdirAll > %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("os.CreateTemp > %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	encoder := yaml.NewEncoder(tmp)
	if err := encoder.Encode(installedPacksFile{Packs: packs}); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("yaml.NewEncoder().Encode() > %w", err)
	}
	if err := encoder.Close(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encoder.Close > %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tmp.Close > %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("os.Rename(%s) > %w", r.path, err)
	}
	return nil
}

func (r *YAMLRepository) FindAll(_ context.Context) ([]InstalledLanguagePack, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	packs, err := r.read()
	if err != nil {
		return nil, err
	}
	sort.Slice(packs, func(i, j int) bool {
		return packs[i].ID < packs[j].ID
	})
	return packs, nil
}

func (r *YAMLRepository) FindByID(_ context.Context, id string) (*InstalledLanguagePack, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	packs, err := r.read()
	if err != nil {
		return nil, err
	}
	for _, pack := range packs {
		if pack.ID == id {
			return &pack, nil
		}
	}
	return nil, nil
}

func (r *YAMLRepository) Save(_ context.Context, pack *InstalledLanguagePack) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	packs, err := r.read()
	if err != nil {
		return err
	}
	replaced := false
	for i := range packs {
		if packs[i].ID == pack.ID {
			packs[i] = *pack
			replaced = true
		}
	}
	if !replaced {
		packs = append(packs, *pack)
	}
	return r.write(packs)
}

func (r *YAMLRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	packs, err := r.read()
	if err != nil {
		return err
	}
	kept := packs[:0]
	for _, pack := range packs {
		if pack.ID != id {
			kept = append(kept, pack)
		}
	}
	return r.write(kept)
}

func (r *YAMLRepository) AddLookups(_ context.Context, counts map[string]int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	packs, err := r.read()
	if err != nil {
		return err
	}
	for i := range packs {
		packs[i].DictionaryLookups += counts[packs[i].ID]
	}
	return r.write(packs)
}
