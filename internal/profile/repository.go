package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
)

//go:generate mockgen -source=repository.go -destination=../mocks/profile/mock_repository.go -package=mock_profile

// Repository stores a single user's profile.
type Repository interface {
	// Load returns nil when no profile was saved yet.
	Load(ctx context.Context) (*Profile, error)
	Save(ctx context.Context, profile *Profile) error
}

// YAMLRepository keeps the profile in a YAML file.
type YAMLRepository struct {
	path string
	mu   sync.Mutex
}

func NewYAMLRepository(path string) *YAMLRepository {
	return &YAMLRepository{path: path}
}

func (r *YAMLRepository) Load(_ context.Context) (*Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

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

	var profile Profile
	if err := yaml.NewDecoder(file).Decode(&profile); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("yaml.NewDecoder().Decode() > %w", err)
	}
	return &profile, nil
}

func (r *YAMLRepository) Save(_ context.Context, profile *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("os.MkdirAll > %w", err)
	}
	data, err := yaml.Marshal(profile)
	if err != nil {
		return fmt.Errorf("yaml.Marshal > %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("os.WriteFile(%s) > %w", tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("os.Rename(%s) > %w", r.path, err)
	}
	return nil
}

// DBRepository stores the profile of one user in the user_profiles table.
type DBRepository struct {
	db     *sqlx.DB
	userID string
}

func NewDBRepository(db *sqlx.DB, userID string) *DBRepository {
	return &DBRepository{db: db, userID: userID}
}

type profileRow struct {
	UserID                      string    `db:"user_id"`
	NativeLanguage              string    `db:"native_language"`
	TargetLanguages             string    `db:"target_languages"`
	PreferredDefinitionLanguage string    `db:"preferred_definition_language"`
	ProficiencyLevels           string    `db:"proficiency_levels"`
	ShowPronunciation           bool      `db:"show_pronunciation"`
	ShowExamples                bool      `db:"show_examples"`
	ShowEtymology               bool      `db:"show_etymology"`
	TotalLookups                int64     `db:"total_lookups"`
	LanguageLookupCounts        string    `db:"language_lookup_counts"`
	UpdatedAt                   time.Time `db:"updated_at"`
}

func (row profileRow) toModel() (*Profile, error) {
	profile := Profile{
		UserID:                      row.UserID,
		NativeLanguage:              row.NativeLanguage,
		PreferredDefinitionLanguage: row.PreferredDefinitionLanguage,
		ShowPronunciation:           row.ShowPronunciation,
		ShowExamples:                row.ShowExamples,
		ShowEtymology:               row.ShowEtymology,
		TotalLookups:                row.TotalLookups,
		UpdatedAt:                   row.UpdatedAt,
	}
	if err := unmarshalColumn(row.TargetLanguages, &profile.TargetLanguages); err != nil {
		return nil, fmt.Errorf("target_languages > %w", err)
	}
	if err := unmarshalColumn(row.ProficiencyLevels, &profile.ProficiencyLevels); err != nil {
		return nil, fmt.Errorf("proficiency_levels > %w", err)
	}
	if err := unmarshalColumn(row.LanguageLookupCounts, &profile.LanguageLookupCounts); err != nil {
		return nil, fmt.Errorf("language_lookup_counts > %w", err)
	}
	return &profile, nil
}

func unmarshalColumn(value string, v any) error {
	if value == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(value), v); err != nil {
		return fmt.Errorf("json.Unmarshal > %w", err)
	}
	return nil
}

func marshalColumn(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("json.Marshal > %w", err)
	}
	return string(data), nil
}

func (r *DBRepository) Load(ctx context.Context) (*Profile, error) {
	var row profileRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM user_profiles WHERE user_id = ?", r.userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db.GetContext(user_profile) > %w", err)
	}
	profile, err := row.toModel()
	if err != nil {
		return nil, fmt.Errorf("row.toModel > %w", err)
	}
	return profile, nil
}

func (r *DBRepository) Save(ctx context.Context, profile *Profile) error {
	targets, err := marshalColumn(profile.TargetLanguages)
	if err != nil {
		return err
	}
	levels, err := marshalColumn(profile.ProficiencyLevels)
	if err != nil {
		return err
	}
	counts, err := marshalColumn(profile.LanguageLookupCounts)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTxx > %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_profiles WHERE user_id = ?", r.userID); err != nil {
		return fmt.Errorf("tx.ExecContext(delete user_profile) > %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, native_language, target_languages, preferred_definition_language,
			proficiency_levels, show_pronunciation, show_examples, show_etymology, total_lookups,
			language_lookup_counts, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.userID, profile.NativeLanguage, targets, profile.PreferredDefinitionLanguage,
		levels, profile.ShowPronunciation, profile.ShowExamples, profile.ShowEtymology, profile.TotalLookups,
		counts, profile.UpdatedAt); err != nil {
		return fmt.Errorf("tx.ExecContext(insert user_profile) > %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit > %w", err)
	}
	return nil
}
