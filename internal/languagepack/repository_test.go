package languagepack

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/lexipack/internal/manifest"
)

var installedPackColumns = []string{"id", "manifest", "dictionary_path", "installed_at", "dictionary_lookups"}

func testInstalledPack(id, source, target string) InstalledLanguagePack {
	return InstalledLanguagePack{
		ID: id,
		Manifest: manifest.PackManifest{
			ID:             id,
			Name:           source + " to " + target,
			SourceLanguage: source,
			TargetLanguage: target,
			Dictionary: manifest.DictionaryAsset{
				Filename:  id + ".sqlite.zip",
				URL:       "https://packs.example.com/" + id + ".sqlite.zip",
				Checksum:  "0000000000000000000000000000000000000000000000000000000000000000",
				Entries:   100,
				SizeBytes: 1000,
			},
			TotalSize: 4000,
			Version:   "1",
		},
		DictionaryPath: "/packs/" + id + ".sqlite",
		InstalledAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func manifestJSON(t *testing.T, pack InstalledLanguagePack) string {
	t.Helper()
	encoded, err := json.Marshal(pack.Manifest)
	require.NoError(t, err)
	return string(encoded)
}

func TestDBRepository_FindAll(t *testing.T) {
	enEs := testInstalledPack("en-es", "en", "es")
	esEn := testInstalledPack("es-en", "es", "en")

	tests := []struct {
		name      string
		setupMock func(t *testing.T, mock sqlmock.Sqlmock)
		want      []InstalledLanguagePack
		wantErr   bool
	}{
		{
			name: "returns all packs",
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(installedPackColumns).
					AddRow(enEs.ID, manifestJSON(t, enEs), enEs.DictionaryPath, enEs.InstalledAt, 3).
					AddRow(esEn.ID, manifestJSON(t, esEn), esEn.DictionaryPath, esEn.InstalledAt, 0)
				mock.ExpectQuery("SELECT id, manifest, dictionary_path, installed_at, dictionary_lookups FROM installed_packs ORDER BY id").
					WillReturnRows(rows)
			},
			want: func() []InstalledLanguagePack {
				first := enEs
				first.DictionaryLookups = 3
				return []InstalledLanguagePack{first, esEn}
			}(),
		},
		{
			name: "broken manifest",
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(installedPackColumns).
					AddRow("en-es", "{", "/packs/en-es.sqlite", time.Now(), 0)
				mock.ExpectQuery("SELECT .* FROM installed_packs").WillReturnRows(rows)
			},
			wantErr: true,
		},
		{
			name: "db error",
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .* FROM installed_packs").
					WillReturnError(fmt.Errorf("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			repo := NewDBRepository(sqlx.NewDb(db, "mysql"))
			tt.setupMock(t, mock)

			got, err := repo.FindAll(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_FindByID(t *testing.T) {
	enEs := testInstalledPack("en-es", "en", "es")

	tests := []struct {
		name      string
		setupMock func(t *testing.T, mock sqlmock.Sqlmock)
		want      *InstalledLanguagePack
		wantErr   bool
	}{
		{
			name: "found",
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(installedPackColumns).
					AddRow(enEs.ID, manifestJSON(t, enEs), enEs.DictionaryPath, enEs.InstalledAt, 0)
				mock.ExpectQuery("SELECT .* FROM installed_packs WHERE id = \\?").
					WithArgs("en-es").
					WillReturnRows(rows)
			},
			want: &enEs,
		},
		{
			name: "not installed",
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .* FROM installed_packs WHERE id = \\?").
					WithArgs("en-es").
					WillReturnRows(sqlmock.NewRows(installedPackColumns))
			},
			want: nil,
		},
		{
			name: "db error",
			setupMock: func(t *testing.T, mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .* FROM installed_packs WHERE id = \\?").
					WithArgs("en-es").
					WillReturnError(fmt.Errorf("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			repo := NewDBRepository(sqlx.NewDb(db, "mysql"))
			tt.setupMock(t, mock)

			got, err := repo.FindByID(context.Background(), "en-es")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_Save(t *testing.T) {
	pack := testInstalledPack("en-es", "en", "es")

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   bool
	}{
		{
			name: "replaces the record",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM installed_packs WHERE id = \\?").
					WithArgs("en-es").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("INSERT INTO installed_packs").
					WithArgs("en-es", sqlmock.AnyArg(), pack.DictionaryPath, pack.InstalledAt, int64(0)).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM installed_packs WHERE id = \\?").
					WithArgs("en-es").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("INSERT INTO installed_packs").
					WillReturnError(fmt.Errorf("disk full"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			repo := NewDBRepository(sqlx.NewDb(db, "mysql"))
			tt.setupMock(mock)

			err = repo.Save(context.Background(), &pack)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_AddLookups(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE installed_packs SET dictionary_lookups = dictionary_lookups \\+ \\? WHERE id = \\?").
		WithArgs(int64(2), "en-es").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE installed_packs SET dictionary_lookups = dictionary_lookups \\+ \\? WHERE id = \\?").
		WithArgs(int64(5), "es-en").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewDBRepository(sqlx.NewDb(db, "mysql"))
	require.NoError(t, repo.AddLookups(context.Background(), map[string]int64{"es-en": 5, "en-es": 2}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM installed_packs WHERE id = \\?").
		WithArgs("en-es").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewDBRepository(sqlx.NewDb(db, "mysql"))
	require.NoError(t, repo.Delete(context.Background(), "en-es"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestYAMLRepository(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "installed.yml")
	repo := NewYAMLRepository(path)

	got, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	found, err := repo.FindByID(ctx, "en-es")
	require.NoError(t, err)
	assert.Nil(t, found)

	esEn := testInstalledPack("es-en", "es", "en")
	enEs := testInstalledPack("en-es", "en", "es")
	require.NoError(t, repo.Save(ctx, &esEn))
	require.NoError(t, repo.Save(ctx, &enEs))

	got, err = repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []InstalledLanguagePack{enEs, esEn}, got)

	require.NoError(t, repo.AddLookups(ctx, map[string]int64{"en-es": 4, "unknown": 1}))
	found, err = repo.FindByID(ctx, "en-es")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(4), found.DictionaryLookups)

	enEs.DictionaryPath = "/elsewhere/en-es.sqlite"
	require.NoError(t, repo.Save(ctx, &enEs))
	found, err = repo.FindByID(ctx, "en-es")
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/en-es.sqlite", found.DictionaryPath)

	require.NoError(t, repo.Delete(ctx, "en-es"))
	got, err = repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []InstalledLanguagePack{esEn}, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestYAMLRepository_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "installed.yml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	got, err := NewYAMLRepository(path).FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}
