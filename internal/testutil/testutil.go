// Package testutil provides shared test helpers for config files and pack fixtures.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/lexipack/internal/dictionary"
	"github.com/at-ishikawa/lexipack/internal/packbuild"
)

// SetupTestConfig writes a config file whose storage lives under tmpDir and
// whose registry is catalogPath. Returns the path to the config file.
func SetupTestConfig(t *testing.T, tmpDir, catalogPath string) string {
	t.Helper()

	configContent := fmt.Sprintf(`log:
  level: error
storage:
  packs_directory: %s
  staging_directory: %s
  cache_directory: %s
  state_directory: %s
registry:
  file: %s
download:
  max_retries: 1
  initial_backoff: 1ms
  max_backoff: 1ms
profile:
  default_native_language: es
database:
  path: %s
`,
		filepath.Join(tmpDir, "packs"),
		filepath.Join(tmpDir, "staging"),
		filepath.Join(tmpDir, "cache"),
		filepath.Join(tmpDir, "state"),
		catalogPath,
		filepath.Join(tmpDir, "state", "state.db"),
	)

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}

// HouseEntries is a small English dictionary with Spanish translations.
func HouseEntries() []dictionary.Entry {
	return []dictionary.Entry{
		{
			Lemma:         "house",
			Headword:      "house",
			Language:      "en",
			Pronunciation: "/haʊs/",
			Frequency:     100,
			Definitions: []dictionary.Definition{
				{PartOfSpeech: "noun", Definition: "A building for people to live in.", Example: "They bought a house.", Synonyms: []string{"home", "dwelling"}},
				{PartOfSpeech: "verb", Definition: "To provide with shelter.", Synonyms: []string{"shelter"}},
			},
			Translations: []dictionary.Translation{
				{Word: "casa", Language: "es", Confidence: 0.95},
				{Word: "hogar", Language: "es", Confidence: 0.7},
			},
		},
		{
			Lemma:        "horse",
			Headword:     "horse",
			Language:     "en",
			Frequency:    40,
			Definitions:  []dictionary.Definition{{PartOfSpeech: "noun", Definition: "A large animal people ride."}},
			Translations: []dictionary.Translation{{Word: "caballo", Language: "es", Confidence: 0.9}},
		},
	}
}

// CasaEntries is a small Spanish dictionary with English translations.
func CasaEntries() []dictionary.Entry {
	return []dictionary.Entry{
		{
			Lemma:        "casa",
			Headword:     "casa",
			Language:     "es",
			Definitions:  []dictionary.Definition{{PartOfSpeech: "noun", Definition: "Edificio para habitar."}},
			Translations: []dictionary.Translation{{Word: "house", Language: "en", Confidence: 0.95}},
		},
	}
}

// BuildTestCatalog builds the en-es and es-en companion packs plus a
// standalone en-fr pack into dir. Returns the path to catalog.json.
func BuildTestCatalog(t *testing.T, dir string) string {
	t.Helper()
	ctx := context.Background()

	specs := []packbuild.Options{
		{ID: "en-es", Name: "English → Spanish", SourceLanguage: "en", TargetLanguage: "es", Entries: HouseEntries()},
		{ID: "es-en", Name: "Spanish → English", SourceLanguage: "es", TargetLanguage: "en", Entries: CasaEntries()},
		{ID: "en-fr", Name: "English → French", SourceLanguage: "en", TargetLanguage: "fr", Entries: []dictionary.Entry{{
			Lemma:        "house",
			Language:     "en",
			Translations: []dictionary.Translation{{Word: "maison", Language: "fr", Confidence: 0.9}},
		}}},
	}
	for _, opts := range specs {
		opts.OutputDirectory = dir
		_, err := packbuild.Build(ctx, opts)
		require.NoError(t, err)
	}

	catalog, err := packbuild.GenerateCatalog(dir, "", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, packbuild.WriteCatalog(path, catalog))
	return path
}
