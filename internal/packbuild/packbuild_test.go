package packbuild

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ianlewis/go-dictzip"
	"github.com/ianlewis/go-stardict/dict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/lexipack/internal/dictionary"
	"github.com/at-ishikawa/lexipack/internal/manifest"
)

type article struct {
	word string
	text string
}

// writeStarDict writes a sametypesequence=m dictionary with 32 bit offsets.
// The .dict data is dictzip compressed when compressed is true.
func writeStarDict(t *testing.T, dir, name string, articles []article, compressed bool) string {
	t.Helper()
	var idxData, dictData []byte
	for _, a := range articles {
		idxData = append(idxData, []byte(a.word)...)
		idxData = append(idxData, 0)
		idxData = binary.BigEndian.AppendUint32(idxData, uint32(len(dictData)))
		idxData = binary.BigEndian.AppendUint32(idxData, uint32(len(a.text)))
		dictData = append(dictData, []byte(a.text)...)
	}
	base := filepath.Join(dir, name)
	ifo := "StarDict's dict ifo file\nversion=2.4.2\nbookname=Test dictionary\nwordcount=3\nsametypesequence=m\n"
	require.NoError(t, os.WriteFile(base+".ifo", []byte(ifo), 0644))
	require.NoError(t, os.WriteFile(base+".idx", idxData, 0644))
	if !compressed {
		require.NoError(t, os.WriteFile(base+".dict", dictData, 0644))
		return base + ".ifo"
	}

	f, err := os.Create(base + ".dict.dz")
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()
	w, err := dictzip.NewWriter(f)
	require.NoError(t, err)
	_, err = w.Write(dictData)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return base + ".ifo"
}

func translationWords(translations []dictionary.Translation) []string {
	var words []string
	for _, translation := range translations {
		words = append(words, translation.Word)
	}
	return words
}

func TestParseArticle(t *testing.T) {
	tests := []struct {
		name              string
		headword          string
		text              string
		wantDefinitions   []dictionary.Definition
		wantTranslations  []string
		wantPronunciation string
	}{
		{
			name:     "abbreviated parts of speech with numbered senses",
			headword: "house",
			text:     "house\n/haʊs/\nn.\n1. casa, hogar\ne.g. la casa grande\nv.\nalojar; albergar\n",
			wantDefinitions: []dictionary.Definition{
				{PartOfSpeech: "n", Definition: "casa, hogar", Example: "la casa grande"},
				{PartOfSpeech: "v", Definition: "alojar; albergar"},
			},
			wantTranslations:  []string{"casa", "hogar", "alojar", "albergar"},
			wantPronunciation: "/haʊs/",
		},
		{
			name:     "parenthesized markers and long phrases",
			headword: "run",
			text:     "(verb) correr\n(noun) carrera, a long distance race with many runners\n[rʌn]",
			wantDefinitions: []dictionary.Definition{
				{PartOfSpeech: "verb", Definition: "correr"},
				{PartOfSpeech: "noun", Definition: "carrera, a long distance race with many runners"},
			},
			wantTranslations:  []string{"correr", "carrera"},
			wantPronunciation: "[rʌn]",
		},
		{
			name:     "marker on its own line",
			headword: "quickly",
			text:     "Adverb:\nrápidamente",
			wantDefinitions: []dictionary.Definition{
				{PartOfSpeech: "adverb", Definition: "rápidamente"},
			},
			wantTranslations: []string{"rápidamente"},
		},
		{
			name:     "headword is not its own translation",
			headword: "taxi",
			text:     "taxi, cab",
			wantDefinitions: []dictionary.Definition{
				{Definition: "taxi, cab"},
			},
			wantTranslations: []string{"cab"},
		},
		{
			name:     "empty article",
			headword: "empty",
			text:     "\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseArticle(tt.headword, tt.text, "es")
			assert.Equal(t, tt.headword, got.Lemma)
			assert.Equal(t, tt.wantDefinitions, got.Definitions)
			assert.Equal(t, tt.wantTranslations, translationWords(got.Translations))
			assert.Equal(t, tt.wantPronunciation, got.Pronunciation)
			for i, translation := range got.Translations {
				assert.Equal(t, "es", translation.Language)
				assert.InDelta(t, max(0.9-0.05*float64(i), 0.5), translation.Confidence, 1e-9)
			}
		})
	}
}

func TestFromStarDict(t *testing.T) {
	articles := []article{
		{word: "casa", text: "n.\nhouse, home"},
		{word: "Casa", text: "v.\nto marry\nhouse"},
		{word: "gato", text: "cat"},
	}
	tests := []struct {
		name       string
		compressed bool
	}{
		{name: "plain dict", compressed: false},
		{name: "dictzip dict", compressed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ifoPath := writeStarDict(t, t.TempDir(), "es-en", articles, tt.compressed)

			entries, info, err := FromStarDict(ifoPath, "es", "en")
			require.NoError(t, err)
			assert.Equal(t, "Test dictionary", info.BookName)
			assert.Equal(t, "2.4.2", info.Version)
			assert.Equal(t, int64(3), info.WordCount)
			assert.Equal(t, 32, info.IdxOffsetBits)
			assert.Equal(t, []dict.DataType{dict.UTFTextType}, info.SameTypeSequence)

			require.Len(t, entries, 2)
			assert.Equal(t, "casa", entries[0].Lemma)
			assert.Equal(t, "es", entries[0].Language)
			assert.Equal(t, []dictionary.Definition{
				{PartOfSpeech: "n", Definition: "house, home"},
				{PartOfSpeech: "v", Definition: "to marry"},
				{PartOfSpeech: "v", Definition: "house"},
			}, entries[0].Definitions)
			assert.Equal(t, []string{"house", "home", "to marry"}, translationWords(entries[0].Translations))
			assert.Equal(t, "gato", entries[1].Lemma)
			assert.Equal(t, []string{"cat"}, translationWords(entries[1].Translations))
		})
	}
}

func TestFromStarDict_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		ifo   string
		files map[string][]byte
	}{
		{
			name: "no ifo header",
			ifo:  "bookname=broken\n",
		},
		{
			name: "version is not the first key",
			ifo:  "StarDict's dict ifo file\nbookname=broken\nversion=2.4.2\n",
		},
		{
			name: "wrong magic",
			ifo:  "Some other file\nversion=2.4.2\n",
		},
		{
			name: "no idx file",
			ifo:  "StarDict's dict ifo file\nversion=2.4.2\nwordcount=0\n",
		},
		{
			name: "unsupported offset bits",
			ifo:  "StarDict's dict ifo file\nversion=2.4.2\nidxoffsetbits=16\n",
		},
		{
			name: "invalid word count",
			ifo:  "StarDict's dict ifo file\nversion=2.4.2\nwordcount=many\n",
		},
		{
			name:  "no dict file",
			ifo:   "StarDict's dict ifo file\nversion=2.4.2\nwordcount=0\n",
			files: map[string][]byte{".idx": {}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "broken")
			require.NoError(t, os.WriteFile(base+".ifo", []byte(tt.ifo), 0644))
			for ext, data := range tt.files {
				require.NoError(t, os.WriteFile(base+ext, data, 0644))
			}

			_, _, err := FromStarDict(base+".ifo", "es", "en")
			assert.ErrorIs(t, err, ErrInvalidStarDict)
		})
	}
}

func testEntries(language, translationLanguage string, words ...string) []dictionary.Entry {
	entries := make([]dictionary.Entry, 0, len(words))
	for _, word := range words {
		entries = append(entries, dictionary.Entry{
			Lemma:        word,
			Language:     language,
			Definitions:  []dictionary.Definition{{PartOfSpeech: "noun", Definition: word + " definition"}},
			Translations: []dictionary.Translation{{Word: word + "-t", Language: translationLanguage, Confidence: 0.9}},
		})
	}
	return entries
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	got, err := Build(ctx, Options{
		ID:              "en-es",
		SourceLanguage:  "en",
		TargetLanguage:  "es",
		Source:          "test",
		Entries:         testEntries("en", "es", "house", "horse"),
		OutputDirectory: dir,
	})
	require.NoError(t, err)

	archivePath := filepath.Join(dir, "en-es.sqlite.zip")
	data, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	sum := sha256.Sum256(data)

	assert.Equal(t, "en-es", got.ID)
	assert.Equal(t, "en → es", got.Name)
	assert.Equal(t, "1.0", got.Version)
	assert.Equal(t, "test", got.Source)
	assert.Equal(t, "en-es.sqlite.zip", got.Dictionary.Filename)
	assert.Equal(t, "en-es.sqlite.zip", got.Dictionary.URL)
	assert.Equal(t, hex.EncodeToString(sum[:]), got.Dictionary.Checksum)
	assert.Equal(t, int64(len(data)), got.Dictionary.SizeBytes)
	assert.Equal(t, int64(2), got.Dictionary.Entries)
	assert.Positive(t, got.TotalSize)
	assert.FileExists(t, filepath.Join(dir, "en-es.json"))

	reader, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	defer reader.Close()
	require.Len(t, reader.File, 1)
	assert.Equal(t, "en-es.sqlite", reader.File[0].Name)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".build-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	_, err = Build(ctx, Options{ID: "broken", OutputDirectory: dir})
	assert.Error(t, err)
}

func TestGenerateCatalog(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	for _, opts := range []Options{
		{ID: "en-es", SourceLanguage: "en", TargetLanguage: "es", Name: "English → Spanish", Entries: testEntries("en", "es", "house")},
		{ID: "es-en", SourceLanguage: "es", TargetLanguage: "en", Entries: testEntries("es", "en", "casa")},
		{ID: "en-fr", SourceLanguage: "en", TargetLanguage: "fr", Entries: testEntries("en", "fr", "house")},
	} {
		opts.OutputDirectory = dir
		_, err := Build(ctx, opts)
		require.NoError(t, err)
	}
	require.NoError(t, os.Remove(filepath.Join(dir, "en-fr.json")))

	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	got, err := GenerateCatalog(dir, "https://packs.example.com/v1", now)
	require.NoError(t, err)

	assert.Equal(t, "2026-05-06T07:08:09Z", got.Timestamp)
	require.Len(t, got.Packs, 3)
	byID := make(map[string]manifest.PackManifest)
	for _, pack := range got.Packs {
		byID[pack.ID] = pack
	}
	assert.Equal(t, "es-en", byID["en-es"].CompanionPackID)
	assert.Equal(t, "en-es", byID["es-en"].CompanionPackID)
	assert.Empty(t, byID["en-fr"].CompanionPackID)
	assert.Equal(t, "English → Spanish", byID["en-es"].Name)
	assert.Equal(t, "https://packs.example.com/v1/en-es.sqlite.zip", byID["en-es"].Dictionary.URL)
	assert.Equal(t, "fr", byID["en-fr"].TargetLanguage)
	assert.Equal(t, int64(0), byID["en-fr"].Dictionary.Entries)

	catalogPath := filepath.Join(dir, "catalog.json")
	require.NoError(t, WriteCatalog(catalogPath, got))
	registry, err := manifest.LoadFile(catalogPath)
	require.NoError(t, err)
	companion, ok := registry.Companion("en-es")
	require.True(t, ok)
	assert.Equal(t, "es-en", companion.ID)
}

func TestGenerateCatalog_UnknownArchive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "english.sqlite.zip"), []byte("PK"), 0644))

	_, err := GenerateCatalog(dir, "", time.Now())
	assert.Error(t, err)
}
