// Package packbuild turns dictionary dumps into installable language packs
// and generates the catalog that lists them.
package packbuild

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/ianlewis/go-stardict/dict"
	"github.com/ianlewis/go-stardict/idx"
	"github.com/ianlewis/go-stardict/ifo"

	"github.com/at-ishikawa/lexipack/internal/dictionary"
)

const ifoMagic = "StarDict's dict ifo file"

var ErrInvalidStarDict = errors.New("invalid stardict dictionary")

// StarDictInfo is the metadata of a StarDict .ifo file.
type StarDictInfo struct {
	BookName         string
	Version          string
	Description      string
	WordCount        int64
	IdxOffsetBits    int
	SameTypeSequence []dict.DataType
}

func readInfo(path string) (StarDictInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return StarDictInfo{}, fmt.Errorf("os.Open(%s) > %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	metadata, err := ifo.New(f)
	if err != nil {
		return StarDictInfo{}, fmt.Errorf("%w: ifo.New(%s) > %w", ErrInvalidStarDict, path, err)
	}
	if strings.TrimSpace(strings.TrimPrefix(metadata.Magic(), "\ufeff")) != ifoMagic {
		return StarDictInfo{}, fmt.Errorf("%w: %s has no ifo header", ErrInvalidStarDict, path)
	}

	info := StarDictInfo{
		BookName:      strings.TrimSpace(metadata.Value("bookname")),
		Version:       strings.TrimSpace(metadata.Value("version")),
		Description:   strings.TrimSpace(metadata.Value("description")),
		IdxOffsetBits: 32,
	}
	if value := strings.TrimSpace(metadata.Value("wordcount")); value != "" {
		count, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return StarDictInfo{}, fmt.Errorf("%w: wordcount %q", ErrInvalidStarDict, value)
		}
		info.WordCount = count
	}
	if value := strings.TrimSpace(metadata.Value("idxoffsetbits")); value != "" {
		bits, err := strconv.Atoi(value)
		if err != nil || (bits != 32 && bits != 64) {
			return StarDictInfo{}, fmt.Errorf("%w: idxoffsetbits %q", ErrInvalidStarDict, value)
		}
		info.IdxOffsetBits = bits
	}
	for _, t := range strings.TrimSpace(metadata.Value("sametypesequence")) {
		info.SameTypeSequence = append(info.SameTypeSequence, dict.DataType(t))
	}
	return info, nil
}

// FromStarDict reads the StarDict dictionary described by ifoPath and
// returns its entries in index order. Entries sharing a lemma are merged.
// The .dict data may be dictzip compressed, the .idx must not be.
func FromStarDict(ifoPath, sourceLanguage, targetLanguage string) ([]dictionary.Entry, StarDictInfo, error) {
	info, err := readInfo(ifoPath)
	if err != nil {
		return nil, StarDictInfo{}, fmt.Errorf("readInfo > %w", err)
	}

	idxPath := strings.TrimSuffix(ifoPath, ".ifo") + ".idx"
	idxFile, err := os.Open(idxPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, StarDictInfo{}, fmt.Errorf("%w: no uncompressed .idx next to %s", ErrInvalidStarDict, ifoPath)
	}
	if err != nil {
		return nil, StarDictInfo{}, fmt.Errorf("os.Open(%s) > %w", idxPath, err)
	}
	scanner, err := idx.NewScanner(idxFile, &idx.ScannerOptions{OffsetBits: info.IdxOffsetBits})
	if err != nil {
		_ = idxFile.Close()
		return nil, StarDictInfo{}, fmt.Errorf("idx.NewScanner > %w", err)
	}
	defer func() {
		_ = scanner.Close()
	}()

	dictionaryData, err := dict.NewFromIfoPath(ifoPath, &dict.Options{SameTypeSequence: info.SameTypeSequence})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, StarDictInfo{}, fmt.Errorf("%w: dict.NewFromIfoPath(%s) > %w", ErrInvalidStarDict, ifoPath, err)
	}
	if err != nil {
		return nil, StarDictInfo{}, fmt.Errorf("dict.NewFromIfoPath(%s) > %w", ifoPath, err)
	}
	defer func() {
		_ = dictionaryData.Close()
	}()

	var entries []dictionary.Entry
	positions := make(map[string]int)
	for scanner.Scan() {
		word := scanner.Word()
		if strings.TrimSpace(word.Word) == "" {
			continue
		}
		article, err := dictionaryData.Word(word)
		if err != nil {
			return nil, StarDictInfo{}, fmt.Errorf("dict.Word(%s) > %w", word.Word, err)
		}

		entry := articleEntry(word.Word, article, sourceLanguage, targetLanguage)
		lemma := dictionary.Normalize(word.Word)
		if i, ok := positions[lemma]; ok {
			entries[i] = mergeEntries(entries[i], entry)
			continue
		}
		positions[lemma] = len(entries)
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, StarDictInfo{}, fmt.Errorf("scanner.Err > %w", err)
	}
	return entries, info, nil
}

func mergeEntries(into, from dictionary.Entry) dictionary.Entry {
	into.Definitions = append(into.Definitions, from.Definitions...)
	for _, translation := range from.Translations {
		if !hasTranslation(into.Translations, translation.Word) {
			into.Translations = append(into.Translations, translation)
		}
	}
	if into.Pronunciation == "" {
		into.Pronunciation = from.Pronunciation
	}
	return into
}

func hasTranslation(translations []dictionary.Translation, word string) bool {
	normalized := dictionary.Normalize(word)
	for _, translation := range translations {
		if dictionary.Normalize(translation.Word) == normalized {
			return true
		}
	}
	return false
}
