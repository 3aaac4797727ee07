package lookup

import (
	"github.com/at-ishikawa/lexipack/internal/dictionary"
)

// ErrorCode is the reason a lookup or a context translation did not succeed.
type ErrorCode string

const (
	ErrorInvalidWord            ErrorCode = "invalid_word"
	ErrorNoSourceLanguage       ErrorCode = "no_source_language"
	ErrorMissingLanguagePacks   ErrorCode = "missing_language_packs"
	ErrorLookupNotFound         ErrorCode = "lookup_not_found"
	ErrorLookupFailed           ErrorCode = "lookup_failed"
	ErrorTranslationTimeout     ErrorCode = "translation_timeout"
	ErrorTranslationUnavailable ErrorCode = "translation_unavailable"
	ErrorTranslationFailed      ErrorCode = "translation_failed"
	ErrorCancelled              ErrorCode = "cancelled"
)

// Source tells where a successful answer came from.
type Source string

const (
	SourceDictionary Source = "dictionary"
	SourceMLFallback Source = "ml_fallback"
)

// dictionaryConfidence is the confidence of answers read from a language pack.
const dictionaryConfidence = 1.0

// MeaningGroup is one part of speech of an entry with its synonyms.
type MeaningGroup struct {
	PartOfSpeech string   `json:"part_of_speech"`
	Tag          string   `json:"tag"`
	Icon         string   `json:"icon"`
	Definition   string   `json:"definition,omitempty"`
	Example      string   `json:"example,omitempty"`
	Synonyms     []string `json:"synonyms"`
}

func (g MeaningGroup) empty() bool {
	return g.Definition == "" && len(g.Synonyms) == 0
}

// Definition is a resolved entry.
type Definition struct {
	Word          string                   `json:"word"`
	Lemma         string                   `json:"lemma"`
	Language      string                   `json:"language"`
	PackID        string                   `json:"pack_id,omitempty"`
	Pronunciation string                   `json:"pronunciation,omitempty"`
	MeaningGroups []MeaningGroup           `json:"meaning_groups,omitempty"`
	Translations  []dictionary.Translation `json:"translations,omitempty"`
	Confidence    float64                  `json:"confidence"`
}

// Response is the outcome of LookupWord. Failures are reported through
// Error and never as a Go error.
type Response struct {
	Success           bool         `json:"success"`
	Word              string       `json:"word"`
	SourceLanguage    string       `json:"source_language,omitempty"`
	PrimaryDefinition *Definition  `json:"primary_definition,omitempty"`
	Alternatives      []Definition `json:"alternatives,omitempty"`
	MissingLanguages  []string     `json:"missing_languages,omitempty"`
	Error             ErrorCode    `json:"error,omitempty"`
	Suggestions       []string     `json:"suggestions,omitempty"`
	Source            Source       `json:"source,omitempty"`
}
