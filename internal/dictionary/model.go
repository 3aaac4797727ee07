package dictionary

import (
	"time"
)

// Translation is a rendering of an entry's lemma in another language.
type Translation struct {
	Word       string  `json:"word" yaml:"word"`
	Language   string  `json:"language" yaml:"language"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Definition is one sense of an entry for a single part of speech.
type Definition struct {
	PartOfSpeech string   `json:"part_of_speech" yaml:"part_of_speech"`
	Definition   string   `json:"definition" yaml:"definition"`
	Example      string   `json:"example,omitempty" yaml:"example,omitempty"`
	Synonyms     []string `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
}

// Entry is a dictionary record for a lemma in one language pack.
type Entry struct {
	ID            int64         `json:"id"`
	PackID        string        `json:"pack_id"`
	Lemma         string        `json:"lemma"`
	Headword      string        `json:"headword"`
	Language      string        `json:"language"`
	Definitions   []Definition  `json:"definitions,omitempty"`
	Translations  []Translation `json:"translations,omitempty"`
	Frequency     int64         `json:"frequency,omitempty"`
	Pronunciation string        `json:"pronunciation,omitempty"`
}

// Metadata identifies the pack an index file belongs to.
type Metadata struct {
	PackID         string
	SourceLanguage string
	TargetLanguage string
	FormatVersion  string
}

// InstalledPack is the part of an installed language pack the store needs to
// open its index.
type InstalledPack struct {
	ID             string
	SourceLanguage string
	TargetLanguage string
	Path           string
	InstalledAt    time.Time
}

func (p InstalledPack) sameInstall(other InstalledPack) bool {
	return p.ID == other.ID && p.Path == other.Path && p.InstalledAt.Equal(other.InstalledAt)
}
