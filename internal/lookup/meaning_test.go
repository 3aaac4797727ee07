package lookup

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/at-ishikawa/lexipack/internal/dictionary"
)

func TestBuildMeaningGroups(t *testing.T) {
	tests := []struct {
		name        string
		entry       dictionary.Entry
		maxSynonyms int
		want        []MeaningGroup
	}{
		{
			name: "one group per part of speech in first appearance order",
			entry: dictionary.Entry{
				Lemma: "house",
				Definitions: []dictionary.Definition{
					{PartOfSpeech: "noun", Definition: "A building to live in.", Example: "A big house.", Synonyms: []string{"home", "dwelling"}},
					{PartOfSpeech: "verb", Definition: "To give shelter to.", Synonyms: []string{"shelter"}},
					{PartOfSpeech: "Noun", Definition: "A family line.", Synonyms: []string{"dynasty"}},
				},
				Translations: []dictionary.Translation{
					{Word: "maison", Language: "fr", Confidence: 0.99},
					{Word: "hogar", Language: "es", Confidence: 0.7},
					{Word: "casa", Language: "es", Confidence: 0.95},
				},
			},
			maxSynonyms: 5,
			want: []MeaningGroup{
				{
					PartOfSpeech: "noun", Tag: "n.", Icon: "📘",
					Definition: "A building to live in.", Example: "A big house.",
					Synonyms: []string{"casa", "home", "dwelling", "dynasty", "maison"},
				},
				{
					PartOfSpeech: "verb", Tag: "v.", Icon: "⚡",
					Definition: "To give shelter to.",
					Synonyms:   []string{"casa", "shelter", "maison", "hogar"},
				},
			},
		},
		{
			name: "query word and repeats are excluded",
			entry: dictionary.Entry{
				Lemma: "run",
				Definitions: []dictionary.Definition{
					{PartOfSpeech: "v", Definition: "To move quickly.", Synonyms: []string{"Run", "sprint", "Sprint!", ""}},
				},
				Translations: []dictionary.Translation{
					{Word: "correr", Language: "es", Confidence: 0.9},
					{Word: "run", Language: "fr", Confidence: 0.1},
				},
			},
			maxSynonyms: 5,
			want: []MeaningGroup{
				{
					PartOfSpeech: "verb", Tag: "v.", Icon: "⚡",
					Definition: "To move quickly.",
					Synonyms:   []string{"correr", "sprint"},
				},
			},
		},
		{
			name: "synonyms are capped",
			entry: dictionary.Entry{
				Lemma: "big",
				Definitions: []dictionary.Definition{
					{PartOfSpeech: "adjective", Definition: "Of great size.", Synonyms: []string{"large", "huge", "vast"}},
				},
				Translations: []dictionary.Translation{{Word: "grande", Language: "es", Confidence: 0.9}},
			},
			maxSynonyms: 2,
			want: []MeaningGroup{
				{
					PartOfSpeech: "adjective", Tag: "adj.", Icon: "🎨",
					Definition: "Of great size.",
					Synonyms:   []string{"grande", "large"},
				},
			},
		},
		{
			name: "translations only",
			entry: dictionary.Entry{
				Lemma: "hola",
				Translations: []dictionary.Translation{
					{Word: "hi", Language: "en", Confidence: 0.5},
					{Word: "hello", Language: "en", Confidence: 0.9},
				},
			},
			maxSynonyms: 5,
			want: []MeaningGroup{
				{PartOfSpeech: "translation", Tag: "tr.", Icon: "🌐", Synonyms: []string{"hello", "hi"}},
			},
		},
		{
			name: "unknown part of speech",
			entry: dictionary.Entry{
				Lemma:       "ouch",
				Definitions: []dictionary.Definition{{PartOfSpeech: "exclamation", Definition: "Expresses pain."}},
			},
			maxSynonyms: 5,
			want: []MeaningGroup{
				{PartOfSpeech: "exclamation", Tag: "exclamation", Icon: "📝", Definition: "Expresses pain."},
			},
		},
		{
			name:        "nothing to show",
			entry:       dictionary.Entry{Lemma: "empty"},
			maxSynonyms: 5,
			want:        nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildMeaningGroups(tt.entry, dictionary.Normalize(tt.entry.Lemma), "es", tt.maxSynonyms)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("buildMeaningGroups() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeduplicate(t *testing.T) {
	tests := []struct {
		name        string
		definitions []Definition
		want        []Definition
	}{
		{
			name: "same primary and set across parts of speech keeps the first",
			definitions: []Definition{
				{Word: "run", MeaningGroups: []MeaningGroup{
					{PartOfSpeech: "verb", Synonyms: []string{"correr", "sprint", "dash"}},
					{PartOfSpeech: "noun", Synonyms: []string{"correr", "dash", "sprint"}},
				}},
			},
			want: []Definition{
				{Word: "run", MeaningGroups: []MeaningGroup{
					{PartOfSpeech: "verb", Synonyms: []string{"correr", "sprint", "dash"}},
				}},
			},
		},
		{
			name: "different primary synonym is kept",
			definitions: []Definition{
				{Word: "run", MeaningGroups: []MeaningGroup{
					{PartOfSpeech: "verb", Synonyms: []string{"correr", "sprint"}},
					{PartOfSpeech: "noun", Synonyms: []string{"sprint", "correr"}},
				}},
			},
			want: []Definition{
				{Word: "run", MeaningGroups: []MeaningGroup{
					{PartOfSpeech: "verb", Synonyms: []string{"correr", "sprint"}},
					{PartOfSpeech: "noun", Synonyms: []string{"sprint", "correr"}},
				}},
			},
		},
		{
			name: "groups without synonyms are never duplicates",
			definitions: []Definition{
				{Word: "ouch", MeaningGroups: []MeaningGroup{
					{PartOfSpeech: "interjection", Definition: "Pain."},
					{PartOfSpeech: "noun", Definition: "Pain."},
				}},
			},
			want: []Definition{
				{Word: "ouch", MeaningGroups: []MeaningGroup{
					{PartOfSpeech: "interjection", Definition: "Pain."},
					{PartOfSpeech: "noun", Definition: "Pain."},
				}},
			},
		},
		{
			name: "duplicates across definitions drop the emptied definition",
			definitions: []Definition{
				{Word: "bank", PackID: "en-es", MeaningGroups: []MeaningGroup{{PartOfSpeech: "noun", Synonyms: []string{"banco"}}}},
				{Word: "bank", PackID: "en-es-extra", MeaningGroups: []MeaningGroup{{PartOfSpeech: "noun", Synonyms: []string{"Banco"}}}},
				{Word: "bank", PackID: "empty", MeaningGroups: []MeaningGroup{{PartOfSpeech: "noun"}}},
			},
			want: []Definition{
				{Word: "bank", PackID: "en-es", MeaningGroups: []MeaningGroup{{PartOfSpeech: "noun", Synonyms: []string{"banco"}}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deduplicate(tt.definitions)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("deduplicate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSortTranslations(t *testing.T) {
	translations := []dictionary.Translation{
		{Word: "maison", Language: "fr", Confidence: 0.99},
		{Word: "hogar", Language: "es", Confidence: 0.7},
		{Word: "casa", Language: "es", Confidence: 0.95},
	}
	got := sortTranslations(translations, "es")
	assert.Equal(t, []dictionary.Translation{
		{Word: "casa", Language: "es", Confidence: 0.95},
		{Word: "hogar", Language: "es", Confidence: 0.7},
		{Word: "maison", Language: "fr", Confidence: 0.99},
	}, got)
	assert.Equal(t, "maison", translations[0].Word)
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "plain", text: "  The house\n is   red. ", want: "The house is red."},
		{name: "inline markup", text: "The <b>house</b>s are <em>red</em>.", want: "The houses are red."},
		{name: "block markup", text: "<p>One</p><p>Two</p>", want: "One Two"},
		{name: "entities", text: "Tom &amp; Jerry", want: "Tom & Jerry"},
		{name: "script is dropped", text: "<script>alert(1)</script>Hello<br/>world", want: "Hello world"},
		{name: "empty", text: "<p> </p>", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, plainText(tt.text))
		})
	}
}
