package lookup

import (
	"slices"
	"sort"
	"strings"

	"github.com/at-ishikawa/lexipack/internal/dictionary"
)

type partOfSpeech struct {
	tag  string
	icon string
}

var partsOfSpeech = map[string]partOfSpeech{
	"noun":         {tag: "n.", icon: "📘"},
	"proper noun":  {tag: "n.", icon: "📘"},
	"verb":         {tag: "v.", icon: "⚡"},
	"adjective":    {tag: "adj.", icon: "🎨"},
	"adverb":       {tag: "adv.", icon: "💨"},
	"pronoun":      {tag: "pron.", icon: "👤"},
	"preposition":  {tag: "prep.", icon: "🔗"},
	"conjunction":  {tag: "conj.", icon: "➕"},
	"interjection": {tag: "interj.", icon: "❗"},
	"determiner":   {tag: "det.", icon: "👉"},
	"article":      {tag: "art.", icon: "👉"},
	"numeral":      {tag: "num.", icon: "🔢"},
	"phrase":       {tag: "phr.", icon: "💬"},
}

var abbreviations = map[string]string{
	"n":      "noun",
	"v":      "verb",
	"adj":    "adjective",
	"adv":    "adverb",
	"pron":   "pronoun",
	"prep":   "preposition",
	"conj":   "conjunction",
	"interj": "interjection",
	"det":    "determiner",
	"num":    "numeral",
}

const translationPartOfSpeech = "translation"

func canonicalPartOfSpeech(pos string) string {
	pos = strings.ToLower(strings.TrimSpace(pos))
	pos = strings.TrimSuffix(pos, ".")
	if full, ok := abbreviations[pos]; ok {
		return full
	}
	return pos
}

func newMeaningGroup(pos string) MeaningGroup {
	group := MeaningGroup{PartOfSpeech: pos, Tag: pos, Icon: "📝"}
	if known, ok := partsOfSpeech[pos]; ok {
		group.Tag = known.tag
		group.Icon = known.icon
	}
	if pos == translationPartOfSpeech {
		group.Tag = "tr."
		group.Icon = "🌐"
	}
	if pos == "" {
		group.Tag = "?"
	}
	return group
}

// synonymList appends words up to a cap, skipping the query word and repeats.
type synonymList struct {
	words []string
	seen  map[string]bool
	limit int
}

func newSynonymList(query string, limit int) *synonymList {
	return &synonymList{
		seen:  map[string]bool{query: true},
		limit: limit,
	}
}

func (l *synonymList) add(word string) {
	if len(l.words) >= l.limit {
		return
	}
	word = strings.TrimSpace(word)
	normalized := dictionary.Normalize(word)
	if normalized == "" || l.seen[normalized] {
		return
	}
	l.seen[normalized] = true
	l.words = append(l.words, word)
}

// sortTranslations orders translations into native first, then by
// confidence. The input is not modified.
func sortTranslations(translations []dictionary.Translation, native string) []dictionary.Translation {
	sorted := slices.Clone(translations)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if (a.Language == native) != (b.Language == native) {
			return a.Language == native
		}
		return a.Confidence > b.Confidence
	})
	return sorted
}

// buildMeaningGroups returns one group per part of speech of entry, in the
// order the parts of speech first appear.
func buildMeaningGroups(entry dictionary.Entry, query string, native string, maxSynonyms int) []MeaningGroup {
	byConfidence := slices.Clone(entry.Translations)
	sort.SliceStable(byConfidence, func(i, j int) bool {
		return byConfidence[i].Confidence > byConfidence[j].Confidence
	})
	topNative := -1
	for i, translation := range byConfidence {
		if translation.Language == native {
			topNative = i
			break
		}
	}

	seed := func(list *synonymList, definitions []dictionary.Definition) {
		if topNative >= 0 {
			list.add(byConfidence[topNative].Word)
		}
		for _, definition := range definitions {
			for _, synonym := range definition.Synonyms {
				list.add(synonym)
			}
		}
		for i, translation := range byConfidence {
			if i == topNative {
				continue
			}
			list.add(translation.Word)
		}
	}

	if len(entry.Definitions) == 0 {
		if len(entry.Translations) == 0 {
			return nil
		}
		group := newMeaningGroup(translationPartOfSpeech)
		list := newSynonymList(query, maxSynonyms)
		seed(list, nil)
		group.Synonyms = list.words
		return []MeaningGroup{group}
	}

	var order []string
	definitionsByPOS := make(map[string][]dictionary.Definition)
	for _, definition := range entry.Definitions {
		pos := canonicalPartOfSpeech(definition.PartOfSpeech)
		if _, ok := definitionsByPOS[pos]; !ok {
			order = append(order, pos)
		}
		definitionsByPOS[pos] = append(definitionsByPOS[pos], definition)
	}

	groups := make([]MeaningGroup, 0, len(order))
	for _, pos := range order {
		definitions := definitionsByPOS[pos]
		group := newMeaningGroup(pos)
		group.Definition = strings.TrimSpace(definitions[0].Definition)
		group.Example = strings.TrimSpace(definitions[0].Example)

		list := newSynonymList(query, maxSynonyms)
		seed(list, definitions)
		group.Synonyms = list.words
		groups = append(groups, group)
	}
	return groups
}

func synonymKey(synonyms []string) string {
	normalized := make([]string, 0, len(synonyms))
	for _, synonym := range synonyms {
		normalized = append(normalized, dictionary.Normalize(synonym))
	}
	primary := normalized[0]
	sort.Strings(normalized)
	return primary + "\x00" + strings.Join(normalized, "\x00")
}

// deduplicate drops meaning groups whose primary synonym and synonym set
// were already produced by an earlier group, across all definitions. The part
// of speech is not part of the comparison. Definitions left without a
// non-empty group are dropped.
func deduplicate(definitions []Definition) []Definition {
	seen := make(map[string]bool)
	result := make([]Definition, 0, len(definitions))
	for _, definition := range definitions {
		var groups []MeaningGroup
		for _, group := range definition.MeaningGroups {
			if group.empty() {
				continue
			}
			if len(group.Synonyms) > 0 {
				key := synonymKey(group.Synonyms)
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			groups = append(groups, group)
		}
		if len(groups) == 0 {
			continue
		}
		definition.MeaningGroups = groups
		result = append(result, definition)
	}
	return result
}
