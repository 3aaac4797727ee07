package packbuild

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ianlewis/go-stardict/dict"
	"github.com/k3a/html2text"

	"github.com/at-ishikawa/lexipack/internal/dictionary"
)

const (
	firstTranslationConfidence = 0.9
	translationConfidenceStep  = 0.05
	minTranslationConfidence   = 0.5
	maxTranslationWords        = 4
	maxTranslationLength       = 40
)

var (
	partOfSpeechPrefix = regexp.MustCompile(`(?i)^(?:<([a-z ]+)>|\(([a-z ]+)\.?\)|(n|v|vt|vi|adj|adv|pron|prep|conj|interj|det|num)\.)\s*(.*)$`)
	senseNumber        = regexp.MustCompile(`^\(?\d+[.)]\s*`)
	pronunciationLine  = regexp.MustCompile(`^(?:/[^/]+/|\[[^\]]+\])$`)
	examplePrefixes    = []string{"e.g.", "ex:", "example:", "\"", "“", "«"}
)

var partOfSpeechWords = map[string]bool{
	"noun": true, "verb": true, "adjective": true, "adverb": true, "pronoun": true,
	"preposition": true, "conjunction": true, "interjection": true, "determiner": true,
	"article": true, "numeral": true, "phrase": true, "proper noun": true,
}

// articleText returns the readable text and the phonetic part of an article.
func articleText(article *dict.Word) (string, string) {
	var texts []string
	var pronunciation string
	for _, data := range article.Data {
		raw := strings.TrimRight(string(data.Data), "\x00")
		switch data.Type {
		case dict.PhoneticType, dict.YinBiaoOrKataType:
			if pronunciation == "" {
				pronunciation = strings.TrimSpace(raw)
			}
		case dict.HTMLType, dict.XDXFType, dict.PangoTextType, dict.PowerWordType:
			texts = append(texts, html2text.HTML2Text(raw))
		case dict.UTFTextType, dict.LocaleTextType, dict.MediaWikiType, dict.WordNetType:
			texts = append(texts, raw)
		}
	}
	return strings.Join(texts, "\n"), pronunciation
}

func articleEntry(headword string, article *dict.Word, sourceLanguage, targetLanguage string) dictionary.Entry {
	text, pronunciation := articleText(article)
	entry := parseArticle(headword, text, targetLanguage)
	entry.Language = sourceLanguage
	if entry.Pronunciation == "" {
		entry.Pronunciation = pronunciation
	}
	return entry
}

// splitPartOfSpeech returns the part of speech marker at the start of line
// and the rest of the line.
func splitPartOfSpeech(line string) (string, string) {
	if lower := strings.ToLower(strings.TrimSuffix(line, ":")); partOfSpeechWords[lower] {
		return lower, ""
	}
	match := partOfSpeechPrefix.FindStringSubmatch(line)
	if match == nil {
		return "", line
	}
	for _, marker := range match[1:4] {
		if marker != "" {
			return strings.ToLower(strings.TrimSpace(marker)), strings.TrimSpace(match[4])
		}
	}
	return "", line
}

func isExample(line string) bool {
	lower := strings.ToLower(line)
	for _, prefix := range examplePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func trimExample(line string) string {
	for _, prefix := range []string{"e.g.", "ex:", "example:"} {
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			return strings.TrimSpace(line[len(prefix):])
		}
	}
	return line
}

// translationCandidates splits a sense into the short phrases it lists.
func translationCandidates(line string) []string {
	var candidates []string
	for _, part := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(strings.TrimRight(part, "."))
		if part == "" || utf8.RuneCountInString(part) > maxTranslationLength || len(strings.Fields(part)) > maxTranslationWords {
			continue
		}
		candidates = append(candidates, part)
	}
	return candidates
}

// parseArticle turns the lines of an article into definitions and
// translations. A line may open with a part of speech marker, which applies
// to the following senses until the next marker.
func parseArticle(headword, text, targetLanguage string) dictionary.Entry {
	entry := dictionary.Entry{Lemma: headword, Headword: headword}
	query := dictionary.Normalize(headword)
	partOfSpeech := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		if line == "" || dictionary.Normalize(line) == query {
			continue
		}
		if pronunciationLine.MatchString(line) {
			if entry.Pronunciation == "" {
				entry.Pronunciation = line
			}
			continue
		}
		if marker, rest := splitPartOfSpeech(line); marker != "" {
			partOfSpeech = marker
			line = rest
			if line == "" {
				continue
			}
		}
		line = strings.TrimSpace(senseNumber.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		if isExample(line) {
			if n := len(entry.Definitions); n > 0 && entry.Definitions[n-1].Example == "" {
				entry.Definitions[n-1].Example = trimExample(line)
			}
			continue
		}

		entry.Definitions = append(entry.Definitions, dictionary.Definition{
			PartOfSpeech: partOfSpeech,
			Definition:   line,
		})
		for _, candidate := range translationCandidates(line) {
			if dictionary.Normalize(candidate) == query || hasTranslation(entry.Translations, candidate) {
				continue
			}
			confidence := firstTranslationConfidence - translationConfidenceStep*float64(len(entry.Translations))
			entry.Translations = append(entry.Translations, dictionary.Translation{
				Word:       candidate,
				Language:   targetLanguage,
				Confidence: max(confidence, minTranslationConfidence),
			})
		}
	}
	return entry
}
