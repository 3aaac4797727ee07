package dictionary

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the lookup key of a word: NFC composed, case folded, with
// surrounding punctuation and symbols trimmed and inner whitespace collapsed
// to a single space.
func Normalize(word string) string {
	t := transform.Chain(
		norm.NFC,
		cases.Fold(),
		runes.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return ' '
			}
			return r
		}),
	)
	folded, _, err := transform.String(t, word)
	if err != nil {
		folded = strings.ToLower(word)
	}
	folded = strings.Join(strings.Fields(folded), " ")
	return strings.TrimFunc(folded, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r)
	})
}

// HasLetter reports whether s contains at least one letter in any script.
func HasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
