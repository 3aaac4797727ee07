// Package langtag validates the language codes used in configuration,
// profiles and pack manifests.
package langtag

import (
	"strings"

	"golang.org/x/text/language"
)

// Valid reports whether code is a well-formed, known BCP 47 tag with a
// determined primary language, such as "en", "EN" or "pt-BR". "und" and
// underscore separated codes are rejected.
func Valid(code string) bool {
	if code == "" || strings.ContainsRune(code, '_') {
		return false
	}
	tag, err := language.Parse(code)
	if err != nil {
		return false
	}
	base, _, _ := tag.Raw()
	return base.String() != "und"
}
