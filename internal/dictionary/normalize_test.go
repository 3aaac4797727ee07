package dictionary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		word string
		want string
	}{
		{name: "lower case stays", word: "house", want: "house"},
		{name: "case folded", word: "HoUsE", want: "house"},
		{name: "surrounding punctuation trimmed", word: "“house,”", want: "house"},
		{name: "inner punctuation kept", word: "don't", want: "don't"},
		{name: "whitespace collapsed", word: "  ice \t cream\n", want: "ice cream"},
		{name: "decomposed accent composed", word: "cafe\u0301", want: "caf\u00e9"},
		{name: "german sharp s folded", word: "Straße", want: "strasse"},
		{name: "only punctuation", word: "!!!", want: ""},
		{name: "non latin script", word: "Дом.", want: "дом"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.word))
		})
	}
}

func TestHasLetter(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want bool
	}{
		{name: "latin", s: "casa", want: true},
		{name: "japanese", s: "家", want: true},
		{name: "digits only", s: "1234", want: false},
		{name: "symbols only", s: "--!?", want: false},
		{name: "empty", s: "", want: false},
		{name: "mixed", s: "42nd", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasLetter(tt.s))
		})
	}
}
