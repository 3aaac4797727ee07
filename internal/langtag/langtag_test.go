package langtag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{code: "en", want: true},
		{code: "es", want: true},
		{code: "EN", want: true},
		{code: "pt-BR", want: true},
		{code: "zh-Hant", want: true},
		{code: "", want: false},
		{code: "und", want: false},
		{code: "und-US", want: false},
		{code: "e", want: false},
		{code: "en_US", want: false},
		{code: "spanish!", want: false},
		{code: "not a language", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.code))
		})
	}
}
