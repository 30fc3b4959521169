package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperjump/bunkatsu/internal/models"
)

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"trailing spaces", "line one   \nline two\t", "line one\nline two"},
		{"blank runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"form feed", "page one\fpage two", "page one\n\npage two"},
		{"control chars", "a\x00b\x07c\u200bd\ufeff", "abcd"},
		{"nbsp", "CS\u00a025.571", "CS 25.571"},
		{"tabs kept", "a\tb", "a\tb"},
		{"outer space", "\n\n  text  \n\n", "text"},
		{"whitespace only", " \n\t\r\n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preprocess(tt.in))
		})
	}
}

func TestTextHash(t *testing.T) {
	a := TextHash("text", models.DocumentGeneric)
	assert.Len(t, a, 64)
	assert.Equal(t, a, TextHash("text", models.DocumentGeneric))
	assert.NotEqual(t, a, TextHash("text", models.DocumentRegulatory))
	assert.NotEqual(t, a, TextHash("text2", models.DocumentGeneric))
}
