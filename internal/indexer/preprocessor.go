package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"github.com/hyperjump/bunkatsu/internal/models"
)

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// Preprocess normalizes extracted text for chunking. Line endings are unified, form feeds
// become paragraph breaks, other control characters are dropped, trailing spaces are trimmed
// and runs of blank lines collapse to one. Line structure is kept since segmentation relies
// on it.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch r {
		case '\n', '\t':
			b.WriteRune(r)
		case '\r':
			b.WriteByte('\n')
		case '\f':
			b.WriteString("\n\n")
		case '\u00a0':
			b.WriteByte(' ')
		case '\ufeff', '\u200b':
		default:
			if !unicode.IsControl(r) {
				b.WriteRune(r)
			}
		}
	}
	lines := strings.Split(b.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	text = blankRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

// TextHash identifies preprocessed text ingested with a document type.
func TextHash(text string, docType models.DocumentType) string {
	h := sha256.New()
	h.Write([]byte(docType))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
