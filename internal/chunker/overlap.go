package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/bunkatsu/internal/models"
)

const overlapSeparator = " "

// applyOverlap prepends to every chunk but the first the trailing overlap bytes of the previous
// chunk's unique content, moved forward to a word start.
func applyOverlap(chunks []*models.Chunk, overlap int) {
	if overlap <= 0 {
		return
	}
	for i := 1; i < len(chunks); i++ {
		tail := overlapTail(chunks[i-1].Content(), overlap)
		if tail == "" {
			continue
		}
		prefix := tail + overlapSeparator
		chunks[i].Text = prefix + chunks[i].Text
		chunks[i].OverlapLength = len(prefix)
	}
}

// overlapTail returns at most n trailing bytes of s starting at a word boundary.
func overlapTail(s string, n int) string {
	if n >= len(s) {
		return strings.TrimSpace(s)
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	prev, _ := utf8.DecodeLastRuneInString(s[:start])
	if !unicode.IsSpace(prev) {
		j := strings.IndexFunc(s[start:], unicode.IsSpace)
		if j < 0 {
			return ""
		}
		start += j
	}
	return strings.TrimSpace(s[start:])
}
