package segment

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/bunkatsu/pkg/utils"
)

const maxHeaderLineLen = 100

var (
	listItemRe       = regexp.MustCompile(`^\s*(?:[-*+•·▪◦‣]\s+|\d{1,3}[.)]\s+|[a-z]\)\s+|\((?:[a-z]|\d{1,2}|[ivx]{1,4})\)\s+)`)
	markdownHeaderRe = regexp.MustCompile(`^\s{0,3}#{1,6}\s+\S`)
	numberedHeaderRe = regexp.MustCompile(`^\s*\d+(?:\.\d+)+\.?\s+\S`)
	subParagraphRe   = regexp.MustCompile(`(?:^|\s)(\((?:[a-z]|\d{1,2}|[ivx]{1,4})\))`)
)

// IsListItem reports whether line starts a bullet or numbered list item.
func IsListItem(line string) bool {
	return listItemRe.MatchString(line)
}

// IsTableRow reports whether line looks like a row of a pipe or tab separated table.
func IsTableRow(line string) bool {
	return strings.Count(line, "|") >= 2 || strings.Count(line, "\t") >= 2
}

// IsHeaderLine reports whether line is a heading: markdown, multi-level numbered
// ("2.1 Scope") or a short all-caps line.
func IsHeaderLine(line string) bool {
	l := strings.TrimSpace(line)
	if l == "" || len(l) > maxHeaderLineLen {
		return false
	}
	if markdownHeaderRe.MatchString(l) {
		return true
	}
	if endsWithTerminator(l) {
		return false
	}
	return numberedHeaderRe.MatchString(l) || isAllCaps(l)
}

func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			letters++
		}
	}
	return letters >= 3
}

func endsWithTerminator(s string) bool {
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '.', '!', '?', ';', ',':
		return true
	}
	return false
}

// isTerminatorAt reports whether text[i] ends a sentence: '.', '!' or '?' followed by
// whitespace or the end of text. "25.571" does not end a sentence.
func isTerminatorAt(text string, i int) bool {
	switch text[i] {
	case '.', '!', '?':
	default:
		return false
	}
	if i+1 == len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i+1:])
	return unicode.IsSpace(r)
}

// SentenceCut returns the offset just past the sentence terminator closest to, but not
// beyond, limit. It returns 0 when no terminator exists before the limit.
func SentenceCut(text string, limit int) int {
	if limit > len(text) {
		limit = len(text)
	}
	for i := limit - 1; i >= 0; i-- {
		if isTerminatorAt(text, i) {
			return i + 1
		}
	}
	return 0
}

// SentenceCount returns the number of sentences in text. Trailing text without a terminator
// counts as a sentence.
func SentenceCount(text string) int {
	n := 0
	last := -1
	for i := 0; i < len(text); i++ {
		if isTerminatorAt(text, i) {
			n++
			last = i
		}
	}
	if strings.TrimSpace(text[last+1:]) != "" {
		n++
	}
	return n
}

// Sentences splits text at sentence terminators. Pieces are trimmed; empty pieces are dropped.
func Sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		if isTerminatorAt(text, i) {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// markerCut returns the start of the last sub-paragraph marker ("(a)", "(1)", "(iv)") that
// lies in (0, limit], or 0 when there is none.
func markerCut(text string, limit int) int {
	best := 0
	for _, loc := range subParagraphRe.FindAllStringSubmatchIndex(text, -1) {
		s := loc[2]
		if s > limit {
			break
		}
		if s > 0 {
			best = s
		}
	}
	return best
}

// hardCutAt returns a rune-safe offset at or below limit, and at least one rune in.
func hardCutAt(text string, limit int) int {
	cut := utils.RuneStart(text, limit)
	if cut == 0 {
		_, size := utf8.DecodeRuneInString(text)
		cut = size
	}
	return cut
}

// leadOf condenses the whitespace between two pieces into the separator used to join them.
func leadOf(ws string) string {
	switch n := strings.Count(ws, "\n"); {
	case ws == "":
		return ""
	case n >= 2:
		return "\n\n"
	case n == 1:
		return "\n"
	default:
		return " "
	}
}

type piece struct {
	text string
	lead string
	hard bool
}

// cutAll splits text into pieces no longer than limit. Each cut uses preferred when given,
// then the nearest sentence terminator, then a hard cut. The first piece has an empty lead.
func cutAll(text string, limit int, preferred func(string, int) int) []piece {
	var out []piece
	lead := ""
	rest := strings.TrimSpace(text)
	for limit > 0 && len(rest) > limit {
		cut, hard := 0, false
		if preferred != nil {
			cut = preferred(rest, limit)
		}
		if cut <= 0 {
			cut = SentenceCut(rest, limit)
		}
		if cut <= 0 {
			cut, hard = hardCutAt(rest, limit), true
		}
		head := strings.TrimRightFunc(rest[:cut], unicode.IsSpace)
		tail := rest[cut:]
		next := strings.TrimLeftFunc(tail, unicode.IsSpace)
		out = append(out, piece{text: head, lead: lead, hard: hard})
		lead = leadOf(rest[len(head) : len(rest)-len(next)])
		rest = next
	}
	if rest != "" {
		out = append(out, piece{text: rest, lead: lead})
	}
	return out
}
