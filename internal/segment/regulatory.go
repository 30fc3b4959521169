package segment

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/hyperjump/bunkatsu/internal/refcode"
)

const maxTitleLen = 120

// SectionResult is the output of ParseSections.
type SectionResult struct {
	Units []models.DocumentUnit
	// Fallback is true when no header matched and the text came back as one preamble unit.
	Fallback bool
	Warnings []Warning
}

type header struct {
	start int // first byte of the header, including an opening bracket
	end   int // byte after the code, including a closing bracket
	code  string
}

// ParseSections splits regulation text at section headers. A header is a reference code that
// is enclosed in brackets or is the first token on its line. Each header opens a unit that runs
// to the next header; text before the first header becomes a preamble unit without section id.
func ParseSections(text, locator string, families *refcode.Set) SectionResult {
	var res SectionResult
	headers, ambiguous := findHeaders(text, families)
	for _, m := range ambiguous {
		res.Warnings = append(res.Warnings, Warning{
			Kind:    PatternAmbiguous,
			Offset:  m.Start,
			Message: fmt.Sprintf("overlapping header match %q (%s) ignored", m.Raw, m.Family),
		})
	}
	if len(headers) == 0 {
		res.Fallback = true
		if body := strings.TrimSpace(text); body != "" {
			res.Units = []models.DocumentUnit{{
				Text:          body,
				SourceLocator: locator,
				Strategy:      models.DocumentRegulatory,
			}}
		}
		res.Warnings = append(res.Warnings, Warning{
			Kind:    InputMalformed,
			Message: "no section header found",
		})
		return res
	}

	lead := ""
	add := func(raw string, h *header) {
		body := strings.TrimRightFunc(raw, unicode.IsSpace)
		trail := raw[len(body):]
		body = strings.TrimLeftFunc(body, unicode.IsSpace)
		if body == "" {
			if len(res.Units) > 0 {
				lead = leadOf(lead + trail)
			}
			return
		}
		u := models.DocumentUnit{
			Text:          body,
			SourceLocator: locator,
			Ordinal:       len(res.Units),
			Strategy:      models.DocumentRegulatory,
			Lead:          lead,
		}
		if h != nil {
			u.SectionID = h.code
		}
		res.Units = append(res.Units, u)
		lead = leadOf(trail)
	}

	add(text[:headers[0].start], nil)
	for i := range headers {
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1].start
		}
		h := &headers[i]
		add(text[h.start:end], h)
		if n := len(res.Units); n > 0 && res.Units[n-1].SectionID == h.code && res.Units[n-1].SectionTitle == "" {
			res.Units[n-1].SectionTitle = headerTitle(text, h.end, end)
		}
	}
	return res
}

// findHeaders returns non-overlapping header matches in text order and the header-eligible
// matches that lost to an earlier overlapping one.
func findHeaders(text string, families *refcode.Set) ([]header, []refcode.Match) {
	var headers []header
	var ambiguous []refcode.Match
	end := -1
	for _, m := range families.FindAll(text) {
		start, stop, ok := headerSpan(text, m)
		if !ok {
			continue
		}
		if start < end {
			ambiguous = append(ambiguous, m)
			continue
		}
		headers = append(headers, header{start: start, end: stop, code: m.Code})
		end = stop
	}
	return headers, ambiguous
}

// headerSpan reports whether m is a header and returns its extent with any brackets.
func headerSpan(text string, m refcode.Match) (int, int, bool) {
	before := strings.TrimRight(text[:m.Start], " \t")
	after := strings.TrimLeft(text[m.End:], " \t")
	if strings.HasSuffix(before, "[") && strings.HasPrefix(after, "]") {
		return len(before) - 1, len(text) - len(after) + 1, true
	}
	if before == "" || strings.HasSuffix(before, "\n") {
		return m.Start, m.End, true
	}
	return 0, 0, false
}

// headerTitle returns the rest of the header line when the line ends before the next header
// and is short enough to be a title.
func headerTitle(text string, from, limit int) string {
	nl := strings.IndexByte(text[from:], '\n')
	if nl < 0 || from+nl > limit {
		return ""
	}
	title := strings.TrimSpace(text[from : from+nl])
	title = strings.TrimLeft(title, "-–—:. ")
	title = strings.TrimSpace(title)
	if title == "" || len(title) > maxTitleLen {
		return ""
	}
	return title
}

// HeaderCodes returns the normalized codes of the section headers in text, in text order.
func HeaderCodes(text string, families *refcode.Set) []string {
	headers, _ := findHeaders(text, families)
	codes := make([]string, len(headers))
	for i, h := range headers {
		codes[i] = h.code
	}
	return codes
}
