// Package lexicon holds the vocabulary tables used by density scoring and keyword extraction:
// domain-technical terms and stopwords for English, German and French.
package lexicon

import (
	"sort"
	"strings"
)

// Lexicon is an immutable set of technical terms and stopwords. Build it once and share the
// pointer; all methods are safe for concurrent use.
type Lexicon struct {
	technical map[string]struct{}
	stopwords map[string]struct{}
}

// New returns a lexicon with the built-in tables plus extraTerms as technical vocabulary.
// Terms are matched case-insensitively.
func New(extraTerms []string) *Lexicon {
	l := &Lexicon{
		technical: make(map[string]struct{}, len(technicalTerms)+len(extraTerms)),
		stopwords: make(map[string]struct{}, len(englishStopwords)+len(germanStopwords)+len(frenchStopwords)),
	}
	for _, t := range technicalTerms {
		l.technical[t] = struct{}{}
	}
	for _, t := range extraTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			l.technical[t] = struct{}{}
		}
	}
	for _, list := range [][]string{englishStopwords, germanStopwords, frenchStopwords} {
		for _, w := range list {
			l.stopwords[w] = struct{}{}
		}
	}
	return l
}

// Default returns a lexicon with only the built-in tables.
func Default() *Lexicon {
	return New(nil)
}

// IsTechnical reports whether token is a domain-technical term.
func (l *Lexicon) IsTechnical(token string) bool {
	_, ok := l.technical[strings.ToLower(token)]
	return ok
}

// IsStopword reports whether token is a stopword in any supported language.
func (l *Lexicon) IsStopword(token string) bool {
	_, ok := l.stopwords[strings.ToLower(token)]
	return ok
}

// TechnicalTerms returns the technical vocabulary, sorted.
func (l *Lexicon) TechnicalTerms() []string {
	out := make([]string, 0, len(l.technical))
	for t := range l.technical {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
