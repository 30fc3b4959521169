// Package augment annotates chunks with keywords, key phrases and outbound references.
package augment

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/bunkatsu/internal/lexicon"
	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/hyperjump/bunkatsu/internal/refcode"
	"github.com/hyperjump/bunkatsu/internal/segment"
)

// MaxReferences is the hard cap on references stored per chunk.
const MaxReferences = 5

const (
	technicalBonus = 2.0
	codeShapeBonus = 1.5
)

// Config limits the annotations kept per chunk.
type Config struct {
	MaxKeywords   int
	MaxKeyPhrases int
}

// DefaultConfig returns the default annotation limits.
func DefaultConfig() Config {
	return Config{MaxKeywords: 10, MaxKeyPhrases: 3}
}

var (
	codeShapeRe   = regexp.MustCompile(`^(?:[A-Za-z]{1,6}-?\d+(?:\.\d+[A-Za-z]?)?|\d{2,3}\.\d{1,4}[A-Za-z]?)$`)
	bareIntegerRe = regexp.MustCompile(`^\d+$`)
	obligationRe  = regexp.MustCompile(`(?i)\b(?:shall|must|is required|are required|may not|muss|müssen|doit|doivent)\b`)
	contextualRe  = regexp.MustCompile(`(?i)\b(?:see|refer to|in accordance with|as defined in|pursuant to|specified in|gemäß|siehe)\s+(?:paragraph\s+)?(\d{2,3}\.\d{1,4}[a-z]?)\b`)
	internalRe    = regexp.MustCompile(`(?i)\b(?:paragraph|sub-paragraph|subparagraph)\s+((?:\((?:[a-z]|\d{1,2}|[ivx]{1,4})\))+)`)
)

// Augmenter is immutable and safe for concurrent use.
type Augmenter struct {
	cfg  Config
	lex  *lexicon.Lexicon
	refs *refcode.Set
}

// New returns an augmenter. Nil tables fall back to the built-in defaults.
func New(cfg Config, lex *lexicon.Lexicon, refs *refcode.Set) *Augmenter {
	if lex == nil {
		lex = lexicon.Default()
	}
	if refs == nil {
		refs = refcode.DefaultSet()
	}
	return &Augmenter{cfg: cfg, lex: lex, refs: refs}
}

// Augment returns a copy of c with keywords, key phrases and references extracted from its
// unique content.
func (a *Augmenter) Augment(c *models.Chunk) *models.Chunk {
	out := *c
	content := c.Content()
	out.Keywords = a.Keywords(content)
	out.KeyPhrases = a.KeyPhrases(content)
	out.ReferencesTo = a.References(content, c.SectionID)
	return &out
}

type term struct {
	key   string
	count int
	first int
	bonus float64
}

// Keywords ranks the tokens of text by frequency weighted by the technical and code-shape
// bonuses. Ties keep first-occurrence order.
func (a *Augmenter) Keywords(text string) []string {
	terms := make(map[string]*term)
	var order []*term
	for i, w := range strings.Fields(text) {
		tok := trimToken(w)
		if tok == "" || strings.ContainsAny(tok, "()[]{}") {
			continue
		}
		code := codeShapeRe.MatchString(tok)
		if !code {
			if bareIntegerRe.MatchString(tok) || !hasLetter(tok) {
				continue
			}
			if utf8.RuneCountInString(tok) < 3 || a.lex.IsStopword(tok) {
				continue
			}
		}
		key := strings.ToLower(tok)
		if code {
			key = strings.ToUpper(tok)
		}
		if t, ok := terms[key]; ok {
			t.count++
			continue
		}
		bonus := 1.0
		if a.lex.IsTechnical(tok) {
			bonus *= technicalBonus
		}
		if code {
			bonus *= codeShapeBonus
		}
		t := &term{key: key, count: 1, first: i, bonus: bonus}
		terms[key] = t
		order = append(order, t)
	}
	sort.SliceStable(order, func(i, j int) bool {
		si, sj := float64(order[i].count)*order[i].bonus, float64(order[j].count)*order[j].bonus
		if si != sj {
			return si > sj
		}
		return order[i].first < order[j].first
	})
	n := min(a.cfg.MaxKeywords, len(order))
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = order[i].key
	}
	return out
}

// KeyPhrases returns up to MaxKeyPhrases sentences that carry an obligation marker, verbatim.
func (a *Augmenter) KeyPhrases(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range segment.Sentences(text) {
		if len(out) >= a.cfg.MaxKeyPhrases {
			break
		}
		if seen[s] || !obligationRe.MatchString(s) {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

type mention struct {
	pos  int
	code string
}

// References extracts outbound references from text in reading order: direct code mentions,
// bare section numbers after a contextual phrase ("see 25.573") qualified with the family of
// ownSection, and internal paragraph references ("paragraph (a)(1)") under ownSection. The own
// section and section headers contained in the text are not references. At most MaxReferences
// codes are returned.
func (a *Augmenter) References(text, ownSection string) []string {
	var found []mention
	direct, _ := a.refs.FindNonOverlapping(text)
	for _, m := range direct {
		found = append(found, mention{pos: m.Start, code: m.Code})
	}
	for _, loc := range contextualRe.FindAllStringSubmatchIndex(text, -1) {
		if code, ok := a.refs.QualifyBare(ownSection, text[loc[2]:loc[3]]); ok {
			found = append(found, mention{pos: loc[2], code: code})
		}
	}
	if ownSection != "" {
		for _, loc := range internalRe.FindAllStringSubmatchIndex(text, -1) {
			found = append(found, mention{pos: loc[2], code: ownSection + strings.ToLower(text[loc[2]:loc[3]])})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	skip := map[string]bool{ownSection: true, "": true}
	if ownSection != "" {
		for _, h := range segment.HeaderCodes(text, a.refs) {
			skip[h] = true
		}
	}
	var out []string
	for _, m := range found {
		if skip[m.code] {
			continue
		}
		skip[m.code] = true
		out = append(out, m.code)
		if len(out) == MaxReferences {
			break
		}
	}
	return out
}

// trimToken strips punctuation from both ends, keeping inner dots, dashes and slashes.
func trimToken(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
