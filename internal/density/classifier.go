// Package density scores how information-dense a span of text is and maps the score to a target
// chunk size.
package density

import (
	"strings"
	"unicode"

	"github.com/hyperjump/bunkatsu/internal/lexicon"
	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/hyperjump/bunkatsu/internal/refcode"
	"github.com/hyperjump/bunkatsu/internal/segment"
	"github.com/hyperjump/bunkatsu/pkg/utils"
)

// Score thresholds, checked from the densest category down.
const (
	VeryDenseThreshold = 0.55
	DenseThreshold     = 0.35
	NormalThreshold    = 0.18
)

// TargetSize returns the target chunk size in characters of a density category. Unknown
// categories get the sparse size.
func TargetSize(cat models.DensityCategory) int {
	switch cat {
	case models.DensityVeryDense:
		return 800
	case models.DensityDense:
		return 1200
	case models.DensityNormal:
		return 1500
	default:
		return 2000
	}
}

// Weights of the six signals. Zero weights disable a signal.
type Weights struct {
	TechnicalTerms  float64 `yaml:"technical_terms" json:"technical_terms"`
	NumericRatio    float64 `yaml:"numeric_ratio" json:"numeric_ratio"`
	SentenceLength  float64 `yaml:"sentence_length" json:"sentence_length"`
	ListMarkup      float64 `yaml:"list_markup" json:"list_markup"`
	CrossReferences float64 `yaml:"cross_references" json:"cross_references"`
	Acronyms        float64 `yaml:"acronyms" json:"acronyms"`
}

// DefaultWeights returns the default signal weights.
func DefaultWeights() Weights {
	return Weights{
		TechnicalTerms:  0.25,
		NumericRatio:    0.20,
		SentenceLength:  0.15,
		ListMarkup:      0.10,
		CrossReferences: 0.15,
		Acronyms:        0.15,
	}
}

func (w Weights) sum() float64 {
	return w.TechnicalTerms + w.NumericRatio + w.SentenceLength + w.ListMarkup + w.CrossReferences + w.Acronyms
}

// Signals are the normalized inputs of a score, each in [0,1].
type Signals struct {
	TechnicalTerms  float64 `json:"technical_terms"`
	NumericRatio    float64 `json:"numeric_ratio"`
	SentenceLength  float64 `json:"sentence_length"`
	ListMarkup      float64 `json:"list_markup"`
	CrossReferences float64 `json:"cross_references"`
	Acronyms        float64 `json:"acronyms"`
}

// Classifier is pure: the same text always yields the same assessment.
type Classifier struct {
	lex     *lexicon.Lexicon
	refs    *refcode.Set
	weights Weights
}

// NewClassifier returns a classifier. Nil tables fall back to the built-in defaults. Negative
// weights are treated as zero.
func NewClassifier(lex *lexicon.Lexicon, refs *refcode.Set, weights Weights) *Classifier {
	if lex == nil {
		lex = lexicon.Default()
	}
	if refs == nil {
		refs = refcode.DefaultSet()
	}
	for _, w := range []*float64{&weights.TechnicalTerms, &weights.NumericRatio, &weights.SentenceLength,
		&weights.ListMarkup, &weights.CrossReferences, &weights.Acronyms} {
		if *w < 0 {
			*w = 0
		}
	}
	return &Classifier{lex: lex, refs: refs, weights: weights}
}

// Classify scores text and maps the score onto a category and target size. Empty text is sparse
// with score 0.
func (c *Classifier) Classify(text string) models.DensityAssessment {
	s := c.Signals(text)
	w := c.weights
	score := 0.0
	if total := w.sum(); total > 0 {
		score = (w.TechnicalTerms*s.TechnicalTerms +
			w.NumericRatio*s.NumericRatio +
			w.SentenceLength*s.SentenceLength +
			w.ListMarkup*s.ListMarkup +
			w.CrossReferences*s.CrossReferences +
			w.Acronyms*s.Acronyms) / total
	}
	score = utils.Clamp01(score)
	cat := Categorize(score)
	return models.DensityAssessment{Category: cat, Score: score, TargetChunkSize: TargetSize(cat)}
}

// Categorize maps a score onto a density category.
func Categorize(score float64) models.DensityCategory {
	switch {
	case score >= VeryDenseThreshold:
		return models.DensityVeryDense
	case score >= DenseThreshold:
		return models.DensityDense
	case score >= NormalThreshold:
		return models.DensityNormal
	default:
		return models.DensitySparse
	}
}

// Signals computes the six normalized signals of text.
func (c *Classifier) Signals(text string) Signals {
	var s Signals
	words := strings.Fields(text)
	if len(words) == 0 {
		return s
	}
	n := float64(len(words))

	technical, acronyms := 0, 0
	for _, w := range words {
		tok := trimToken(w)
		if tok == "" {
			continue
		}
		if c.lex.IsTechnical(tok) {
			technical++
		}
		if isAcronym(tok) {
			acronyms++
		}
	}
	s.TechnicalTerms = utils.Saturate(float64(technical)/n, 0.15)
	s.Acronyms = utils.Saturate(float64(acronyms)/n, 0.10)

	numeric, visible := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		visible++
		if unicode.IsDigit(r) || strings.ContainsRune(formulaSymbols, r) {
			numeric++
		}
	}
	if visible > 0 {
		s.NumericRatio = utils.Saturate(float64(numeric)/float64(visible), 0.15)
	}

	if sentences := segment.SentenceCount(text); sentences > 0 {
		s.SentenceLength = utils.Clamp01((n/float64(sentences) - 10) / 20)
	}

	lines, markup := 0, 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines++
		if segment.IsListItem(line) || segment.IsTableRow(line) {
			markup++
		}
	}
	if lines > 0 {
		s.ListMarkup = utils.Saturate(float64(markup)/float64(lines), 0.30)
	}

	refs, _ := c.refs.FindNonOverlapping(text)
	s.CrossReferences = utils.Saturate(float64(len(refs))*100/n, 3)
	return s
}

const formulaSymbols = "=+-*/^%<>±×÷≤≥≈√∑∆Δπµ°"

func trimToken(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

// isAcronym reports whether tok has at least two letters, all upper case, e.g. "APU" or "AMC1".
func isAcronym(tok string) bool {
	letters := 0
	for _, r := range tok {
		switch {
		case unicode.IsUpper(r):
			letters++
		case unicode.IsLetter(r):
			return false
		}
	}
	return letters >= 2
}
