// Package segment turns preprocessed document text into document units. Regulation text is cut at
// section headers; everything else is cut at paragraph and sentence boundaries.
package segment

import (
	"fmt"

	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/hyperjump/bunkatsu/internal/refcode"
)

// Limits bounds unit sizes in bytes.
type Limits struct {
	Target int
	Max    int
}

func (l Limits) normalized() Limits {
	if l.Max <= 0 {
		l.Max = l.Target
	}
	if l.Target <= 0 || l.Target > l.Max {
		l.Target = l.Max
	}
	return l
}

// WarningKind classifies a recoverable segmentation problem.
type WarningKind string

const (
	// InputMalformed: regulation text had no header and was split generically.
	InputMalformed WarningKind = "input_malformed"
	// PatternAmbiguous: overlapping header matches were resolved earliest-first.
	PatternAmbiguous WarningKind = "pattern_ambiguous"
	// SizeInfeasible: a unit had to be hard cut.
	SizeInfeasible WarningKind = "size_infeasible"
)

// Warning is a recoverable problem found while segmenting one document.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Offset  int         `json:"offset,omitempty"`
	Message string      `json:"message"`
}

// Options configure Segment.
type Options struct {
	Families *refcode.Set
	// BaseChunkSize is the packing size of the generic splitter.
	BaseChunkSize int
	MaxChunkSize  int
}

// Result is the segmentation of one document.
type Result struct {
	Units []models.DocumentUnit
	// Strategy is the producer actually used; regulation text without headers ends up generic.
	Strategy models.DocumentType
	Warnings []Warning
}

// Segment dispatches on the document type. Regulation text without any header falls back to the
// generic splitter.
func Segment(input models.DocumentInput, opts Options) Result {
	generic := Limits{Target: opts.BaseChunkSize, Max: opts.MaxChunkSize}
	var res Result
	switch input.DocumentType {
	case models.DocumentRegulatory:
		sec := ParseSections(input.Text, input.SourceLocator, opts.Families)
		res.Warnings = append(res.Warnings, sec.Warnings...)
		if !sec.Fallback {
			res.Units = sec.Units
			res.Strategy = models.DocumentRegulatory
			return res
		}
		res.Units = SplitStructural(input.Text, input.SourceLocator, generic)
		res.Strategy = models.DocumentGeneric
	default:
		res.Units = SplitStructural(input.Text, input.SourceLocator, generic)
		res.Strategy = models.DocumentGeneric
	}
	res.Warnings = append(res.Warnings, hardCutWarnings(res.Units)...)
	return res
}

// Resize cuts a unit down to target using its producer's boundary rule. Generic units are split
// when longer than target. Regulation units are split only when longer than limits.Max, at the
// sub-paragraph marker closest to target. Pieces keep the unit's section.
func Resize(u models.DocumentUnit, target int, limits Limits) []models.DocumentUnit {
	limits = limits.normalized()
	if target <= 0 || target > limits.Max {
		target = limits.Max
	}
	var pieces []piece
	switch u.Strategy {
	case models.DocumentRegulatory:
		if len(u.Text) <= limits.Max {
			return []models.DocumentUnit{u}
		}
		pieces = cutAll(u.Text, target, markerCut)
	case models.DocumentGeneric:
		if len(u.Text) <= target {
			return []models.DocumentUnit{u}
		}
		pieces = pack(parseBlocks(u.Text), Limits{Target: target, Max: limits.Max})
	default:
		return []models.DocumentUnit{u}
	}
	out := make([]models.DocumentUnit, 0, len(pieces))
	for i, p := range pieces {
		part := u
		part.Text = p.text
		part.Lead = p.lead
		part.HardCut = p.hard || (u.HardCut && i == len(pieces)-1)
		if i == 0 {
			part.Lead = u.Lead
		}
		out = append(out, part)
	}
	return out
}

func hardCutWarnings(units []models.DocumentUnit) []Warning {
	var out []Warning
	for _, u := range units {
		if u.HardCut {
			out = append(out, Warning{
				Kind:    SizeInfeasible,
				Message: fmt.Sprintf("unit %d hard cut without sentence boundary", u.Ordinal),
			})
		}
	}
	return out
}
