package models

import "time"

// DensityCategory is the coarse content density of a span of text.
type DensityCategory string

const (
	DensityVeryDense DensityCategory = "very_dense"
	DensityDense     DensityCategory = "dense"
	DensityNormal    DensityCategory = "normal"
	DensitySparse    DensityCategory = "sparse"
)

// DensityAssessment is the classifier verdict for one span of text.
type DensityAssessment struct {
	Category        DensityCategory `json:"category"`
	Score           float64         `json:"score"`
	TargetChunkSize int             `json:"target_chunk_size"`
}

// DocumentUnit is a span produced by a segmenter before final sizing. It is never persisted.
type DocumentUnit struct {
	Text          string
	SectionID     string
	SectionTitle  string
	SourceLocator string
	Ordinal       int
	Strategy      DocumentType // producer, so resizing uses the same boundary rule
	// Lead is the whitespace that separated the unit from the previous one in the source text
	// ("\n\n", "\n", " " or empty after a hard cut).
	Lead          string
	HardCut       bool
}

// Chunk is the persisted, retrieval-ready unit of document text.
type Chunk struct {
	ID            string          `json:"id" db:"id"`
	Text          string          `json:"text" db:"text"`
	OverlapLength int             `json:"overlap_length" db:"overlap_length"`
	SourceLocator string          `json:"source_locator" db:"source_locator"`
	Ordinal       int             `json:"ordinal" db:"ordinal"`
	SectionID     string          `json:"section_id,omitempty" db:"section_id"`
	SectionTitle  string          `json:"section_title,omitempty" db:"section_title"`
	DensityType   DensityCategory `json:"density_type" db:"density_type"`
	DensityScore  float64         `json:"density_score" db:"density_score"`
	Keywords      []string        `json:"keywords" db:"keywords"`
	KeyPhrases    []string        `json:"key_phrases" db:"key_phrases"`
	ReferencesTo  []string        `json:"references_to" db:"references_to"`
	// HardCut is set when the size policy could not be met: a cut without a sentence or
	// sub-paragraph boundary, or an undersized piece that could not be merged.
	HardCut       bool            `json:"hard_cut,omitempty" db:"hard_cut"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// Content returns the chunk text without the overlap copied from the previous chunk.
func (c *Chunk) Content() string {
	if c.OverlapLength <= 0 || c.OverlapLength > len(c.Text) {
		return c.Text
	}
	return c.Text[c.OverlapLength:]
}

// ContentLength is the byte length of Content; size invariants are checked against it.
func (c *Chunk) ContentLength() int {
	return len(c.Content())
}

// References reports whether code is among the chunk's outbound references.
func (c *Chunk) References(code string) bool {
	for _, r := range c.ReferencesTo {
		if r == code {
			return true
		}
	}
	return false
}
