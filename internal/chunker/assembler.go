// Package chunker assembles document units into sized, overlapping chunks.
package chunker

import (
	"fmt"
	"strings"

	"github.com/hyperjump/bunkatsu/internal/density"
	"github.com/hyperjump/bunkatsu/internal/fileid"
	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/hyperjump/bunkatsu/internal/segment"
	"github.com/hyperjump/bunkatsu/pkg/utils"
)

// Config bounds chunk sizes. All sizes are bytes of unique (non-overlap) content.
type Config struct {
	MinChunkSize   int
	MaxChunkSize   int
	BaseChunkSize  int
	Overlap        int
	MergeThreshold int
}

// DefaultConfig returns the default chunk size policy.
func DefaultConfig() Config {
	return Config{
		MinChunkSize:   200,
		MaxChunkSize:   2400,
		BaseChunkSize:  1500,
		Overlap:        150,
		MergeThreshold: 300,
	}
}

// Validate checks that the sizes are consistent.
func (c Config) Validate() error {
	if c.MinChunkSize <= 0 {
		return fmt.Errorf("min_chunk_size must be positive, got %d", c.MinChunkSize)
	}
	if c.MaxChunkSize < c.MinChunkSize {
		return fmt.Errorf("max_chunk_size %d is below min_chunk_size %d", c.MaxChunkSize, c.MinChunkSize)
	}
	if c.BaseChunkSize < c.MinChunkSize || c.BaseChunkSize > c.MaxChunkSize {
		return fmt.Errorf("base_chunk_size %d must be within [%d, %d]", c.BaseChunkSize, c.MinChunkSize, c.MaxChunkSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("overlap cannot be negative, got %d", c.Overlap)
	}
	if c.MergeThreshold < 0 || c.MergeThreshold > c.MaxChunkSize {
		return fmt.Errorf("merge_threshold %d must be within [0, %d]", c.MergeThreshold, c.MaxChunkSize)
	}
	return nil
}

// Threshold is the content size below which a piece is merged with a neighbor.
func (c Config) Threshold() int {
	return max(c.MinChunkSize, c.MergeThreshold)
}

// Assembler turns the units of one document into chunks. It holds no per-call state and may
// be shared between goroutines.
type Assembler struct {
	cfg        Config
	classifier *density.Classifier
}

// NewAssembler returns an assembler using classifier for per-unit sizing. A nil classifier
// uses the default tables and weights.
func NewAssembler(cfg Config, classifier *density.Classifier) *Assembler {
	if classifier == nil {
		classifier = density.NewClassifier(nil, nil, density.DefaultWeights())
	}
	return &Assembler{cfg: cfg, classifier: classifier}
}

// Config returns the size policy of the assembler.
func (a *Assembler) Config() Config {
	return a.cfg
}

// Assemble sizes, merges and overlaps the units of one document. Units are resized to their
// density target with the boundary rule of their producer, pieces below Threshold are merged,
// and every chunk but the first gets the word-aligned tail of its predecessor prepended.
// Identical input yields identical output.
func (a *Assembler) Assemble(units []models.DocumentUnit, overlap int) []*models.Chunk {
	if len(units) == 0 {
		return nil
	}
	locator := units[0].SourceLocator
	limits := segment.Limits{Max: a.cfg.MaxChunkSize}

	var pieces []models.DocumentUnit
	for _, u := range units {
		if strings.TrimSpace(u.Text) == "" {
			continue
		}
		target := utils.ClampInt(a.classifier.Classify(u.Text).TargetChunkSize, a.cfg.MinChunkSize, a.cfg.MaxChunkSize)
		limits.Target = target
		pieces = append(pieces, segment.Resize(u, target, limits)...)
	}

	merged := a.merge(pieces)
	chunks := make([]*models.Chunk, len(merged))
	for i, p := range merged {
		as := a.classifier.Classify(p.Text)
		chunks[i] = &models.Chunk{
			ID:            fileid.ChunkID(locator, i),
			Text:          p.Text,
			SourceLocator: locator,
			Ordinal:       i,
			SectionID:     p.SectionID,
			SectionTitle:  p.SectionTitle,
			DensityType:   as.Category,
			DensityScore:  as.Score,
			HardCut:       p.HardCut,
		}
	}
	applyOverlap(chunks, overlap)
	return chunks
}

// merge joins pieces shorter than the threshold forward into the following pieces. When that
// would exceed the maximum the piece joins its predecessor instead, and when neither fits it is
// kept and flagged. A short final piece joins its predecessor only within the same section.
func (a *Assembler) merge(pieces []models.DocumentUnit) []models.DocumentUnit {
	threshold := a.cfg.Threshold()
	limit := a.cfg.MaxChunkSize
	out := make([]models.DocumentUnit, 0, len(pieces))
	for i := 0; i < len(pieces); {
		cur := pieces[i]
		i++
		for len(cur.Text) < threshold && i < len(pieces) && joinedLen(cur, pieces[i]) <= limit {
			cur = join(cur, pieces[i])
			i++
		}
		if len(cur.Text) < threshold && len(out) > 0 {
			prev := &out[len(out)-1]
			fits := joinedLen(*prev, cur) <= limit
			if i < len(pieces) && fits {
				*prev = join(*prev, cur)
				continue
			}
			if i == len(pieces) && fits && prev.SectionID == cur.SectionID {
				*prev = join(*prev, cur)
				continue
			}
		}
		if len(cur.Text) < threshold && i < len(pieces) {
			cur.HardCut = true
		}
		out = append(out, cur)
	}
	return out
}

func joinedLen(a, b models.DocumentUnit) int {
	return len(a.Text) + len(b.Lead) + len(b.Text)
}

// join appends b to a. The earliest non-empty section survives.
func join(a, b models.DocumentUnit) models.DocumentUnit {
	out := a
	out.Text = a.Text + b.Lead + b.Text
	if out.SectionID == "" {
		out.SectionID = b.SectionID
		out.SectionTitle = b.SectionTitle
	}
	out.HardCut = a.HardCut || b.HardCut
	return out
}
