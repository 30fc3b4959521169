package indexer

import (
	"errors"

	"github.com/hyperjump/bunkatsu/internal/augment"
	"github.com/hyperjump/bunkatsu/internal/chunker"
	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/hyperjump/bunkatsu/internal/refcode"
	"github.com/hyperjump/bunkatsu/internal/segment"
)

// ErrNoText is returned for documents that are empty after preprocessing.
var ErrNoText = errors.New("no text to chunk")

// Pipeline runs the pure stages for one document: preprocessing, segmentation, assembly and
// augmentation. It holds no per-document state and is safe for concurrent use.
type Pipeline struct {
	families  *refcode.Set
	assembler *chunker.Assembler
	augmenter *augment.Augmenter
}

// NewPipeline returns a pipeline over the given stages. Nil stages use the defaults.
func NewPipeline(families *refcode.Set, assembler *chunker.Assembler, augmenter *augment.Augmenter) *Pipeline {
	if families == nil {
		families = refcode.DefaultSet()
	}
	if assembler == nil {
		assembler = chunker.NewAssembler(chunker.DefaultConfig(), nil)
	}
	if augmenter == nil {
		augmenter = augment.New(augment.DefaultConfig(), nil, families)
	}
	return &Pipeline{families: families, assembler: assembler, augmenter: augmenter}
}

// Families returns the reference families used for section parsing.
func (p *Pipeline) Families() *refcode.Set {
	return p.families
}

// Processed is the uncommitted result for one document.
type Processed struct {
	Source models.Source
	// Strategy is the segmenter actually used.
	Strategy models.DocumentType
	Chunks   []*models.Chunk
	Warnings []segment.Warning
}

// Process chunks one document. Identical input yields identical chunks.
func (p *Pipeline) Process(in models.DocumentInput) (*Processed, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return p.process(in, Preprocess(in.Text))
}

func (p *Pipeline) process(in models.DocumentInput, text string) (*Processed, error) {
	if text == "" {
		return nil, ErrNoText
	}
	cfg := p.assembler.Config()
	seg := segment.Segment(models.DocumentInput{
		Text:          text,
		DocumentType:  in.DocumentType,
		SourceLocator: in.SourceLocator,
	}, segment.Options{
		Families:      p.families,
		BaseChunkSize: cfg.BaseChunkSize,
		MaxChunkSize:  cfg.MaxChunkSize,
	})
	chunks := p.assembler.Assemble(seg.Units, cfg.Overlap)
	if len(chunks) == 0 {
		return nil, ErrNoText
	}
	for i, c := range chunks {
		chunks[i] = p.augmenter.Augment(c)
	}
	return &Processed{
		Source: models.Source{
			Locator:      in.SourceLocator,
			DocumentType: in.DocumentType,
			TextHash:     TextHash(text, in.DocumentType),
		},
		Strategy: seg.Strategy,
		Chunks:   chunks,
		Warnings: seg.Warnings,
	}, nil
}
