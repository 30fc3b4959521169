// Package keyword provides the term catalog over indexed chunks: chunk text, extracted
// keywords and key phrases are searchable so a retrieval front end can pick the chunk ids that
// are then handed to context expansion.
package keyword

import (
	"context"

	"github.com/hyperjump/bunkatsu/internal/models"
)

// SearchOptions optional parameters for catalog search. Nil means use defaults.
type SearchOptions struct {
	// KeywordBoost multiplies the score contribution from matches in the extracted keywords and
	// key phrases. Values > 1 rank chunks whose annotations match above plain text matches.
	KeywordBoost float64
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance for fuzzy matching (1 or 2). Default is 2.
	Fuzziness int
	// Source restricts hits to one source locator.
	Source string
	// Section restricts hits to one section id.
	Section string
}

// Catalog defines keyword catalog operations.
type Catalog interface {
	// Replace swaps every catalog entry of source for chunks in one batch.
	Replace(ctx context.Context, source string, chunks []*models.Chunk) error
	// DeleteSource removes every entry of source.
	DeleteSource(ctx context.Context, source string) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	// DocCount returns the number of catalogued chunks.
	DocCount() (uint64, error)
	Close() error
}

// Result is a single catalog hit.
type Result struct {
	ID        string  `json:"id"`
	Score     float64 `json:"score"`
	Source    string  `json:"source_locator,omitempty"`
	SectionID string  `json:"section_id,omitempty"`
}
