// Package storage defines the persistence interface for sources and chunks.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/bunkatsu/internal/models"
)

// ErrNotFound is returned when a source or chunk does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines source and chunk persistence operations.
type Storage interface {
	// ReplaceSource atomically swaps all chunks of src.Locator for chunks and upserts the source
	// record. CreatedAt of every chunk and IngestedAt of src are stamped.
	ReplaceSource(ctx context.Context, src *models.Source, chunks []*models.Chunk) error
	GetSource(ctx context.Context, locator string) (*models.Source, error)
	ListSources(ctx context.Context, offset, limit int) ([]*models.Source, error)
	// DeleteSource removes the source and its chunks.
	DeleteSource(ctx context.Context, locator string) error

	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	// GetChunks returns the chunks with the given ids that exist, in input order.
	GetChunks(ctx context.Context, ids []string) ([]*models.Chunk, error)
	GetChunksBySource(ctx context.Context, locator string) ([]*models.Chunk, error)
	// AllChunks calls fn for every chunk grouped by source in ordinal order.
	AllChunks(ctx context.Context, fn func(source string, chunks []*models.Chunk) error) error

	CountSources(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
