package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/bunkatsu/internal/models"
)

func newStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "db", "chunks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleChunks(locator string, n int) []*models.Chunk {
	chunks := make([]*models.Chunk, n)
	for i := range chunks {
		chunks[i] = &models.Chunk{
			ID:            locator + "#" + string(rune('0'+i)),
			Text:          "overlap body " + string(rune('a'+i)),
			OverlapLength: 8,
			SourceLocator: locator,
			Ordinal:       i,
			SectionID:     "CS 25.571",
			SectionTitle:  "Damage tolerance",
			DensityType:   models.DensityDense,
			DensityScore:  0.42,
			Keywords:      []string{"fatigue", "crack"},
			KeyPhrases:    []string{"The structure shall be inspected."},
			ReferencesTo:  []string{"CS 25.573"},
			HardCut:       i == 1,
		}
	}
	return chunks
}

func TestSQLiteStorage_ReplaceAndRead(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	src := &models.Source{Locator: "doc", DocumentType: models.DocumentRegulatory, TextHash: "h1"}
	chunks := sampleChunks("doc", 3)
	require.NoError(t, store.ReplaceSource(ctx, src, chunks))
	assert.False(t, src.IngestedAt.IsZero())
	assert.Equal(t, 3, src.ChunkCount)
	assert.False(t, chunks[0].CreatedAt.IsZero())

	got, err := store.GetChunk(ctx, "doc#1")
	require.NoError(t, err)
	assert.Equal(t, "overlap body b", got.Text)
	assert.Equal(t, "body b", got.Content())
	assert.Equal(t, "CS 25.571", got.SectionID)
	assert.Equal(t, models.DensityDense, got.DensityType)
	assert.Equal(t, []string{"fatigue", "crack"}, got.Keywords)
	assert.Equal(t, []string{"CS 25.573"}, got.ReferencesTo)
	assert.True(t, got.HardCut)

	bySource, err := store.GetChunksBySource(ctx, "doc")
	require.NoError(t, err)
	require.Len(t, bySource, 3)
	for i, c := range bySource {
		assert.Equal(t, i, c.Ordinal)
	}

	some, err := store.GetChunks(ctx, []string{"doc#2", "missing", "doc#0", "doc#2"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "doc#2", some[0].ID)
	assert.Equal(t, "doc#0", some[1].ID)

	gotSrc, err := store.GetSource(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentRegulatory, gotSrc.DocumentType)
	assert.Equal(t, "h1", gotSrc.TextHash)
	assert.Equal(t, 3, gotSrc.ChunkCount)
}

func TestSQLiteStorage_ReplaceDropsOldChunks(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceSource(ctx, &models.Source{Locator: "doc", DocumentType: models.DocumentGeneric, TextHash: "h1"}, sampleChunks("doc", 3)))
	require.NoError(t, store.ReplaceSource(ctx, &models.Source{Locator: "doc", DocumentType: models.DocumentGeneric, TextHash: "h2"}, sampleChunks("doc", 1)))

	chunks, err := store.GetChunksBySource(ctx, "doc")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
	_, err = store.GetChunk(ctx, "doc#2")
	assert.ErrorIs(t, err, ErrNotFound)

	src, err := store.GetSource(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "h2", src.TextHash)

	n, err := store.CountSources(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = store.CountChunks(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSQLiteStorage_DeleteSource(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.ReplaceSource(ctx, &models.Source{Locator: "a", DocumentType: models.DocumentGeneric}, sampleChunks("a", 2)))
	require.NoError(t, store.ReplaceSource(ctx, &models.Source{Locator: "b", DocumentType: models.DocumentGeneric}, sampleChunks("b", 2)))

	require.NoError(t, store.DeleteSource(ctx, "a"))
	assert.ErrorIs(t, store.DeleteSource(ctx, "a"), ErrNotFound)
	_, err := store.GetSource(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := store.CountChunks(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "chunks cascade with their source")

	list, err := store.ListSources(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].Locator)
}

func TestSQLiteStorage_AllChunks(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.ReplaceSource(ctx, &models.Source{Locator: "b", DocumentType: models.DocumentGeneric}, sampleChunks("b", 2)))
	require.NoError(t, store.ReplaceSource(ctx, &models.Source{Locator: "a", DocumentType: models.DocumentGeneric}, sampleChunks("a", 3)))

	groups := map[string]int{}
	var order []string
	require.NoError(t, store.AllChunks(ctx, func(source string, chunks []*models.Chunk) error {
		order = append(order, source)
		groups[source] = len(chunks)
		for i, c := range chunks {
			assert.Equal(t, i, c.Ordinal)
		}
		return nil
	}))
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, map[string]int{"a": 3, "b": 2}, groups)
}

func TestSQLiteStorage_EmptyLists(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	chunks := []*models.Chunk{{ID: "x", Text: "t", SourceLocator: "s", DensityType: models.DensitySparse}}
	require.NoError(t, store.ReplaceSource(ctx, &models.Source{Locator: "s", DocumentType: models.DocumentGeneric}, chunks))

	got, err := store.GetChunk(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, got.Keywords)
	assert.Empty(t, got.ReferencesTo)
	assert.Empty(t, got.SectionID)

	none, err := store.GetChunks(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
