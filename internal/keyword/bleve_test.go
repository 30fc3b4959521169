package keyword

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/bunkatsu/internal/models"
)

func catalogChunk(id, source, section, text string, keywords ...string) *models.Chunk {
	return &models.Chunk{ID: id, SourceLocator: source, SectionID: section, Text: text, Keywords: keywords}
}

func newCatalog(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "catalog"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func ids(results []*Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newCatalog(t)
	ctx := context.Background()
	require.NoError(t, idx.Replace(ctx, "cs25", []*models.Chunk{
		catalogChunk("a", "cs25", "CS 25.571", "The structure shall be evaluated for fatigue and corrosion.", "fatigue"),
		catalogChunk("b", "cs25", "CS 25.573", "Bird strike damage tolerance of the windshield."),
	}))

	results, err := idx.Search(ctx, "fatigue", 10, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "cs25", results[0].Source)
	assert.Equal(t, "CS 25.571", results[0].SectionID)

	n, err := idx.DocCount()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestBleveIndex_OverlapIsNotIndexed(t *testing.T) {
	idx := newCatalog(t)
	ctx := context.Background()
	c := catalogChunk("b", "doc", "", "previoustail body of the second chunk")
	c.OverlapLength = len("previoustail ")
	require.NoError(t, idx.Replace(ctx, "doc", []*models.Chunk{c}))

	results, err := idx.Search(ctx, "previoustail", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleveIndex_ReplaceDropsOldEntries(t *testing.T) {
	idx := newCatalog(t)
	ctx := context.Background()
	require.NoError(t, idx.Replace(ctx, "doc", []*models.Chunk{
		catalogChunk("a", "doc", "", "onlyinfirst version"),
		catalogChunk("b", "doc", "", "second chunk"),
	}))
	require.NoError(t, idx.Replace(ctx, "other", []*models.Chunk{catalogChunk("x", "other", "", "onlyinfirst elsewhere")}))
	require.NoError(t, idx.Replace(ctx, "doc", []*models.Chunk{catalogChunk("c", "doc", "", "rewritten text")}))

	results, err := idx.Search(ctx, "onlyinfirst", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ids(results))

	require.NoError(t, idx.DeleteSource(ctx, "doc"))
	n, err := idx.DocCount()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestBleveIndex_Filters(t *testing.T) {
	idx := newCatalog(t)
	ctx := context.Background()
	require.NoError(t, idx.Replace(ctx, "a", []*models.Chunk{
		catalogChunk("a0", "a", "CS 25.571", "inspection interval"),
		catalogChunk("a1", "a", "CS 25.573", "inspection method"),
	}))
	require.NoError(t, idx.Replace(ctx, "b", []*models.Chunk{catalogChunk("b0", "b", "CS 25.571", "inspection programme")}))

	results, err := idx.Search(ctx, "inspection", 10, &SearchOptions{Source: "a"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a0", "a1"}, ids(results))

	results, err = idx.Search(ctx, "inspection", 10, &SearchOptions{Section: "CS 25.571"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a0", "b0"}, ids(results))
}

func TestBleveIndex_KeywordBoostAndFuzzy(t *testing.T) {
	idx := newCatalog(t)
	ctx := context.Background()
	require.NoError(t, idx.Replace(ctx, "doc", []*models.Chunk{
		catalogChunk("text", "doc", "", "corrosion corrosion corrosion is mentioned in passing"),
		catalogChunk("kw", "doc", "", "prevention of corrosion", "corrosion"),
	}))

	results, err := idx.Search(ctx, "corrosion", 10, &SearchOptions{KeywordBoost: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "kw", results[0].ID)

	results, err = idx.Search(ctx, "corosion", 10, &SearchOptions{FuzzyEnabled: true, Fuzziness: 1})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestNewBleveIndex_ReopensExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "catalog")
	ctx := context.Background()

	idx, err := NewBleveIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Replace(ctx, "doc", []*models.Chunk{catalogChunk("a", "doc", "", "uniqueword")}))
	require.NoError(t, idx.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	idx, err = NewBleveIndex(path)
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()
	results, err := idx.Search(ctx, "uniqueword", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(results))
}

func TestNewMemIndex(t *testing.T) {
	idx, err := NewMemIndex()
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()
	require.NoError(t, idx.Replace(context.Background(), "doc", []*models.Chunk{catalogChunk("a", "doc", "", "hello")}))
	n, err := idx.DocCount()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
