package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/bunkatsu/internal/models"
)

const (
	fieldContent    = "content"
	fieldKeywords   = "keywords"
	fieldKeyPhrases = "key_phrases"
	fieldSource     = "source"
	fieldSection    = "section_id"
	fieldReferences = "references"

	// deletePageSize bounds one page of the source scan run before a replace.
	deletePageSize = 1000
)

// entry is the catalog document stored for one chunk.
type entry struct {
	Content    string   `json:"content"`
	Keywords   []string `json:"keywords"`
	KeyPhrases []string `json:"key_phrases"`
	Source     string   `json:"source"`
	SectionID  string   `json:"section_id"`
	References []string `json:"references"`
}

func newEntry(c *models.Chunk) entry {
	return entry{
		Content:    c.Content(),
		Keywords:   c.Keywords,
		KeyPhrases: c.KeyPhrases,
		Source:     c.SourceLocator,
		SectionID:  c.SectionID,
		References: c.ReferencesTo,
	}
}

// BleveIndex implements Catalog using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is reused; the
// indexer refills it from storage on rebuild. Remove the directory after changing the mapping.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemIndex returns an in-memory catalog, used when no catalog path is configured.
func NewMemIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	// Standard analyzer (lowercase + tokenize, no stemming) so "fatigue" matches exactly and
	// code-like keywords such as "25.571" survive tokenization.
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	text.Store = false
	doc.AddFieldMappingsAt(fieldContent, text)
	doc.AddFieldMappingsAt(fieldKeywords, text)
	doc.AddFieldMappingsAt(fieldKeyPhrases, text)

	exact := bleve.NewKeywordFieldMapping()
	doc.AddFieldMappingsAt(fieldSource, exact)
	doc.AddFieldMappingsAt(fieldSection, exact)
	doc.AddFieldMappingsAt(fieldReferences, exact)

	im.AddDocumentMapping("chunk", doc)
	im.DefaultType = "chunk"
	im.DefaultMapping = doc
	return im
}

// Replace deletes the entries of source and indexes chunks in one batch.
func (b *BleveIndex) Replace(ctx context.Context, source string, chunks []*models.Chunk) error {
	old, err := b.sourceIDs(ctx, source)
	if err != nil {
		return err
	}
	batch := b.index.NewBatch()
	for _, id := range old {
		batch.Delete(id)
	}
	for _, c := range chunks {
		if err := batch.Index(c.ID, newEntry(c)); err != nil {
			return fmt.Errorf("catalog chunk %s: %w", c.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("catalog batch for %s: %w", source, err)
	}
	return nil
}

// DeleteSource removes every entry of source.
func (b *BleveIndex) DeleteSource(ctx context.Context, source string) error {
	return b.Replace(ctx, source, nil)
}

func (b *BleveIndex) sourceIDs(ctx context.Context, source string) ([]string, error) {
	var ids []string
	for from := 0; ; from += deletePageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q := bleve.NewTermQuery(source)
		q.SetField(fieldSource)
		req := bleve.NewSearchRequestOptions(q, deletePageSize, from, false)
		res, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("Bleve source scan failed: %w", err)
		}
		for _, hit := range res.Hits {
			ids = append(ids, hit.ID)
		}
		if len(res.Hits) < deletePageSize {
			return ids, nil
		}
	}
}

// Search runs a match query over chunk text and annotations and returns up to limit results.
// With opts.KeywordBoost > 1 the keyword and key phrase clauses are boosted against the text
// clause. Source and Section restrict the hits with exact term filters.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if limit <= 0 {
		limit = 10
	}
	boost := 1.0
	fuzzy := false
	fuzziness := 2
	var source, section string
	if opts != nil {
		if opts.KeywordBoost > 0 {
			boost = opts.KeywordBoost
		}
		fuzzy = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
		source, section = opts.Source, opts.Section
	}

	var q blevequery.Query
	if boost <= 1.0 {
		q = b.fieldQuery(query, "", fuzzy, fuzziness, 1)
	} else {
		q = bleve.NewDisjunctionQuery(
			b.fieldQuery(query, fieldContent, fuzzy, fuzziness, 1),
			b.fieldQuery(query, fieldKeywords, fuzzy, fuzziness, boost),
			b.fieldQuery(query, fieldKeyPhrases, fuzzy, fuzziness, boost),
		)
	}
	if source != "" || section != "" {
		must := []blevequery.Query{q}
		if source != "" {
			tq := bleve.NewTermQuery(source)
			tq.SetField(fieldSource)
			must = append(must, tq)
		}
		if section != "" {
			tq := bleve.NewTermQuery(section)
			tq.SetField(fieldSection)
			must = append(must, tq)
		}
		q = bleve.NewConjunctionQuery(must...)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{fieldSource, fieldSection}
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		r := &Result{ID: hit.ID, Score: hit.Score}
		if s, ok := hit.Fields[fieldSource].(string); ok {
			r.Source = s
		}
		if s, ok := hit.Fields[fieldSection].(string); ok {
			r.SectionID = s
		}
		out[i] = r
	}
	return out, nil
}

// fieldQuery builds a match query, or a disjunction of fuzzy term queries, restricted to field
// when field is not empty.
func (b *BleveIndex) fieldQuery(queryStr, field string, fuzzy bool, fuzziness int, boost float64) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if !fuzzy || len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		mq.SetBoost(boost)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		fq.SetBoost(boost)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// DocCount returns the number of catalogued chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
