// Package indexer turns source documents into committed chunks: it runs the chunking pipeline
// in a bounded worker pool and commits each document to storage, the reference index and the
// keyword catalog.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/bunkatsu/internal/extract"
	"github.com/hyperjump/bunkatsu/internal/fileid"
	"github.com/hyperjump/bunkatsu/internal/keyword"
	"github.com/hyperjump/bunkatsu/internal/metrics"
	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/hyperjump/bunkatsu/internal/segment"
	"github.com/hyperjump/bunkatsu/internal/storage"
	"github.com/hyperjump/bunkatsu/pkg/utils"
)

// TypeAuto asks IngestFile to detect the document type from the text.
const TypeAuto = "auto"

// ReferenceWriter is the mutation side of the reference index.
type ReferenceWriter interface {
	Replace(ctx context.Context, source string, chunks []*models.Chunk) error
	Retire(ctx context.Context, source string) error
}

// Outcome is the result of ingesting one document.
type Outcome string

const (
	OutcomeIndexed Outcome = "indexed"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Report describes the ingestion of one document.
type Report struct {
	SourceLocator string              `json:"source_locator"`
	DocumentType  models.DocumentType `json:"document_type,omitempty"`
	Strategy      models.DocumentType `json:"strategy,omitempty"`
	Outcome       Outcome             `json:"outcome"`
	Chunks        int                 `json:"chunks"`
	ChunkIDs      []string            `json:"chunk_ids,omitempty"`
	Warnings      []segment.Warning   `json:"warnings,omitempty"`
	Error         string              `json:"error,omitempty"`
	Err           error               `json:"-"`
}

func (r *Report) fail(err error) *Report {
	r.Outcome = OutcomeFailed
	r.Err = err
	r.Error = err.Error()
	return r
}

// Indexer commits documents into storage, the reference index and the optional catalog.
type Indexer struct {
	storage       storage.Storage
	refs          ReferenceWriter
	pipeline      *Pipeline
	catalog       keyword.Catalog
	extractor     *extract.Extractor
	metrics       *metrics.Metrics
	workers       int
	skipUnchanged bool
	logger        *zap.Logger

	// commitMu orders commits so storage, index and catalog see sources in the same order.
	commitMu sync.Mutex
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets a logger for debug output (document indexed, skipped, deleted).
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// WithCatalog sets the keyword catalog updated on every commit.
func WithCatalog(c keyword.Catalog) Option {
	return func(idx *Indexer) { idx.catalog = c }
}

// WithExtractor sets the extractor used by IngestFile. The default reads all formats of
// extract.DefaultExtensions.
func WithExtractor(e *extract.Extractor) Option {
	return func(idx *Indexer) { idx.extractor = e }
}

// WithMetrics sets the collectors updated per document.
func WithMetrics(m *metrics.Metrics) Option {
	return func(idx *Indexer) { idx.metrics = m }
}

// WithWorkers bounds the number of documents processed at once. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(idx *Indexer) { idx.workers = n }
}

// WithSkipUnchanged skips documents whose preprocessed text and type match the stored hash.
func WithSkipUnchanged(skip bool) Option {
	return func(idx *Indexer) { idx.skipUnchanged = skip }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(store storage.Storage, refs ReferenceWriter, pipeline *Pipeline, opts ...Option) *Indexer {
	if pipeline == nil {
		pipeline = NewPipeline(nil, nil, nil)
	}
	idx := &Indexer{
		storage:  store,
		refs:     refs,
		pipeline: pipeline,
		workers:  1,
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.workers < 1 {
		idx.workers = 1
	}
	if idx.extractor == nil {
		idx.extractor = extract.NewExtractor()
	}
	idx.logger = utils.OrNop(idx.logger)
	return idx
}

// Ingest chunks and commits one document. The returned report is never nil; on failure its
// Err equals the returned error.
func (idx *Indexer) Ingest(ctx context.Context, in models.DocumentInput) (*Report, error) {
	start := time.Now()
	rep := idx.ingest(ctx, in)
	idx.observe(rep, time.Since(start))
	return rep, rep.Err
}

func (idx *Indexer) ingest(ctx context.Context, in models.DocumentInput) *Report {
	rep := &Report{SourceLocator: in.SourceLocator}
	if err := in.Validate(); err != nil {
		return rep.fail(err)
	}
	rep.DocumentType = in.DocumentType
	if err := ctx.Err(); err != nil {
		return rep.fail(err)
	}

	text := Preprocess(in.Text)
	if idx.skipUnchanged && text != "" {
		if src, err := idx.storage.GetSource(ctx, in.SourceLocator); err == nil && src.TextHash == TextHash(text, in.DocumentType) {
			rep.Outcome = OutcomeSkipped
			rep.Chunks = src.ChunkCount
			idx.logger.Debug("indexer skipping unchanged document", zap.String("source", in.SourceLocator))
			return rep
		}
	}

	proc, err := idx.pipeline.process(in, text)
	if err != nil {
		return rep.fail(err)
	}
	rep.Strategy = proc.Strategy
	rep.Warnings = proc.Warnings
	for _, w := range proc.Warnings {
		idx.logger.Debug("indexer segmentation warning",
			zap.String("source", in.SourceLocator),
			zap.String("kind", string(w.Kind)),
			zap.String("message", w.Message))
	}

	if err := idx.commit(ctx, proc); err != nil {
		return rep.fail(err)
	}
	rep.Outcome = OutcomeIndexed
	rep.Chunks = len(proc.Chunks)
	rep.ChunkIDs = make([]string, len(proc.Chunks))
	for i, c := range proc.Chunks {
		rep.ChunkIDs[i] = c.ID
		idx.metrics.ObserveChunk(string(c.DensityType))
	}
	idx.logger.Debug("indexer document indexed",
		zap.String("source", in.SourceLocator),
		zap.String("strategy", string(proc.Strategy)),
		zap.Int("chunks", len(proc.Chunks)))
	return rep
}

// commit stores the document and publishes it to the index and catalog. A context canceled
// before the storage transaction discards the document. Once stored, the index update runs to
// completion so the index never lags committed storage. When a later step fails the previous
// version of the source is restored, or the source is removed when it is new.
func (idx *Indexer) commit(ctx context.Context, proc *Processed) error {
	idx.commitMu.Lock()
	defer idx.commitMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	src := proc.Source
	prev, prevChunks, err := idx.snapshot(ctx, src.Locator)
	if err != nil {
		return err
	}
	if err := idx.storage.ReplaceSource(ctx, &src, proc.Chunks); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	ctx = context.WithoutCancel(ctx)
	if err := idx.refs.Replace(ctx, src.Locator, proc.Chunks); err != nil {
		idx.rollback(ctx, src.Locator, prev, prevChunks, false)
		return fmt.Errorf("failed to update reference index: %w", err)
	}
	if idx.catalog != nil {
		if err := idx.catalog.Replace(ctx, src.Locator, proc.Chunks); err != nil {
			idx.rollback(ctx, src.Locator, prev, prevChunks, true)
			return fmt.Errorf("failed to update keyword catalog: %w", err)
		}
	}
	return nil
}

// snapshot returns the stored version of a source, or nil when it is not stored yet.
func (idx *Indexer) snapshot(ctx context.Context, locator string) (*models.Source, []*models.Chunk, error) {
	prev, err := idx.storage.GetSource(ctx, locator)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read stored source: %w", err)
	}
	chunks, err := idx.storage.GetChunksBySource(ctx, locator)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read stored chunks: %w", err)
	}
	return prev, chunks, nil
}

// rollback puts storage and the reference index back to prev. With catalog set the catalog is
// restored too.
func (idx *Indexer) rollback(ctx context.Context, locator string, prev *models.Source, chunks []*models.Chunk, catalog bool) {
	var errs []error
	if prev == nil {
		if err := idx.storage.DeleteSource(ctx, locator); err != nil {
			errs = append(errs, err)
		}
		if err := idx.refs.Retire(ctx, locator); err != nil {
			errs = append(errs, err)
		}
		if catalog {
			if err := idx.catalog.DeleteSource(ctx, locator); err != nil {
				errs = append(errs, err)
			}
		}
	} else {
		if err := idx.storage.ReplaceSource(ctx, prev, chunks); err != nil {
			errs = append(errs, err)
		}
		if err := idx.refs.Replace(ctx, locator, chunks); err != nil {
			errs = append(errs, err)
		}
		if catalog {
			if err := idx.catalog.Replace(ctx, locator, chunks); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		idx.logger.Error("indexer rollback incomplete", zap.String("source", locator), zap.Error(err))
		return
	}
	idx.logger.Debug("indexer commit rolled back", zap.String("source", locator), zap.Bool("restored", prev != nil))
}

func (idx *Indexer) observe(rep *Report, elapsed time.Duration) {
	strategy := string(rep.Strategy)
	if strategy == "" {
		strategy = string(rep.DocumentType)
	}
	idx.metrics.ObserveDocument(strategy, string(rep.Outcome), elapsed)
	for _, w := range rep.Warnings {
		idx.metrics.ObserveWarning(string(w.Kind))
	}
	if rep.Err != nil {
		idx.logger.Warn("indexer document failed", zap.String("source", rep.SourceLocator), zap.Error(rep.Err))
	}
}

// IngestBatch ingests inputs with at most the configured number of workers. A failing document
// is reported and does not stop the others. Reports are in input order. The error is non-nil
// only when ctx ends before all documents were handled; documents committed until then stay.
func (idx *Indexer) IngestBatch(ctx context.Context, inputs []models.DocumentInput) ([]*Report, error) {
	reports, err := idx.batch(ctx, len(inputs), func(ctx context.Context, i int) *Report {
		rep, _ := idx.Ingest(ctx, inputs[i])
		return rep
	})
	for i, rep := range reports {
		if rep.SourceLocator == "" {
			rep.SourceLocator = inputs[i].SourceLocator
		}
	}
	return reports, err
}

func (idx *Indexer) batch(ctx context.Context, n int, one func(context.Context, int) *Report) ([]*Report, error) {
	reports := make([]*Report, n)
	var g errgroup.Group
	g.SetLimit(idx.workers)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			reports[i] = one(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		for i, rep := range reports {
			if rep == nil {
				reports[i] = (&Report{}).fail(err)
			}
		}
		return reports, err
	}
	return reports, nil
}

// IngestFile extracts and ingests one file. The locator is derived from the absolute path.
// docType is "regulatory", "generic" or TypeAuto (also the empty string) to detect it.
func (idx *Indexer) IngestFile(ctx context.Context, path, docType string) (*Report, error) {
	start := time.Now()
	locator := fileid.FileLocator(path)
	rep := &Report{SourceLocator: locator}
	in, err := idx.readFile(path, locator, docType)
	if err != nil {
		rep.fail(err)
		idx.observe(rep, time.Since(start))
		return rep, err
	}
	return idx.Ingest(ctx, in)
}

func (idx *Indexer) readFile(path, locator, docType string) (models.DocumentInput, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.DocumentInput{}, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return models.DocumentInput{}, fmt.Errorf("not a regular file: %s", path)
	}
	text, err := idx.extractor.Extract(path)
	if err != nil {
		return models.DocumentInput{}, fmt.Errorf("extract content: %w", err)
	}
	in := models.DocumentInput{Text: text, SourceLocator: locator}
	if docType == "" || strings.EqualFold(docType, TypeAuto) {
		in.DocumentType = idx.DetectDocumentType(text)
		return in, nil
	}
	if in.DocumentType, err = models.ParseDocumentType(docType); err != nil {
		return models.DocumentInput{}, err
	}
	return in, nil
}

// DetectDocumentType guesses the strategy for raw text using the indexer's reference families.
func (idx *Indexer) DetectDocumentType(text string) models.DocumentType {
	return extract.DetectDocumentType(Preprocess(text), idx.pipeline.Families())
}

// IngestPaths ingests files and the matching files below directories. When exts is empty,
// extract.DefaultExtensions is used. Reports are in walk order.
func (idx *Indexer) IngestPaths(ctx context.Context, paths []string, docType string, exts []string) ([]*Report, error) {
	if len(exts) == 0 {
		exts = extract.DefaultExtensions
	}
	files, err := CollectFiles(paths, exts)
	if err != nil {
		return nil, err
	}
	return idx.batch(ctx, len(files), func(ctx context.Context, i int) *Report {
		rep, _ := idx.IngestFile(ctx, files[i], docType)
		return rep
	})
}

// CollectFiles expands paths into the regular files they name or contain whose extension is in
// exts. Explicit file paths are kept regardless of extension.
func CollectFiles(paths []string, exts []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("absolute path: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, abs)
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path != abs && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !ExtensionAllowed(filepath.Ext(path), exts) {
				return nil
			}
			// Resolve symlinks so only regular files are ingested
			if finfo, statErr := os.Stat(path); statErr != nil || !finfo.Mode().IsRegular() {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// ExtensionAllowed reports whether ext is in allowed, case-insensitive and with or without the
// leading dot.
func ExtensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// DeleteSource removes a source from storage, the reference index and the catalog. It returns
// storage.ErrNotFound for unknown sources.
func (idx *Indexer) DeleteSource(ctx context.Context, locator string) error {
	idx.commitMu.Lock()
	defer idx.commitMu.Unlock()

	if err := idx.storage.DeleteSource(ctx, locator); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	if err := idx.refs.Retire(ctx, locator); err != nil {
		return fmt.Errorf("failed to retire from reference index: %w", err)
	}
	if idx.catalog != nil {
		if err := idx.catalog.DeleteSource(ctx, locator); err != nil {
			return fmt.Errorf("failed to delete from keyword catalog: %w", err)
		}
	}
	idx.logger.Debug("indexer source deleted", zap.String("source", locator))
	return nil
}

// DeleteFile removes the source ingested from path. Unknown files are not an error.
func (idx *Indexer) DeleteFile(ctx context.Context, path string) error {
	err := idx.DeleteSource(ctx, fileid.FileLocator(path))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// Rebuild loads every stored source into the reference index and the catalog. It is run at
// startup since the reference index lives in memory.
func (idx *Indexer) Rebuild(ctx context.Context) (sources, chunks int, err error) {
	idx.commitMu.Lock()
	defer idx.commitMu.Unlock()

	err = idx.storage.AllChunks(ctx, func(source string, cs []*models.Chunk) error {
		if err := idx.refs.Replace(ctx, source, cs); err != nil {
			return fmt.Errorf("reference index %s: %w", source, err)
		}
		if idx.catalog != nil {
			if err := idx.catalog.Replace(ctx, source, cs); err != nil {
				return fmt.Errorf("keyword catalog %s: %w", source, err)
			}
		}
		sources++
		chunks += len(cs)
		return nil
	})
	if err != nil {
		return sources, chunks, fmt.Errorf("failed to rebuild indices: %w", err)
	}
	idx.logger.Debug("indexer rebuilt indices", zap.Int("sources", sources), zap.Int("chunks", chunks))
	return sources, chunks, nil
}
