package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/bunkatsu/internal/augment"
	"github.com/hyperjump/bunkatsu/internal/chunker"
	"github.com/hyperjump/bunkatsu/internal/config"
	"github.com/hyperjump/bunkatsu/internal/density"
	"github.com/hyperjump/bunkatsu/internal/indexer"
	"github.com/hyperjump/bunkatsu/internal/keyword"
	"github.com/hyperjump/bunkatsu/internal/lexicon"
	"github.com/hyperjump/bunkatsu/internal/metrics"
	"github.com/hyperjump/bunkatsu/internal/refcode"
	"github.com/hyperjump/bunkatsu/internal/refindex"
	"github.com/hyperjump/bunkatsu/internal/storage"
)

// Components holds initialized services.
type Components struct {
	Families *refcode.Set
	Storage  *storage.SQLiteStorage
	Refs     *refindex.Index
	Expander *refindex.Expander
	Catalog  *keyword.BleveIndex
	Metrics  *metrics.Metrics
	Indexer  *indexer.Indexer
}

// Close releases the storage, reference index and catalog.
func (c *Components) Close() {
	if c.Refs != nil {
		_ = c.Refs.Close()
	}
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// newPipeline builds the chunking stages from configuration.
func newPipeline(cfg *config.Config) (*indexer.Pipeline, *refcode.Set, error) {
	families, err := refcode.NewSet(cfg.References.Families, cfg.References.CustomPatterns)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build reference families: %w", err)
	}
	lex := lexicon.New(cfg.Lexicon.ExtraTerms)
	classifier := density.NewClassifier(lex, families, cfg.Density.Weights)
	assembler := chunker.NewAssembler(cfg.Chunking.Chunker(), classifier)
	augmenter := augment.New(cfg.Augment.Augmenter(), lex, families)
	return indexer.NewPipeline(families, assembler, augmenter), families, nil
}

// initializeComponents opens storage and the catalog, wires the indexer and reloads the
// persisted chunks into the in-memory reference index.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	pipeline, families, err := newPipeline(cfg)
	if err != nil {
		return nil, err
	}
	c := &Components{Families: families}

	c.Storage, err = storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if cfg.Storage.CatalogPath == "" {
		c.Catalog, err = keyword.NewMemIndex()
	} else {
		if err = os.MkdirAll(filepath.Dir(cfg.Storage.CatalogPath), 0755); err == nil {
			c.Catalog, err = keyword.NewBleveIndex(cfg.Storage.CatalogPath)
		}
	}
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword catalog: %w", err)
	}

	c.Refs = refindex.New(refindex.WithLogger(logger))
	c.Expander = refindex.NewExpander(c.Refs, cfg.Expansion.Options())
	c.Metrics = metrics.New(nil)
	c.Indexer = indexer.NewIndexer(c.Storage, c.Refs, pipeline,
		indexer.WithLogger(logger),
		indexer.WithCatalog(c.Catalog),
		indexer.WithMetrics(c.Metrics),
		indexer.WithWorkers(cfg.Ingest.Workers),
		indexer.WithSkipUnchanged(cfg.Ingest.SkipUnchanged),
	)

	sources, chunks, err := c.Indexer.Rebuild(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	logger.Debug("indices loaded", zap.Int("sources", sources), zap.Int("chunks", chunks))
	return c, nil
}
