package config

import (
	"github.com/hyperjump/bunkatsu/internal/augment"
	"github.com/hyperjump/bunkatsu/internal/chunker"
	"github.com/hyperjump/bunkatsu/internal/density"
	"github.com/hyperjump/bunkatsu/internal/extract"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/bunkatsu/data/db/chunks.db"
	}
	if cfg.Storage.CatalogPath == "" {
		cfg.Storage.CatalogPath = "/usr/local/var/bunkatsu/data/indices/catalog"
	}

	def := chunker.DefaultConfig()
	if cfg.Chunking.MinChunkSize == 0 {
		cfg.Chunking.MinChunkSize = def.MinChunkSize
	}
	if cfg.Chunking.MaxChunkSize == 0 {
		cfg.Chunking.MaxChunkSize = def.MaxChunkSize
	}
	if cfg.Chunking.BaseChunkSize == 0 {
		cfg.Chunking.BaseChunkSize = def.BaseChunkSize
	}
	if cfg.Chunking.Overlap == nil {
		o := def.Overlap
		cfg.Chunking.Overlap = &o
	}
	if cfg.Chunking.MergeThreshold == 0 {
		cfg.Chunking.MergeThreshold = def.MergeThreshold
	}

	if cfg.Density.Weights == (density.Weights{}) {
		cfg.Density.Weights = density.DefaultWeights()
	}

	aug := augment.DefaultConfig()
	if cfg.Augment.MaxKeywords == 0 {
		cfg.Augment.MaxKeywords = aug.MaxKeywords
	}
	if cfg.Augment.MaxKeyPhrases == 0 {
		cfg.Augment.MaxKeyPhrases = aug.MaxKeyPhrases
	}

	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}

	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = append([]string(nil), extract.DefaultExtensions...)
	}
	if cfg.Watch.DocumentType == "" {
		cfg.Watch.DocumentType = "auto"
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 400
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
