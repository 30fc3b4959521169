// Package config provides configuration loading and structs for the bunkatsu server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/bunkatsu/internal/augment"
	"github.com/hyperjump/bunkatsu/internal/chunker"
	"github.com/hyperjump/bunkatsu/internal/density"
	"github.com/hyperjump/bunkatsu/internal/refindex"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Density    DensityConfig    `yaml:"density"`
	References ReferencesConfig `yaml:"references"`
	Lexicon    LexiconConfig    `yaml:"lexicon"`
	Augment    AugmentConfig    `yaml:"augment"`
	Expansion  ExpansionConfig  `yaml:"expansion"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the paths of the chunk database and the keyword catalog.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	CatalogPath  string `yaml:"catalog_path"`
}

// ChunkingConfig bounds chunk sizes, in bytes of unique content.
type ChunkingConfig struct {
	MinChunkSize   int  `yaml:"min_chunk_size"`
	MaxChunkSize   int  `yaml:"max_chunk_size"`
	BaseChunkSize  int  `yaml:"base_chunk_size"`
	Overlap        *int `yaml:"overlap"`
	MergeThreshold int  `yaml:"merge_threshold"`
}

// Chunker converts the section to the assembler's configuration. An unset overlap takes the
// chunker default.
func (c ChunkingConfig) Chunker() chunker.Config {
	overlap := chunker.DefaultConfig().Overlap
	if c.Overlap != nil {
		overlap = *c.Overlap
	}
	return chunker.Config{
		MinChunkSize:   c.MinChunkSize,
		MaxChunkSize:   c.MaxChunkSize,
		BaseChunkSize:  c.BaseChunkSize,
		Overlap:        overlap,
		MergeThreshold: c.MergeThreshold,
	}
}

// DensityConfig holds the density signal weights.
type DensityConfig struct {
	Weights density.Weights `yaml:"weights"`
}

// ReferencesConfig selects the reference code families. Family order is match priority.
type ReferencesConfig struct {
	Families       []string `yaml:"families"`
	CustomPatterns []string `yaml:"custom_patterns"`
}

// LexiconConfig extends the built-in technical vocabulary.
type LexiconConfig struct {
	ExtraTerms []string `yaml:"extra_terms"`
}

// AugmentConfig limits the annotations kept per chunk.
type AugmentConfig struct {
	MaxKeywords   int `yaml:"max_keywords"`
	MaxKeyPhrases int `yaml:"max_key_phrases"`
}

// Augmenter converts the section to the augmenter's configuration.
func (a AugmentConfig) Augmenter() augment.Config {
	return augment.Config{MaxKeywords: a.MaxKeywords, MaxKeyPhrases: a.MaxKeyPhrases}
}

// ExpansionConfig selects the default context expansion passes. Unset passes use
// refindex.DefaultExpandOptions.
type ExpansionConfig struct {
	Neighbors  *bool `yaml:"neighbors"`
	References *bool `yaml:"references"`
	Backlinks  *bool `yaml:"backlinks"`
}

// Options converts the section to expander options.
func (e ExpansionConfig) Options() refindex.ExpandOptions {
	opts := refindex.DefaultExpandOptions()
	if e.Neighbors != nil {
		opts.Neighbors = *e.Neighbors
	}
	if e.References != nil {
		opts.References = *e.References
	}
	if e.Backlinks != nil {
		opts.Backlinks = *e.Backlinks
	}
	return opts
}

// IngestConfig holds batch ingestion settings.
type IngestConfig struct {
	Workers       int  `yaml:"workers"`
	SkipUnchanged bool `yaml:"skip_unchanged"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories  []string `yaml:"directories"`
	Extensions   []string `yaml:"extensions"`
	Recursive    *bool    `yaml:"recursive"`
	DocumentType string   `yaml:"document_type"`
	DebounceMs   int      `yaml:"debounce_ms"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Debounce returns the quiet interval before a changed file is re-ingested.
func (w *WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// Load reads and parses the config file at path, expands paths, applies defaults and validates
// the result. Unknown keys are ignored.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.CatalogPath = expandPath(cfg.Storage.CatalogPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values that ApplyDefaults cannot repair.
func (c *Config) Validate() error {
	if err := c.Chunking.Chunker().Validate(); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	w := c.Density.Weights
	for _, v := range []float64{w.TechnicalTerms, w.NumericRatio, w.SentenceLength, w.ListMarkup, w.CrossReferences, w.Acronyms} {
		if v < 0 {
			return fmt.Errorf("density: weights cannot be negative")
		}
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("ingest: workers must be at least 1, got %d", c.Ingest.Workers)
	}
	return nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
