// Package server provides the HTTP API for bunkatsu.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/bunkatsu/internal/config"
	"github.com/hyperjump/bunkatsu/internal/indexer"
	"github.com/hyperjump/bunkatsu/internal/keyword"
	"github.com/hyperjump/bunkatsu/internal/metrics"
	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/hyperjump/bunkatsu/internal/refcode"
	"github.com/hyperjump/bunkatsu/internal/refindex"
	"github.com/hyperjump/bunkatsu/internal/storage"
	"github.com/hyperjump/bunkatsu/pkg/utils"
)

// WatchService manages watched directories. *watcher.Watcher implements it.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// ReferenceReader is the read side of the reference index.
type ReferenceReader interface {
	Entry(code string) models.ReferenceIndexEntry
	Stats() (sources, chunks, sections int)
}

// Server is the HTTP server for the bunkatsu API.
type Server struct {
	indexer  *indexer.Indexer
	storage  storage.Storage
	refs     ReferenceReader
	expander *refindex.Expander
	families *refcode.Set
	catalog  keyword.Catalog
	metrics  *metrics.Metrics
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server

	watch      WatchService
	configPath string
	configMu   sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithCatalog enables the keyword lookup endpoint.
func WithCatalog(c keyword.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithWatch enables watch directory management. When configPath is set, directory changes are
// persisted to the config file.
func WithWatch(w WatchService, configPath string) Option {
	return func(s *Server) {
		s.watch = w
		s.configPath = configPath
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(
	idx *indexer.Indexer,
	store storage.Storage,
	refs ReferenceReader,
	expander *refindex.Expander,
	families *refcode.Set,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		indexer:  idx,
		storage:  store,
		refs:     refs,
		expander: expander,
		families: families,
		config:   cfg,
		logger:   utils.OrNop(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.families == nil {
		s.families = refcode.DefaultSet()
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Post("/documents", s.handleIngestDocument)
		r.Post("/documents/batch", s.handleIngestBatch)
		r.Delete("/documents", s.handleDeleteDocument)
		r.Get("/sources", s.handleListSources)
		r.Get("/sources/chunks", s.handleSourceChunks)
		r.Get("/chunks/{id}", s.handleGetChunk)
		r.Post("/expand", s.handleExpand)
		r.Get("/references/{code}", s.handleReference)
		r.Get("/lookup", s.handleLookup)
		r.Get("/status", s.handleStatus)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
