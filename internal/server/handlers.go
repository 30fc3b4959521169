package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/bunkatsu/internal/config"
	"github.com/hyperjump/bunkatsu/internal/indexer"
	"github.com/hyperjump/bunkatsu/internal/keyword"
	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/hyperjump/bunkatsu/internal/refindex"
	"github.com/hyperjump/bunkatsu/internal/storage"
)

const (
	maxBatchDocuments = 1000
	defaultLookupSize = 10
	maxLookupSize     = 100
	defaultPageSize   = 50
	maxPageSize       = 1000
)

// resolveInput detects "auto" document types and validates the input.
func (s *Server) resolveInput(in *models.DocumentInput) error {
	if strings.EqualFold(string(in.DocumentType), indexer.TypeAuto) {
		in.DocumentType = s.indexer.DetectDocumentType(in.Text)
	}
	return in.Validate()
}

func ingestStatus(rep *indexer.Report) int {
	if rep.Outcome == indexer.OutcomeSkipped {
		return http.StatusOK
	}
	return http.StatusCreated
}

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.resolveInput(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("ingest document request",
		zap.String("source", input.SourceLocator),
		zap.String("document_type", string(input.DocumentType)),
		zap.Int("bytes", len(input.Text)))
	rep, err := s.indexer.Ingest(r.Context(), input)
	if err != nil {
		if errors.Is(err, indexer.ErrNoText) {
			s.respondJSON(w, http.StatusUnprocessableEntity, rep)
			return
		}
		s.logger.Error("ingest failed", zap.String("source", input.SourceLocator), zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, rep)
		return
	}
	s.respondJSON(w, ingestStatus(rep), rep)
}

type batchRequest struct {
	Documents []models.DocumentInput `json:"documents"`
}

type batchResponse struct {
	Reports []*indexer.Report `json:"reports"`
	Indexed int               `json:"indexed"`
	Skipped int               `json:"skipped"`
	Failed  int               `json:"failed"`
}

func (s *Server) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		s.respondError(w, http.StatusBadRequest, "documents cannot be empty")
		return
	}
	if len(req.Documents) > maxBatchDocuments {
		s.respondError(w, http.StatusBadRequest, "too many documents")
		return
	}
	for i := range req.Documents {
		// Invalid inputs fail in their own report.
		if strings.EqualFold(string(req.Documents[i].DocumentType), indexer.TypeAuto) {
			req.Documents[i].DocumentType = s.indexer.DetectDocumentType(req.Documents[i].Text)
		}
	}
	s.logger.Debug("ingest batch request", zap.Int("documents", len(req.Documents)))
	reports, err := s.indexer.IngestBatch(r.Context(), req.Documents)
	if err != nil {
		s.logger.Error("ingest batch interrupted", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	resp := batchResponse{Reports: reports}
	for _, rep := range reports {
		switch rep.Outcome {
		case indexer.OutcomeIndexed:
			resp.Indexed++
		case indexer.OutcomeSkipped:
			resp.Skipped++
		default:
			resp.Failed++
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		s.respondError(w, http.StatusBadRequest, "source is required")
		return
	}
	s.logger.Debug("delete document request", zap.String("source", source))
	if err := s.indexer.DeleteSource(r.Context(), source); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "source not found")
			return
		}
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"source": source, "status": "deleted"})
}

// intParam parses a non-negative query parameter, clamping it to limit when limit > 0.
func intParam(r *http.Request, name string, def, limit int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n, true
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	offset, ok := intParam(r, "offset", 0, 0)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, ok := intParam(r, "limit", defaultPageSize, maxPageSize)
	if !ok || limit == 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	sources, err := s.storage.ListSources(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list sources failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sources == nil {
		sources = []*models.Source{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"sources": sources, "offset": offset, "limit": limit})
}

func (s *Server) handleSourceChunks(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		s.respondError(w, http.StatusBadRequest, "source is required")
		return
	}
	chunks, err := s.storage.GetChunksBySource(r.Context(), source)
	if err != nil {
		s.logger.Error("get source chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(chunks) == 0 {
		s.respondError(w, http.StatusNotFound, "source not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"source": source, "chunks": chunks})
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	chunk, err := s.storage.GetChunk(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "chunk not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, chunk)
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	var query models.ExpandQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := expandOptions(s.expander.Options(), &query)
	s.logger.Debug("expand request",
		zap.Int("chunk_ids", len(query.ChunkIDs)),
		zap.Bool("neighbors", opts.Neighbors),
		zap.Bool("references", opts.References),
		zap.Bool("backlinks", opts.Backlinks))

	expansions := s.expander.ExpandWith(query.ChunkIDs, opts)
	resp := models.ExpandResponse{ChunkIDs: refindex.IDs(expansions), Expansions: expansions}
	if resp.Expansions == nil {
		resp.Expansions = []models.Expansion{}
		resp.ChunkIDs = []string{}
	}
	if query.IncludeChunks && len(resp.ChunkIDs) > 0 {
		chunks, err := s.storage.GetChunks(r.Context(), resp.ChunkIDs)
		if err != nil {
			s.logger.Error("expand: load chunks failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Chunks = chunks
	}
	reasons := make([]string, len(expansions))
	for i, e := range expansions {
		reasons[i] = string(e.Reason)
	}
	s.metrics.ObserveExpansion(reasons)
	s.respondJSON(w, http.StatusOK, resp)
}

func expandOptions(def refindex.ExpandOptions, q *models.ExpandQuery) refindex.ExpandOptions {
	if q.Neighbors != nil {
		def.Neighbors = *q.Neighbors
	}
	if q.References != nil {
		def.References = *q.References
	}
	if q.Backlinks != nil {
		def.Backlinks = *q.Backlinks
	}
	return def
}

func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "code")
	code, ok := s.families.Normalize(raw)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "not a reference code: "+raw)
		return
	}
	entry := s.refs.Entry(code)
	if len(entry.SectionChunks) == 0 && len(entry.ReferencingChunks) == 0 {
		s.respondError(w, http.StatusNotFound, "reference not indexed: "+code)
		return
	}
	s.respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword catalog not enabled")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, ok := intParam(r, "limit", defaultLookupSize, maxLookupSize)
	if !ok || limit == 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	opts := &keyword.SearchOptions{
		Source:       r.URL.Query().Get("source"),
		Section:      r.URL.Query().Get("section"),
		FuzzyEnabled: r.URL.Query().Get("fuzzy") == "true",
	}
	results, err := s.catalog.Search(r.Context(), q, limit, opts)
	if err != nil {
		s.logger.Error("lookup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []*keyword.Result{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"query": q, "results": results})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusResponse is the shape of GET /api/v1/status.
type StatusResponse struct {
	Sources        int64         `json:"sources"`
	Chunks         int64         `json:"chunks"`
	IndexedSources int           `json:"indexed_sources"`
	IndexedChunks  int           `json:"indexed_chunks"`
	SectionCodes   int           `json:"section_codes"`
	CatalogEntries *uint64       `json:"catalog_entries,omitempty"`
	DiskUsageBytes *int64        `json:"disk_usage_bytes,omitempty"`
	Config         *StatusConfig `json:"config,omitempty"`
}

// StatusConfig is the configuration summary included in the status.
type StatusConfig struct {
	MinChunkSize   int      `json:"min_chunk_size"`
	MaxChunkSize   int      `json:"max_chunk_size"`
	BaseChunkSize  int      `json:"base_chunk_size"`
	Overlap        int      `json:"overlap"`
	MergeThreshold int      `json:"merge_threshold"`
	Families       []string `json:"families"`
	DatabasePath   string   `json:"database_path,omitempty"`
	CatalogPath    string   `json:"catalog_path,omitempty"`
}

// Status collects storage, reference index and catalog counts with the active chunking settings.
func (s *Server) Status(ctx context.Context) (*StatusResponse, error) {
	sourceCount, err := s.storage.CountSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sources: %w", err)
	}
	chunkCount, err := s.storage.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	resp := &StatusResponse{Sources: sourceCount, Chunks: chunkCount}
	resp.IndexedSources, resp.IndexedChunks, resp.SectionCodes = s.refs.Stats()
	if s.catalog != nil {
		if n, err := s.catalog.DocCount(); err == nil {
			resp.CatalogEntries = &n
		}
	}
	if s.config != nil {
		s.configMu.Lock()
		c := s.config.Chunking.Chunker()
		resp.Config = &StatusConfig{
			MinChunkSize:   c.MinChunkSize,
			MaxChunkSize:   c.MaxChunkSize,
			BaseChunkSize:  c.BaseChunkSize,
			Overlap:        c.Overlap,
			MergeThreshold: c.MergeThreshold,
			Families:       s.families.Families(),
			DatabasePath:   s.config.Storage.DatabasePath,
			CatalogPath:    s.config.Storage.CatalogPath,
		}
		s.configMu.Unlock()
		if diskBytes, err := storage.DiskUsageBytes(resp.Config.DatabasePath, resp.Config.CatalogPath); err == nil {
			resp.DiskUsageBytes = &diskBytes
		}
	}
	return resp, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	dirs := s.watch.Directories()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": dirs})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatch()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatch()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatch writes the current watch directories to the config file, if one is known.
func (s *Server) persistWatch() {
	if s.configPath == "" || s.config == nil {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
