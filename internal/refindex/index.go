// Package refindex maintains the cross-reference index over indexed chunks and expands
// retrieved chunk sets with their neighbors and referenced sections.
package refindex

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/hyperjump/bunkatsu/pkg/utils"
)

// ErrClosed is returned for mutations sent after Close.
var ErrClosed = errors.New("reference index closed")

// Lookup is the read-only view of the index used at query time.
type Lookup interface {
	// Chunk returns the indexed chunk with id.
	Chunk(id string) (*models.Chunk, bool)
	// ChunksForSection returns ids of chunks whose section id is code.
	ChunksForSection(code string) []string
	// ReferencedBy returns ids of chunks whose references include code.
	ReferencedBy(code string) []string
	// Neighbor returns the id of the chunk at ordinal within source.
	Neighbor(source string, ordinal int) (string, bool)
	// Entry returns both directions for code.
	Entry(code string) models.ReferenceIndexEntry
}

type opKind int

const (
	opIndex opKind = iota
	opReplace
	opRetire
)

type request struct {
	kind   opKind
	source string
	chunks []*models.Chunk
	reply  chan error
}

type idSet map[string]struct{}

// Index is the single-writer reference index. Mutations are messages handled in order by its
// owner goroutine; each message is applied under one write lock, so readers never observe a
// partially replaced source.
type Index struct {
	mu           sync.RWMutex
	chunks       map[string]*models.Chunk
	bySource     map[string][]string // ids by ordinal; empty string marks a gap
	sections     map[string]idSet
	referencedBy map[string]idSet

	requests  chan request
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger for the index.
func WithLogger(logger *zap.Logger) Option {
	return func(x *Index) {
		x.logger = logger
	}
}

// New starts an empty index. Call Close to stop its owner goroutine.
func New(opts ...Option) *Index {
	x := &Index{
		chunks:       make(map[string]*models.Chunk),
		bySource:     make(map[string][]string),
		sections:     make(map[string]idSet),
		referencedBy: make(map[string]idSet),
		requests:     make(chan request),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(x)
	}
	x.logger = utils.OrNop(x.logger)
	go x.run()
	return x
}

func (x *Index) run() {
	for {
		select {
		case req := <-x.requests:
			x.apply(req)
			req.reply <- nil
		case <-x.done:
			return
		}
	}
}

func (x *Index) apply(req request) {
	x.mu.Lock()
	defer x.mu.Unlock()
	switch req.kind {
	case opIndex:
		for _, c := range req.chunks {
			x.insert(c)
		}
	case opReplace:
		removed := x.retire(req.source)
		for _, c := range req.chunks {
			x.insert(c)
		}
		x.logger.Debug("reference index replaced source",
			zap.String("source", req.source),
			zap.Int("retired", removed),
			zap.Int("indexed", len(req.chunks)))
	case opRetire:
		removed := x.retire(req.source)
		x.logger.Debug("reference index retired source", zap.String("source", req.source), zap.Int("retired", removed))
	}
}

func (x *Index) send(ctx context.Context, req request) error {
	req.reply = make(chan error, 1)
	select {
	case <-x.done:
		return ErrClosed
	default:
	}
	select {
	case x.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-x.done:
		return ErrClosed
	}
	return <-req.reply
}

// Index inserts one chunk. A chunk already present under the same id is replaced.
func (x *Index) Index(ctx context.Context, c *models.Chunk) error {
	return x.send(ctx, request{kind: opIndex, chunks: []*models.Chunk{c}})
}

// Replace retires every chunk of source and inserts chunks in one step.
func (x *Index) Replace(ctx context.Context, source string, chunks []*models.Chunk) error {
	return x.send(ctx, request{kind: opReplace, source: source, chunks: chunks})
}

// Retire removes every chunk of source.
func (x *Index) Retire(ctx context.Context, source string) error {
	return x.send(ctx, request{kind: opRetire, source: source})
}

// Close stops the owner goroutine. Reads keep working on the final state.
func (x *Index) Close() error {
	x.closeOnce.Do(func() { close(x.done) })
	return nil
}

func (x *Index) insert(c *models.Chunk) {
	if c == nil || c.ID == "" {
		return
	}
	if _, ok := x.chunks[c.ID]; ok {
		x.remove(c.ID)
	}
	ids := x.bySource[c.SourceLocator]
	for len(ids) <= c.Ordinal {
		ids = append(ids, "")
	}
	if c.Ordinal >= 0 {
		// A different chunk at the same position of the source is evicted.
		if prev := ids[c.Ordinal]; prev != "" {
			x.remove(prev)
		}
		ids[c.Ordinal] = c.ID
	}
	x.chunks[c.ID] = c
	x.bySource[c.SourceLocator] = ids
	if c.SectionID != "" {
		add(x.sections, c.SectionID, c.ID)
	}
	for _, r := range c.ReferencesTo {
		add(x.referencedBy, r, c.ID)
	}
}

func (x *Index) remove(id string) {
	c, ok := x.chunks[id]
	if !ok {
		return
	}
	delete(x.chunks, id)
	if ids := x.bySource[c.SourceLocator]; c.Ordinal >= 0 && c.Ordinal < len(ids) && ids[c.Ordinal] == id {
		ids[c.Ordinal] = ""
	}
	del(x.sections, c.SectionID, id)
	for _, r := range c.ReferencesTo {
		del(x.referencedBy, r, id)
	}
}

func (x *Index) retire(source string) int {
	ids := x.bySource[source]
	n := 0
	for _, id := range ids {
		if id != "" {
			x.remove(id)
			n++
		}
	}
	delete(x.bySource, source)
	return n
}

func add(m map[string]idSet, key, id string) {
	set, ok := m[key]
	if !ok {
		set = make(idSet)
		m[key] = set
	}
	set[id] = struct{}{}
}

func del(m map[string]idSet, key, id string) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(m, key)
	}
}

// Chunk implements Lookup.
func (x *Index) Chunk(id string) (*models.Chunk, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	c, ok := x.chunks[id]
	return c, ok
}

// ChunksForSection implements Lookup. Ids are ordered by source, then ordinal.
func (x *Index) ChunksForSection(code string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.sorted(x.sections[code])
}

// ReferencedBy implements Lookup. Ids are ordered by source, then ordinal.
func (x *Index) ReferencedBy(code string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.sorted(x.referencedBy[code])
}

// Neighbor implements Lookup.
func (x *Index) Neighbor(source string, ordinal int) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	ids := x.bySource[source]
	if ordinal < 0 || ordinal >= len(ids) || ids[ordinal] == "" {
		return "", false
	}
	return ids[ordinal], true
}

// Entry implements Lookup.
func (x *Index) Entry(code string) models.ReferenceIndexEntry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return models.ReferenceIndexEntry{
		Code:              code,
		SectionChunks:     x.sorted(x.sections[code]),
		ReferencingChunks: x.sorted(x.referencedBy[code]),
	}
}

// Stats returns the number of indexed sources, chunks and section codes.
func (x *Index) Stats() (sources, chunks, sections int) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.bySource), len(x.chunks), len(x.sections)
}

// sorted must be called with the read lock held.
func (x *Index) sorted(set idSet) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := x.chunks[out[i]], x.chunks[out[j]]
		if a.SourceLocator != b.SourceLocator {
			return a.SourceLocator < b.SourceLocator
		}
		return a.Ordinal < b.Ordinal
	})
	return out
}
