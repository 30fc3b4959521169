// Package watcher keeps the index in step with source directories: changed files are
// re-ingested after a debounce and removed or renamed files are retired.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/bunkatsu/internal/extract"
	"github.com/hyperjump/bunkatsu/internal/indexer"
	"github.com/hyperjump/bunkatsu/pkg/utils"
)

const defaultDebounce = 400 * time.Millisecond

// Sink receives the file changes. *indexer.Indexer implements it.
type Sink interface {
	IngestFile(ctx context.Context, path, docType string) (*indexer.Report, error)
	DeleteFile(ctx context.Context, path string) error
}

// Watcher watches root directories and forwards file changes to a Sink.
type Watcher struct {
	sink       Sink
	extensions []string
	recursive  bool
	docType    string
	debounce   time.Duration
	logger     *zap.Logger

	mu        sync.Mutex
	ctx       context.Context
	fsw       *fsnotify.Watcher
	roots     []string
	rootPaths map[string][]string // root -> watched directories
	pending   map[string]*time.Timer
	inflight  sync.WaitGroup
	done      chan struct{}
	stopOnce  sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output (directory changes, file events).
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithExtensions restricts the watched files. Default extract.DefaultExtensions.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) { w.extensions = exts }
}

// WithRecursive watches subdirectories of the roots. Default true.
func WithRecursive(recursive bool) Option {
	return func(w *Watcher) { w.recursive = recursive }
}

// WithDocumentType sets the type hint passed to the sink. Default indexer.TypeAuto.
func WithDocumentType(docType string) Option {
	return func(w *Watcher) { w.docType = docType }
}

// WithDebounce sets how long a file must be quiet before it is re-ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a watcher that forwards changes below roots to sink.
func NewWatcher(sink Sink, roots []string, opts ...Option) *Watcher {
	w := &Watcher{
		sink:      sink,
		recursive: true,
		docType:   indexer.TypeAuto,
		debounce:  defaultDebounce,
		rootPaths: make(map[string][]string),
		pending:   make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			w.roots = append(w.roots, filepath.Clean(abs))
		}
	}
	if len(w.extensions) == 0 {
		w.extensions = extract.DefaultExtensions
	}
	w.logger = utils.OrNop(w.logger)
	return w
}

// Start watches the roots, creating missing ones. It returns once the watches are in place;
// events are handled until ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.fsw != nil {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	w.ctx = ctx
	w.logger.Debug("watcher starting", zap.Strings("roots", w.roots), zap.Strings("extensions", w.extensions), zap.Bool("recursive", w.recursive))
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			_ = fsw.Close()
			w.fsw = nil
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()
	go w.run(ctx, fsw.Events, fsw.Errors)
	return nil
}

func (w *Watcher) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			w.logger.Debug("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.underRoot(path) || ignored(filepath.Base(path)) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		// A renamed file shows up again under its new name as Create.
		w.cancelPending(path)
		if w.matchExtension(path) {
			w.retire(path)
		}
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if info.Mode().IsRegular() && w.matchExtension(path) {
			w.schedule(path)
		}
	}
}

// handleNewDirectory watches a directory created or moved below a root and ingests its files.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return
	}
	fsw := w.fsw
	recursive := w.recursive
	w.mu.Unlock()
	if !recursive {
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && ignored(d.Name()) {
				return filepath.SkipDir
			}
			if err := fsw.Add(path); err != nil {
				w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		if !ignored(d.Name()) && w.matchExtension(path) {
			w.schedule(path)
		}
		return nil
	})
}

// ignored reports editor swap files and hidden entries.
func ignored(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp")
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, root := range w.roots {
		if inDir(root, path) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) matchExtension(path string) bool {
	return indexer.ExtensionAllowed(filepath.Ext(path), w.extensions)
}

// schedule ingests path once it has been quiet for the debounce interval.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return
	}
	if t, ok := w.pending[path]; ok && t.Stop() {
		w.inflight.Done()
	}
	w.inflight.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.inflight.Done()
		w.mu.Lock()
		if w.pending[path] != t {
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		ctx := w.ctx
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
	w.pending[path] = t
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok && t.Stop() {
		delete(w.pending, path)
		w.inflight.Done()
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	rep, err := w.sink.IngestFile(ctx, path, w.docType)
	if err != nil {
		w.logger.Warn("watcher ingest failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Debug("watcher ingested file", zap.String("path", path), zap.String("outcome", string(rep.Outcome)), zap.Int("chunks", rep.Chunks))
}

func (w *Watcher) retire(path string) {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if err := w.sink.DeleteFile(ctx, path); err != nil {
		w.logger.Warn("watcher retire failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Debug("watcher retired file", zap.String("path", path))
}

// AddDirectory adds a root to watch. With syncExisting the files already present are ingested
// in the background.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.roots {
		if r == abs {
			return nil
		}
	}
	if w.fsw != nil {
		if err := w.addRootLocked(abs); err != nil {
			return err
		}
	}
	w.roots = append(w.roots, abs)
	w.logger.Debug("watcher directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting && w.ctx != nil {
		ctx := w.ctx
		go w.syncDirectory(ctx, abs)
	}
	return nil
}

func (w *Watcher) addRootLocked(root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	var paths []string
	if !w.recursive {
		if err := w.fsw.Add(root); err != nil {
			return err
		}
		w.rootPaths[root] = []string{root}
		return nil
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && ignored(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return err
	}
	w.rootPaths[root] = paths
	return nil
}

// RemoveDirectory stops watching root. Sources already ingested from it stay indexed.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, r := range w.roots {
		if r != abs {
			continue
		}
		if w.fsw != nil {
			for _, p := range w.rootPaths[abs] {
				_ = w.fsw.Remove(p)
			}
		}
		delete(w.rootPaths, abs)
		w.roots = append(w.roots[:i], w.roots[i+1:]...)
		w.logger.Debug("watcher directory removed", zap.String("path", abs))
		return nil
	}
	return nil
}

// Directories returns a copy of the watched roots.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles ingests the matching files already present under every root. Call it
// after Start to catch up with changes made while the watcher was not running.
func (w *Watcher) SyncExistingFiles(ctx context.Context) {
	for _, root := range w.Directories() {
		w.syncDirectory(ctx, root)
	}
}

func (w *Watcher) syncDirectory(ctx context.Context, root string) {
	w.logger.Debug("watcher syncing directory", zap.String("root", root))
	files, err := indexer.CollectFiles([]string{root}, w.extensions)
	if err != nil {
		w.logger.Warn("watcher sync failed", zap.String("root", root), zap.Error(err))
		return
	}
	for _, f := range files {
		if ctx.Err() != nil {
			return
		}
		if !w.recursive && filepath.Dir(f) != root {
			continue
		}
		w.ingest(ctx, f)
	}
}

// Stop stops watching, cancels pending re-ingests and waits for running ones.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		if t.Stop() {
			w.inflight.Done()
		}
		delete(w.pending, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
	w.inflight.Wait()
}
