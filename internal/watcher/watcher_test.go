package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/bunkatsu/internal/indexer"
)

type fakeSink struct {
	mu       sync.Mutex
	ingested []string
	deleted  []string
	types    []string
}

func (f *fakeSink) IngestFile(_ context.Context, path, docType string) (*indexer.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested = append(f.ingested, path)
	f.types = append(f.types, docType)
	return &indexer.Report{SourceLocator: path, Outcome: indexer.OutcomeIndexed}, nil
}

func (f *fakeSink) DeleteFile(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, path)
	return nil
}

func (f *fakeSink) ingestCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.ingested {
		if p == path {
			n++
		}
	}
	return n
}

func (f *fakeSink) wasDeleted(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.deleted {
		if p == path {
			return true
		}
	}
	return false
}

func startWatcher(t *testing.T, sink Sink, roots []string, opts ...Option) *Watcher {
	t.Helper()
	opts = append([]Option{WithDebounce(20 * time.Millisecond)}, opts...)
	w := NewWatcher(sink, roots, opts...)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w
}

func resolved(t *testing.T, dir string) string {
	t.Helper()
	abs, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	return abs
}

const waitFor = 3 * time.Second
const tick = 10 * time.Millisecond

func TestWatcher_IngestsCreatedFile(t *testing.T) {
	dir := resolved(t, t.TempDir())
	sink := &fakeSink{}
	startWatcher(t, sink, []string{dir}, WithDocumentType("regulatory"))

	path := filepath.Join(dir, "cs25.md")
	require.NoError(t, os.WriteFile(path, []byte("CS 25.571 Damage tolerance"), 0644))

	assert.Eventually(t, func() bool { return sink.ingestCount(path) == 1 }, waitFor, tick)
	sink.mu.Lock()
	assert.Equal(t, "regulatory", sink.types[0])
	sink.mu.Unlock()
}

func TestWatcher_DebouncesRapidWrites(t *testing.T) {
	dir := resolved(t, t.TempDir())
	sink := &fakeSink{}
	startWatcher(t, sink, []string{dir}, WithDebounce(150*time.Millisecond))

	path := filepath.Join(dir, "notes.txt")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0644))
		time.Sleep(5 * time.Millisecond)
	}
	assert.Eventually(t, func() bool { return sink.ingestCount(path) >= 1 }, waitFor, tick)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, sink.ingestCount(path))
}

func TestWatcher_IgnoresUnmatchedAndHiddenFiles(t *testing.T) {
	dir := resolved(t, t.TempDir())
	sink := &fakeSink{}
	startWatcher(t, sink, []string{dir}, WithExtensions([]string{".md"}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".draft.md"), []byte("x"), 0644))
	keep := filepath.Join(dir, "keep.md")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0644))

	assert.Eventually(t, func() bool { return sink.ingestCount(keep) == 1 }, waitFor, tick)
	time.Sleep(100 * time.Millisecond)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []string{keep}, sink.ingested)
}

func TestWatcher_RetiresRemovedAndRenamedFiles(t *testing.T) {
	dir := resolved(t, t.TempDir())
	sink := &fakeSink{}
	startWatcher(t, sink, []string{dir})

	removed := filepath.Join(dir, "removed.txt")
	renamed := filepath.Join(dir, "old.txt")
	require.NoError(t, os.WriteFile(removed, []byte("a"), 0644))
	require.NoError(t, os.WriteFile(renamed, []byte("b"), 0644))
	assert.Eventually(t, func() bool { return sink.ingestCount(removed) == 1 && sink.ingestCount(renamed) == 1 }, waitFor, tick)

	require.NoError(t, os.Remove(removed))
	target := filepath.Join(dir, "new.txt")
	require.NoError(t, os.Rename(renamed, target))

	assert.Eventually(t, func() bool { return sink.wasDeleted(removed) && sink.wasDeleted(renamed) }, waitFor, tick)
	assert.Eventually(t, func() bool { return sink.ingestCount(target) == 1 }, waitFor, tick)
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := resolved(t, t.TempDir())
	sink := &fakeSink{}
	startWatcher(t, sink, []string{dir})

	sub := filepath.Join(dir, "amc")
	require.NoError(t, os.Mkdir(sub, 0755))
	// Give the watcher time to add the new directory before writing into it.
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(sub, "amc25.txt")
	require.NoError(t, os.WriteFile(path, []byte("AMC 25.571"), 0644))

	assert.Eventually(t, func() bool { return sink.ingestCount(path) >= 1 }, waitFor, tick)
}

func TestWatcher_NonRecursive(t *testing.T) {
	dir := resolved(t, t.TempDir())
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0755))
	sink := &fakeSink{}
	startWatcher(t, sink, []string{dir}, WithRecursive(false))

	nested := filepath.Join(sub, "deep.txt")
	top := filepath.Join(dir, "top.txt")
	require.NoError(t, os.WriteFile(nested, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(top, []byte("x"), 0644))

	assert.Eventually(t, func() bool { return sink.ingestCount(top) == 1 }, waitFor, tick)
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, sink.ingestCount(nested))
}

func TestWatcher_AddAndRemoveDirectory(t *testing.T) {
	first := resolved(t, t.TempDir())
	second := filepath.Join(resolved(t, t.TempDir()), "created")
	existing := filepath.Join(first, "existing.txt")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0644))

	sink := &fakeSink{}
	w := startWatcher(t, sink, nil)
	assert.Empty(t, w.Directories())

	require.NoError(t, w.AddDirectory(first, true))
	require.NoError(t, w.AddDirectory(first, true))
	assert.Eventually(t, func() bool { return sink.ingestCount(existing) == 1 }, waitFor, tick)

	require.NoError(t, w.AddDirectory(second, false))
	assert.DirExists(t, second)
	assert.Equal(t, []string{first, second}, w.Directories())

	require.NoError(t, w.RemoveDirectory(first))
	assert.Equal(t, []string{second}, w.Directories())

	unwatched := filepath.Join(first, "after.txt")
	require.NoError(t, os.WriteFile(unwatched, []byte("x"), 0644))
	watched := filepath.Join(second, "after.txt")
	require.NoError(t, os.WriteFile(watched, []byte("x"), 0644))
	assert.Eventually(t, func() bool { return sink.ingestCount(watched) == 1 }, waitFor, tick)
	assert.Zero(t, sink.ingestCount(unwatched))
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := resolved(t, t.TempDir())
	a := filepath.Join(dir, "a.md")
	b := filepath.Join(dir, "sub", "b.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(b), 0755))
	require.NoError(t, os.WriteFile(a, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.bin"), []byte("x"), 0644))

	sink := &fakeSink{}
	w := startWatcher(t, sink, []string{dir})
	w.SyncExistingFiles(context.Background())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.ElementsMatch(t, []string{a, b}, sink.ingested)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	sink := &fakeSink{}
	w := NewWatcher(sink, []string{t.TempDir()})
	w.Stop()
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}

func TestWatcher_StopsOnContextCancel(t *testing.T) {
	dir := resolved(t, t.TempDir())
	sink := &fakeSink{}
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWatcher(sink, []string{dir}, WithDebounce(10*time.Millisecond))
	require.NoError(t, w.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.fsw == nil
	}, waitFor, tick)
}

func TestInDir(t *testing.T) {
	assert.True(t, inDir("/a/b", "/a/b/c.txt"))
	assert.True(t, inDir("/a/b", "/a/b"))
	assert.False(t, inDir("/a/b", "/a/bc/d.txt"))
	assert.False(t, inDir("/a/b", "/a"))
}

func TestIgnored(t *testing.T) {
	assert.True(t, ignored(".hidden.md"))
	assert.True(t, ignored("draft.md~"))
	assert.True(t, ignored("draft.md.swp"))
	assert.False(t, ignored("cs25.md"))
}
