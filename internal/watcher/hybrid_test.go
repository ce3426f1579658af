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
)

func startHybrid(t *testing.T, opts Options, paths []string) *HybridWatcher {
	t.Helper()
	w, err := NewHybridWatcher(opts, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Start(ctx, paths)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Stop()
	})
	time.Sleep(100 * time.Millisecond)
	return w
}

func nextBatch(t *testing.T, w *HybridWatcher) []FileEvent {
	t.Helper()
	select {
	case batch, ok := <-w.Events():
		require.True(t, ok, "events channel closed")
		return batch
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for batch")
		return nil
	}
}

func TestHybridWatcher_ReportsWatchedFileOnly(t *testing.T) {
	// Given: a watched archive next to an unrelated file
	dir := t.TempDir()
	target := filepath.Join(dir, "MachSuite.zip")
	require.NoError(t, os.WriteFile(target, []byte("v1"), 0o644))
	w := startHybrid(t, Options{Debounce: 30 * time.Millisecond}, []string{target})
	assert.Equal(t, "fsnotify", w.WatcherType())

	// When: both files change
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("v2"), 0o644))

	// Then: only the archive is reported
	batch := nextBatch(t, w)
	require.Len(t, batch, 1)
	assert.Equal(t, target, batch[0].Path)
}

func TestHybridWatcher_AtomicReplace(t *testing.T) {
	// Given: an editor that saves by writing a temp file and renaming it
	dir := t.TempDir()
	target := filepath.Join(dir, "kernel_descriptions.md")
	require.NoError(t, os.WriteFile(target, []byte("## a\n"), 0o644))
	w := startHybrid(t, Options{Debounce: 50 * time.Millisecond}, []string{target})

	// When: the file is replaced
	tmp := filepath.Join(dir, ".kernel_descriptions.md.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("## a\n\nnew\n"), 0o644))
	require.NoError(t, os.Rename(tmp, target))

	// Then: the replace surfaces as one event for the target
	batch := nextBatch(t, w)
	require.Len(t, batch, 1)
	assert.Equal(t, target, batch[0].Path)
	assert.NotEqual(t, OpDelete, batch[0].Operation)
}

func TestHybridWatcher_Polling(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "MachSuite.tar.gz")
	w := startHybrid(t, Options{Debounce: 20 * time.Millisecond, PollInterval: 10 * time.Millisecond, ForcePolling: true}, []string{target})
	assert.Equal(t, "polling", w.WatcherType())

	require.NoError(t, os.WriteFile(target, []byte("tar"), 0o644))

	batch := nextBatch(t, w)
	require.Len(t, batch, 1)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestHybridWatcher_StartErrors(t *testing.T) {
	w, err := NewHybridWatcher(DefaultOptions(), nil)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	assert.Error(t, w.Start(context.Background(), nil))
	assert.Error(t, w.Start(context.Background(), []string{filepath.Join(t.TempDir(), "missing", "a.zip")}))
}

func TestHybridWatcher_ContextCancelStops(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a.zip")
	w, err := NewHybridWatcher(Options{}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx, []string{target}) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	_, ok := <-w.Events()
	assert.False(t, ok)
	_, ok = <-w.Errors()
	assert.False(t, ok)
}

func TestHybridWatcher_ConcurrentStop(t *testing.T) {
	w, err := NewHybridWatcher(DefaultOptions(), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Stop())
		}()
	}
	wg.Wait()
	assert.Zero(t, w.DroppedBatches())
}
