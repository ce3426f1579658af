package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startPolling(t *testing.T, paths []string) (*PollingWatcher, context.CancelFunc) {
	t.Helper()
	p := NewPollingWatcher(10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Start(ctx, paths)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Let the baseline snapshot settle.
	time.Sleep(30 * time.Millisecond)
	return p, cancel
}

func nextEvent(t *testing.T, p *PollingWatcher) FileEvent {
	t.Helper()
	select {
	case e := <-p.Events():
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for poll event")
		return FileEvent{}
	}
}

func TestPollingWatcher_DetectsCreation(t *testing.T) {
	// Given: a watched path that does not exist yet
	target := filepath.Join(t.TempDir(), "MachSuite.zip")
	p, _ := startPolling(t, []string{target})

	// When: the file appears
	require.NoError(t, os.WriteFile(target, []byte("zip"), 0o644))

	// Then: a create event is reported
	e := nextEvent(t, p)
	assert.Equal(t, target, e.Path)
	assert.Equal(t, OpCreate, e.Operation)
}

func TestPollingWatcher_DetectsModificationAndDeletion(t *testing.T) {
	target := filepath.Join(t.TempDir(), "kernel_descriptions.md")
	require.NoError(t, os.WriteFile(target, []byte("## a\n"), 0o644))
	p, _ := startPolling(t, []string{target})

	require.NoError(t, os.WriteFile(target, []byte("## a\n\nlonger body\n"), 0o644))
	assert.Equal(t, OpModify, nextEvent(t, p).Operation)

	require.NoError(t, os.Remove(target))
	assert.Equal(t, OpDelete, nextEvent(t, p).Operation)
}

func TestPollingWatcher_ContextCancellation(t *testing.T) {
	p := NewPollingWatcher(10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- p.Start(ctx, []string{filepath.Join(t.TempDir(), "x")}) }()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	_, ok := <-p.Events()
	assert.False(t, ok)
}
