package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// HybridWatcher watches files through fsnotify on their parent
// directories, falling back to polling.
type HybridWatcher struct {
	fsWatcher      *fsnotify.Watcher
	pollWatcher    *PollingWatcher
	debouncer      *Debouncer
	logger         *slog.Logger
	opts           Options
	targets        map[string]struct{}
	events         chan []FileEvent
	errors         chan error
	stopCh         chan struct{}
	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

var _ Watcher = (*HybridWatcher)(nil)

// NewHybridWatcher creates a watcher. A nil logger uses slog.Default().
func NewHybridWatcher(opts Options, logger *slog.Logger) (*HybridWatcher, error) {
	opts = opts.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	h := &HybridWatcher{
		debouncer: NewDebouncer(opts.Debounce, logger),
		logger:    logger,
		opts:      opts,
		targets:   make(map[string]struct{}),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 8),
		stopCh:    make(chan struct{}),
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			h.fsWatcher = fsw
		} else {
			logger.Warn("fsnotify_unavailable", slog.String("error", err.Error()))
		}
	}
	if h.fsWatcher == nil {
		h.pollWatcher = NewPollingWatcher(opts.PollInterval, logger)
	}
	return h, nil
}

// Start watches paths until Stop or ctx is cancelled. Each path's parent
// directory must exist; the file itself may appear later.
func (h *HybridWatcher) Start(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no paths to watch")
	}

	abs := make([]string, 0, len(paths))
	dirs := make(map[string]struct{})
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve absolute path: %w", err)
		}
		dir := filepath.Dir(a)
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("watch %s: %s is not a directory", p, dir)
		}
		abs = append(abs, a)
		dirs[dir] = struct{}{}
	}

	h.mu.Lock()
	for _, a := range abs {
		h.targets[a] = struct{}{}
	}
	h.mu.Unlock()

	go h.forwardDebouncedEvents(ctx)

	h.logger.Info("watch_started",
		slog.String("mode", h.WatcherType()),
		slog.Any("paths", abs),
		slog.Duration("debounce", h.opts.Debounce))

	if h.fsWatcher != nil {
		for dir := range dirs {
			if err := h.fsWatcher.Add(dir); err != nil {
				return fmt.Errorf("watch directory %s: %w", dir, err)
			}
		}
		return h.runFsnotify(ctx)
	}
	return h.runPolling(ctx, abs)
}

func (h *HybridWatcher) runFsnotify(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-h.fsWatcher.Events:
			if !ok {
				return nil
			}
			h.handleFsnotifyEvent(event)
		case err, ok := <-h.fsWatcher.Errors:
			if !ok {
				return nil
			}
			h.emitError(err)
		}
	}
}

func (h *HybridWatcher) runPolling(ctx context.Context, paths []string) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case event, ok := <-h.pollWatcher.Events():
				if !ok {
					return
				}
				h.debouncer.Add(event)
			case err, ok := <-h.pollWatcher.Errors():
				if !ok {
					return
				}
				h.emitError(err)
			}
		}
	}()

	err := h.pollWatcher.Start(ctx, paths)
	if ctx.Err() != nil {
		_ = h.Stop()
	}
	return err
}

// handleFsnotifyEvent filters directory events down to watched files.
func (h *HybridWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	h.mu.RLock()
	_, watched := h.targets[path]
	h.mu.RUnlock()
	if !watched {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		op = OpDelete
	default:
		return
	}

	h.logger.Debug("file_event", slog.String("path", path), slog.String("op", op.String()))
	h.debouncer.Add(FileEvent{Path: path, Operation: op, Timestamp: time.Now()})
}

func (h *HybridWatcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case batch, ok := <-h.debouncer.Output():
			if !ok {
				return
			}
			h.emitEvents(batch)
		}
	}
}

func (h *HybridWatcher) emitEvents(batch []FileEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}
	select {
	case h.events <- batch:
	default:
		count := h.droppedBatches.Add(1)
		h.logger.Warn("watch_batch_dropped",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped_batches", count))
	}
}

func (h *HybridWatcher) emitError(err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}
	select {
	case h.errors <- err:
	default:
	}
}

// DroppedBatches returns the number of batches dropped because the
// consumer fell behind.
func (h *HybridWatcher) DroppedBatches() uint64 {
	return h.droppedBatches.Load()
}

// Stop stops the watcher and closes its channels.
func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}
	h.stopped = true
	close(h.stopCh)

	h.debouncer.Stop()
	if h.fsWatcher != nil {
		_ = h.fsWatcher.Close()
	}
	if h.pollWatcher != nil {
		_ = h.pollWatcher.Stop()
	}

	close(h.events)
	close(h.errors)
	return nil
}

// Events returns the channel of debounced batches.
func (h *HybridWatcher) Events() <-chan []FileEvent {
	return h.events
}

// Errors returns the channel of non-fatal errors.
func (h *HybridWatcher) Errors() <-chan error {
	return h.errors
}

// WatcherType returns "fsnotify" or "polling".
func (h *HybridWatcher) WatcherType() string {
	if h.fsWatcher != nil {
		return "fsnotify"
	}
	return "polling"
}
