package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"
)

// PollingWatcher detects changes by comparing file metadata on an
// interval. Used when fsnotify is unavailable.
type PollingWatcher struct {
	interval time.Duration
	logger   *slog.Logger
	mu       sync.Mutex
	state    map[string]fileSnapshot
	events   chan FileEvent
	errors   chan error
	stopCh   chan struct{}
	stopped  bool
}

type fileSnapshot struct {
	exists  bool
	modTime time.Time
	size    int64
}

// NewPollingWatcher creates a polling watcher. A nil logger uses
// slog.Default().
func NewPollingWatcher(interval time.Duration, logger *slog.Logger) *PollingWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollingWatcher{
		interval: interval,
		logger:   logger,
		state:    make(map[string]fileSnapshot),
		events:   make(chan FileEvent, 64),
		errors:   make(chan error, 8),
		stopCh:   make(chan struct{}),
	}
}

// Start records a baseline for paths and polls until Stop or ctx is
// cancelled. Paths must be absolute.
func (p *PollingWatcher) Start(ctx context.Context, paths []string) error {
	p.mu.Lock()
	for _, path := range paths {
		snap, err := snapshot(path)
		if err != nil {
			p.mu.Unlock()
			return fmt.Errorf("stat %s: %w", path, err)
		}
		p.state[path] = snap
	}
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *PollingWatcher) poll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	now := time.Now()
	for path, prev := range p.state {
		cur, err := snapshot(path)
		if err != nil {
			select {
			case p.errors <- fmt.Errorf("stat %s: %w", path, err):
			default:
			}
			continue
		}

		var op Operation
		switch {
		case !prev.exists && cur.exists:
			op = OpCreate
		case prev.exists && !cur.exists:
			op = OpDelete
		case cur.exists && (cur.size != prev.size || !cur.modTime.Equal(prev.modTime)):
			op = OpModify
		default:
			continue
		}
		p.state[path] = cur

		select {
		case p.events <- FileEvent{Path: path, Operation: op, Timestamp: now}:
		default:
			p.logger.Warn("poll_event_dropped", slog.String("path", path), slog.String("op", op.String()))
		}
	}
}

// snapshot stats path. A missing file is a valid state.
func snapshot(path string) (fileSnapshot, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileSnapshot{}, nil
	}
	if err != nil {
		return fileSnapshot{}, err
	}
	return fileSnapshot{exists: true, modTime: info.ModTime(), size: info.Size()}, nil
}

// Stop stops polling and closes the channels. Safe to call multiple times.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the channel of raw, undebounced events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Errors returns the channel of stat errors.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}
