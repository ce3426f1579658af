package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// PlainRenderer outputs plain text progress (for CI/pipes).
type PlainRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	stage  Stage
	errors []ErrorEvent
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// UpdateProgress implements Renderer.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stage = event.Stage

	// Format: [STAGE] current/total - message or kernel
	msg := event.Message
	if msg == "" {
		msg = event.Kernel
	}

	if event.Total > 0 {
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d - %s\n", event.Stage.Icon(), event.Current, event.Total, msg)
	} else if msg != "" {
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), msg)
	}
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, event)

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}
	if event.Kernel != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.Kernel, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "Complete: %d kernels in %s", stats.Kernels, stats.Duration.Round(100*time.Millisecond))
	if stats.Failed > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d skipped)", stats.Failed)
	}
	_, _ = fmt.Fprintln(r.out)

	if stats.ArchivePath != "" {
		_, _ = fmt.Fprintf(r.out, "Archive: %s (%s)\n", stats.ArchivePath, humanize.Bytes(uint64(stats.ArchiveBytes)))
	}
	if stats.Resolver != "" {
		_, _ = fmt.Fprintf(r.out, "Resolver: %s\n", stats.Resolver)
	}

	if stats.Stages.Normalize > 0 {
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintln(r.out, "Stage Breakdown:")
		_, _ = fmt.Fprintf(r.out, "  Stage:     %s\n", stats.Stages.Stage.Round(time.Millisecond))
		_, _ = fmt.Fprintf(r.out, "  Metadata:  %s\n", stats.Stages.Metadata.Round(time.Millisecond))
		_, _ = fmt.Fprintf(r.out, "  Normalize: %s\n", stats.Stages.Normalize.Round(time.Millisecond))
		_, _ = fmt.Fprintf(r.out, "  Package:   %s\n", stats.Stages.Package.Round(time.Millisecond))
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}
