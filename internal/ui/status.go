package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

// RunInfo is one recorded build for display.
type RunInfo struct {
	ID           string        `json:"id"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration_ns"`
	Status       string        `json:"status"` // "ok", "partial", "failed"
	Kernels      int           `json:"kernels"`
	Failed       int           `json:"failed"`
	Resolver     string        `json:"resolver"`
	ArchivePath  string        `json:"archive_path,omitempty"`
	ArchiveBytes int64         `json:"archive_bytes"`
	Failures     []string      `json:"failures,omitempty"`
}

// HistoryRenderer displays recorded runs.
type HistoryRenderer struct {
	out    io.Writer
	styles Styles
}

// NewHistoryRenderer creates a history renderer.
func NewHistoryRenderer(out io.Writer, noColor bool) *HistoryRenderer {
	return &HistoryRenderer{out: out, styles: GetStyles(noColor)}
}

// Render prints runs as a table, newest first as given.
func (r *HistoryRenderer) Render(runs []RunInfo) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(r.out, "No runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tWHEN\tSTATUS\tKERNELS\tFAILED\tSIZE\tDURATION")
	for _, run := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			shortID(run.ID),
			humanize.Time(run.StartedAt),
			run.Status,
			run.Kernels,
			run.Failed,
			humanize.Bytes(uint64(run.ArchiveBytes)),
			run.Duration.Round(time.Millisecond),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, run := range runs {
		for _, f := range run.Failures {
			_, _ = fmt.Fprintf(r.out, "%s  %s\n", r.styles.Dim.Render(shortID(run.ID)), r.styles.Warning.Render(f))
		}
	}
	return nil
}

// RenderJSON outputs runs as JSON.
func (r *HistoryRenderer) RenderJSON(runs []RunInfo) error {
	if runs == nil {
		runs = []RunInfo{}
	}
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(runs)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
