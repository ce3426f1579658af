// Package output formats command results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/Aman-CERP/hlsbench/internal/kernel"
	"github.com/Aman-CERP/hlsbench/internal/resolve"
	"github.com/Aman-CERP/hlsbench/internal/ui"
	"github.com/Aman-CERP/hlsbench/pkg/corpus"
)

// Writer provides formatted output for CLI commands.
type Writer struct {
	out    io.Writer
	styles ui.Styles
}

// New creates a Writer that colors output only when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	return NewWithColor(out, ui.IsTTY(out) && !ui.DetectNoColor())
}

// NewWithColor creates a Writer with color explicitly on or off.
func NewWithColor(out io.Writer, color bool) *Writer {
	return &Writer{out: out, styles: ui.GetStyles(!color)}
}

// Status prints a message with an icon. Write errors are ignored for
// console output.
func (w *Writer) Status(icon, msg string) {
	if icon == "" {
		_, _ = fmt.Fprintf(w.out, "  %s\n", msg)
		return
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Records prints one row per normalized kernel.
func (w *Writer) Records(records []kernel.Record) error {
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DESIGN\tTOP FUNCTION\tSOURCE")
	for _, r := range records {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", r.CanonicalName, r.TopFunction, r.SourcePath)
	}
	return tw.Flush()
}

// Designs prints the designs found in a verified corpus with their
// description sizes.
func (w *Writer) Designs(designs []*corpus.Design) error {
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DESIGN\tTOP FUNCTION\tDESCRIPTION")
	for _, d := range designs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.Top, humanize.Bytes(uint64(len(d.Description))))
	}
	return tw.Flush()
}

// Prototypes prints every prototype with its line, marking the one that
// resolves as the top function.
func (w *Writer) Prototypes(protos []resolve.Prototype) error {
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "LINE\tFUNCTION\t")
	for i, p := range protos {
		mark := ""
		if i == len(protos)-1 {
			mark = "top"
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", p.Line, p.Name, mark)
	}
	return tw.Flush()
}

// Code prints content indented as a block.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}
