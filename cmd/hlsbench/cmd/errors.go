package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Aman-CERP/hlsbench/internal/assemble"
	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
)

// FormatError renders a command error for the terminal. A failed batch
// lists every kernel failure.
func FormatError(err error) string {
	var batch *assemble.BatchError
	if !errors.As(err, &batch) {
		return hberrors.FormatForCLI(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %d of %d kernels failed\n", len(batch.Failures), batch.Total)
	for _, f := range batch.Failures {
		fmt.Fprintf(&sb, "\n%s\n", f.Path)
		for _, line := range strings.Split(strings.TrimRight(hberrors.FormatForCLI(f.Err), "\n"), "\n") {
			fmt.Fprintf(&sb, "  %s\n", line)
		}
	}
	sb.WriteString("\nRe-run with --keep-going to package the remaining kernels.\n")
	return sb.String()
}
