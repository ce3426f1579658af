package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/hlsbench/internal/archive"
	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
	"github.com/Aman-CERP/hlsbench/internal/output"
	"github.com/Aman-CERP/hlsbench/pkg/corpus"
)

// designSummary is the JSON form of a verified design.
type designSummary struct {
	Name             string `json:"name"`
	TopFunction      string `json:"top_function"`
	DescriptionBytes int    `json:"description_bytes"`
}

func newVerifyCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "verify <archive.tar.gz>",
		Short: "Check a packaged corpus",
		Long: `Unpack a corpus archive into a temporary directory and check that it
holds a single root directory whose every kernel directory contains
exactly the five expected files with a non-empty top function.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			designs, err := verifyArchive(cmd, args[0])
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				summaries := make([]designSummary, len(designs))
				for i, d := range designs {
					summaries[i] = designSummary{Name: d.Name, TopFunction: d.Top, DescriptionBytes: len(d.Description)}
				}
				return out.JSON(summaries)
			}
			if err := out.Designs(designs); err != nil {
				return err
			}
			out.Newline()
			out.Successf("%s: %d kernels verified", args[0], len(designs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func verifyArchive(cmd *cobra.Command, path string) ([]*corpus.Design, error) {
	tmp, err := os.MkdirTemp("", "hlsbench-verify-*")
	if err != nil {
		return nil, hberrors.InternalError("failed to create temporary directory", err)
	}
	defer os.RemoveAll(tmp)

	if err := archive.Extract(cmd.Context(), path, tmp); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(tmp)
	if err != nil {
		return nil, hberrors.IOError("failed to read unpacked archive", err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil, hberrors.ValidationError(
			fmt.Sprintf("%s must contain exactly one root directory, found %d entries", path, len(entries)), nil)
	}

	designs, err := corpus.VerifyTree(filepath.Join(tmp, entries[0].Name()))
	if err != nil {
		return nil, hberrors.ValidationError(err.Error(), err).WithDetail("archive", path)
	}
	return designs, nil
}
