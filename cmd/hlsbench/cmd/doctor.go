package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/hlsbench/internal/preflight"
)

func newDoctorCmd(g *globalFlags) *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check inputs and environment before a build",
		Long: `Run diagnostics for the configured build.

Checks:
  - Required tools (tools.required) are on PATH
  - Synthesis toolchain (vitis_hls, g++), advisory only
  - Input archive exists and has a supported format
  - Description document parses without duplicate headings
  - Output location is writable with enough free space

Use --json for machine-readable output.`,
		Example: `  hlsbench doctor
  hlsbench doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			checker := preflight.New(
				preflight.WithVerbose(verbose),
				preflight.WithOutput(cmd.OutOrStdout()),
				preflight.WithRequiredTools(cfg.Tools.Required),
			)
			results := checker.RunAll(cmd.Context(), preflight.Targets{
				Archive:      cfg.Input.Archive,
				Descriptions: cfg.Input.Descriptions,
				OutputDir:    cfg.Output.Dir,
			})

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(struct {
					Status string                  `json:"status"`
					Checks []preflight.CheckResult `json:"checks"`
				}{checker.SummaryStatus(results), results}); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return fmt.Errorf("system check failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
