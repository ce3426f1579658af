package cmd

import (
	"github.com/spf13/cobra"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
	"github.com/Aman-CERP/hlsbench/internal/ledger"
	"github.com/Aman-CERP/hlsbench/internal/ui"
)

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent builds from the run ledger",
		Example: `  hlsbench history
  hlsbench history -n 5 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			store, err := ledger.Open(cfg.Ledger.Path, cfg.Ledger.Driver)
			if err != nil {
				return hberrors.IOError("failed to open run ledger", err).WithDetail("path", cfg.Ledger.Path)
			}
			defer func() { _ = store.Close() }()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return hberrors.IOError("failed to read run ledger", err)
			}

			out := cmd.OutOrStdout()
			r := ui.NewHistoryRenderer(out, !ui.IsTTY(out) || ui.DetectNoColor())
			if jsonOutput {
				return r.RenderJSON(runInfos(runs))
			}
			return r.Render(runInfos(runs))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runInfos(runs []ledger.Run) []ui.RunInfo {
	infos := make([]ui.RunInfo, 0, len(runs))
	for _, run := range runs {
		ok, failed := run.Counts()
		info := ui.RunInfo{
			ID:           run.ID,
			StartedAt:    run.StartedAt,
			Duration:     run.Duration,
			Status:       run.Status,
			Kernels:      ok,
			Failed:       failed,
			Resolver:     run.Resolver,
			ArchivePath:  run.ArchivePath,
			ArchiveBytes: run.ArchiveBytes,
		}
		for _, o := range run.Outcomes {
			if o.Status != ledger.StatusOK {
				info.Failures = append(info.Failures, o.KernelPath+": "+o.ErrorMessage)
			}
		}
		infos = append(infos, info)
	}
	return infos
}
