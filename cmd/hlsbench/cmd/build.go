package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/hlsbench/internal/assemble"
	"github.com/Aman-CERP/hlsbench/internal/config"
	"github.com/Aman-CERP/hlsbench/internal/describe"
	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
	"github.com/Aman-CERP/hlsbench/internal/ledger"
	"github.com/Aman-CERP/hlsbench/internal/normalize"
	"github.com/Aman-CERP/hlsbench/internal/output"
	"github.com/Aman-CERP/hlsbench/internal/preflight"
	"github.com/Aman-CERP/hlsbench/internal/resolve"
	"github.com/Aman-CERP/hlsbench/internal/ui"
)

type buildFlags struct {
	jobs         int
	descriptions string
	keepGoing    bool
	resolver     string
	slashPolicy  string
	rootFolder   string
	workDir      string
	kernels      []string
	noTUI        bool
	noLedger     bool
	jsonOutput   bool

	// descCache outlives a single build when set (watch).
	descCache *describe.Cache
}

func newBuildCmd(g *globalFlags) *cobra.Command {
	f := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build [archive] [output-dir] [output-file]",
		Short: "Build the HLS corpus from a MachSuite archive",
		Long: `Extract a MachSuite distribution, normalize every configured kernel,
and package the result.

For each kernel the output directory receives <name>.h, <name>.cpp,
<name>_dir.tcl, top.txt and kernel_description.md, where <name> is
KERN_ALG from the kernel's Makefile. The directory is then packaged
as a gzip-compressed tar archive.

Kernels are processed in parallel. Any kernel failure fails the build
unless --keep-going is set, in which case failed kernels are skipped
and reported.`,
		Example: `  # Build with defaults (./MachSuite-master-6236e59.zip)
  hlsbench build

  # Explicit paths, 8 workers, syntax-tree resolver
  hlsbench build MachSuite.zip out/ out.tar.gz -j 8 --resolver syntax`,
		Args: cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if err := f.apply(cmd, cfg, args); err != nil {
				return err
			}
			return runBuild(ctx, cmd, g, cfg, f)
		},
	}

	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 0, "Kernels processed in parallel (default: number of CPUs)")
	cmd.Flags().StringVar(&f.descriptions, "descriptions", "", "Kernel description document (default: ./kernel_descriptions.md)")
	cmd.Flags().BoolVar(&f.keepGoing, "keep-going", false, "Package successful kernels even when some fail")
	cmd.Flags().StringVar(&f.resolver, "resolver", "", "Top-function resolver: pattern or syntax")
	cmd.Flags().StringVar(&f.slashPolicy, "slash-policy", "", "Header divider handling: truncate or strip-lines")
	cmd.Flags().StringVar(&f.rootFolder, "root-folder", "", "Top-level folder inside the archive (default: MachSuite-master)")
	cmd.Flags().StringVar(&f.workDir, "work-dir", "", "Keep staging files in this directory instead of a temporary one")
	cmd.Flags().StringSliceVar(&f.kernels, "kernel", nil, "Kernel path to build, repeatable (default: all 18)")
	cmd.Flags().BoolVar(&f.noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	cmd.Flags().BoolVar(&f.noLedger, "no-ledger", false, "Do not record the run in the ledger")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "Print kernel records as JSON")

	return cmd
}

// apply layers positional arguments and changed flags over cfg.
func (f *buildFlags) apply(cmd *cobra.Command, cfg *config.Config, args []string) error {
	if len(args) > 0 {
		cfg.Input.Archive = args[0]
	}
	if len(args) > 1 {
		cfg.Output.Dir = args[1]
	}
	if len(args) > 2 {
		cfg.Output.Archive = args[2]
	}

	flags := cmd.Flags()
	if flags.Changed("jobs") {
		cfg.Performance.Jobs = f.jobs
	}
	if flags.Changed("descriptions") {
		cfg.Input.Descriptions = f.descriptions
	}
	if flags.Changed("keep-going") {
		cfg.Run.KeepGoing = f.keepGoing
	}
	if flags.Changed("resolver") {
		cfg.Resolver.Strategy = f.resolver
	}
	if flags.Changed("slash-policy") {
		cfg.Normalize.SlashPolicy = f.slashPolicy
	}
	if flags.Changed("root-folder") {
		cfg.Input.RootFolder = f.rootFolder
	}
	if flags.Changed("kernel") {
		cfg.Kernels.Paths = f.kernels
	}

	if err := cfg.Validate(); err != nil {
		return hberrors.ConfigError(err.Error(), err)
	}
	return nil
}

func runBuild(ctx context.Context, cmd *cobra.Command, g *globalFlags, cfg *config.Config, f *buildFlags) error {
	logger, cleanup := g.fileLogger(cfg.Logging.Level)
	defer cleanup()

	checker := preflight.New(preflight.WithRequiredTools(cfg.Tools.Required))
	if err := checker.RequireTools(); err != nil {
		return err
	}

	strategy, err := resolve.New(cfg.Resolver.Strategy)
	if err != nil {
		return err
	}
	policy, err := normalize.ParseSlashPolicy(cfg.Normalize.SlashPolicy)
	if err != nil {
		return hberrors.ConfigError(err.Error(), err)
	}

	descCache := f.descCache
	if descCache == nil {
		descCache = describe.NewCache(0)
	}
	deps := assemble.Dependencies{
		Strategy:     strategy,
		Normalizer:   normalize.New(normalize.Options{SlashPolicy: policy}, logger),
		Descriptions: descCache,
		Logger:       logger,
	}
	if !f.noLedger {
		store, err := ledger.Open(cfg.Ledger.Path, cfg.Ledger.Driver)
		if err != nil {
			logger.Warn("ledger_unavailable", slog.String("path", cfg.Ledger.Path), slog.String("error", err.Error()))
		} else {
			defer func() { _ = store.Close() }()
			deps.Ledger = store
		}
	}

	var r ui.Renderer = ui.NopRenderer{}
	if !f.jsonOutput {
		r = ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
			ui.WithForcePlain(f.noTUI),
			ui.WithTitle(cfg.Input.Archive)))
	}
	if err := r.Start(ctx); err != nil {
		logger.Warn("renderer_start_failed", slog.String("error", err.Error()))
	}
	deps.Renderer = r

	result, err := assemble.NewAssembler(deps).Run(ctx, buildOptions(cfg, f.workDir))
	_ = r.Stop()
	if err != nil {
		return err
	}

	if f.jsonOutput {
		return output.New(cmd.OutOrStdout()).JSON(result.Records)
	}
	return nil
}

func buildOptions(cfg *config.Config, workDir string) assemble.Options {
	return assemble.Options{
		ArchivePath:      cfg.Input.Archive,
		DescriptionsPath: cfg.Input.Descriptions,
		OutputDir:        cfg.Output.Dir,
		OutputArchive:    cfg.Output.Archive,
		WorkDir:          workDir,
		KernelPaths:      cfg.Kernels.Paths,
		Jobs:             cfg.Performance.Jobs,
		RootFolder:       cfg.Input.RootFolder,
		KeepGoing:        cfg.Run.KeepGoing,
	}
}
