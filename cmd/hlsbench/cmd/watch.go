package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/hlsbench/internal/config"
	"github.com/Aman-CERP/hlsbench/internal/describe"
	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
	"github.com/Aman-CERP/hlsbench/internal/output"
	"github.com/Aman-CERP/hlsbench/internal/watcher"
)

func newWatchCmd(g *globalFlags) *cobra.Command {
	f := &buildFlags{noTUI: true, descCache: describe.NewCache(0)}
	var polling bool

	cmd := &cobra.Command{
		Use:   "watch [archive] [output-dir] [output-file]",
		Short: "Rebuild the corpus whenever its inputs change",
		Long: `Build once, then watch the archive, the description document and the
project config file, rebuilding after each burst of changes settles
(watch.debounce). Failed rebuilds are reported and watching continues.`,
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
			debounce, err := cfg.DebounceDuration()
			if err != nil {
				return hberrors.ConfigError(err.Error(), err)
			}

			logger, cleanup := g.fileLogger(cfg.Logging.Level)
			defer cleanup()

			w, err := watcher.NewHybridWatcher(watcher.Options{
				Debounce:     debounce,
				ForcePolling: polling,
			}, logger)
			if err != nil {
				return hberrors.InternalError("failed to create watcher", err)
			}
			defer func() { _ = w.Stop() }()

			ctx, cancel := context.WithCancelCause(ctx)
			defer cancel(nil)
			targets := watchTargets(g, cfg)
			go func() {
				if err := w.Start(ctx, targets); err != nil && ctx.Err() == nil {
					cancel(hberrors.IOError("failed to watch inputs", err))
				}
			}()

			out := output.New(cmd.OutOrStdout())
			rebuild := rebuilder(cmd, g, f, args)

			report(out, rebuild(ctx))
			out.Status("", fmt.Sprintf("Watching for changes (%s)", w.WatcherType()))
			if err := watchLoop(ctx, w, rebuild, out); err != nil {
				return err
			}
			if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
				return cause
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.descriptions, "descriptions", "", "Kernel description document")
	cmd.Flags().BoolVar(&f.keepGoing, "keep-going", false, "Package successful kernels even when some fail")
	cmd.Flags().StringVar(&f.resolver, "resolver", "", "Top-function resolver: pattern or syntax")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 0, "Kernels processed in parallel")
	cmd.Flags().BoolVar(&f.noLedger, "no-ledger", false, "Do not record runs in the ledger")
	cmd.Flags().BoolVar(&polling, "poll", false, "Poll file state instead of using filesystem notifications")
	return cmd
}

// rebuilder reloads the configuration and runs a build. Parsed description
// documents are shared across calls through f.descCache.
func rebuilder(cmd *cobra.Command, g *globalFlags, f *buildFlags, args []string) func(context.Context) error {
	return func(ctx context.Context) error {
		cfg, err := g.loadConfig()
		if err != nil {
			return err
		}
		if err := f.apply(cmd, cfg, args); err != nil {
			return err
		}
		return runBuild(ctx, cmd, g, cfg, f)
	}
}

// watchTargets lists the archive, the description document and the config
// file that would be loaded.
func watchTargets(g *globalFlags, cfg *config.Config) []string {
	targets := []string{cfg.Input.Archive, cfg.Input.Descriptions}
	if g.configPath != "" {
		return append(targets, g.configPath)
	}
	root, err := config.FindProjectRoot(".")
	if err != nil {
		return targets
	}
	return append(targets, filepath.Join(root, config.ProjectFileName))
}

// watchLoop runs rebuild for every debounced batch until ctx is done or
// the watcher closes its channels.
func watchLoop(ctx context.Context, w watcher.Watcher, rebuild func(context.Context) error, out *output.Writer) error {
	events, errs := w.Events(), w.Errors()
	for events != nil {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			for _, ev := range batch {
				out.Status("", fmt.Sprintf("%s %s", ev.Operation, ev.Path))
			}
			report(out, rebuild(ctx))
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			out.Warningf("watcher: %v", err)
		}
	}
	return nil
}

func report(out *output.Writer, err error) {
	if err != nil {
		out.Error(strings.TrimRight(FormatError(err), "\n"))
		return
	}
	out.Success("Corpus rebuilt")
}
