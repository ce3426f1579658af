// Package cmd provides the CLI commands for hlsbench.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/hlsbench/internal/config"
	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
	"github.com/Aman-CERP/hlsbench/internal/logging"
	"github.com/Aman-CERP/hlsbench/internal/profiling"
	"github.com/Aman-CERP/hlsbench/pkg/version"
)

// globalFlags holds persistent flags shared by every subcommand.
type globalFlags struct {
	debug      bool
	configPath string
	profiles   profiling.Options
	profiler   *profiling.Session
	cleanup    func()
}

// NewRootCmd creates the root command for the hlsbench CLI.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "hlsbench",
		Short: "Normalize the MachSuite benchmark suite into an HLS corpus",
		Long: `hlsbench turns a MachSuite source distribution into a corpus of
per-kernel HLS designs: a cleaned header, a C++ implementation, the
synthesis directive script, the resolved top function, and a natural
language description, packaged as a gzip-compressed tar archive.`,
		Version:           version.Short(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: g.start,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return g.stop()
		},
	}
	cmd.SetVersionTemplate("hlsbench version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging to ~/.hlsbench/logs/")
	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Project config file (default: .hlsbench.yaml in the project root)")
	cmd.PersistentFlags().StringVar(&g.profiles.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&g.profiles.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&g.profiles.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(newBuildCmd(g))
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newTopCmd(g))
	cmd.AddCommand(newDoctorCmd(g))
	cmd.AddCommand(newConfigCmd(g))
	cmd.AddCommand(newHistoryCmd(g))
	cmd.AddCommand(newWatchCmd(g))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// start enables file logging when --debug is set and starts any requested
// profiles.
func (g *globalFlags) start(*cobra.Command, []string) error {
	if g.debug {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		g.cleanup = cleanup
		slog.SetDefault(logger)
		slog.Info("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Short()))
	}

	if g.profiles.Enabled() {
		session, err := profiling.Start(g.profiles)
		if err != nil {
			return err
		}
		g.profiler = session
	}
	return nil
}

func (g *globalFlags) stop() error {
	var err error
	if g.profiler != nil {
		err = g.profiler.Stop()
		slog.Debug("profiling_stopped", slog.String("memory", profiling.MemSummary()))
		g.profiler = nil
	}
	if g.cleanup != nil {
		g.cleanup()
		g.cleanup = nil
	}
	return err
}

// loadConfig loads --config when given, otherwise the project config found
// from the working directory.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFile(g.configPath)
	} else {
		root, rootErr := config.FindProjectRoot(".")
		if rootErr != nil {
			root, _ = os.Getwd()
		}
		cfg, err = config.Load(root)
	}
	if err != nil {
		return nil, hberrors.ConfigError(err.Error(), err).
			WithSuggestion("Run 'hlsbench config show' to inspect the effective configuration")
	}
	return cfg, nil
}

// fileLogger returns a logger writing to the log file at the configured
// level, keeping the terminal for progress output.
func (g *globalFlags) fileLogger(level string) (*slog.Logger, func()) {
	if g.debug {
		return slog.Default(), func() {}
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return slog.Default(), func() {}
	}
	return logger, cleanup
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
