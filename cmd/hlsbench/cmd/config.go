package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/hlsbench/configs"
	"github.com/Aman-CERP/hlsbench/internal/config"
	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
	"github.com/Aman-CERP/hlsbench/internal/output"
)

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Inspect and create hlsbench configuration files.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config (~/.config/hlsbench/config.yaml)
  3. Project config (.hlsbench.yaml)
  4. Environment variables (HLSBENCH_*)
  5. Command-line arguments and flags`,
		Example: `  # Write the project template to ./.hlsbench.yaml
  hlsbench config init

  # Show the effective configuration
  hlsbench config show --format json`,
	}

	cmd.AddCommand(newConfigInitCmd(g))
	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigPathCmd())
	return cmd
}

func newConfigInitCmd(g *globalFlags) *cobra.Command {
	var (
		force     bool
		user      bool
		effective bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file from the template",
		Long: `Write the commented project template to .hlsbench.yaml in the current
directory, or the user template to the user config file with --user.
With --effective the currently effective configuration is written
instead. An existing file is only replaced with --force, after a
timestamped backup is taken.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, template := config.ProjectFileName, configs.ProjectConfigTemplate
			if user {
				path, template = config.GetUserConfigPath(), configs.UserConfigTemplate
			}

			write := func(path string) error {
				return os.WriteFile(path, []byte(template), 0o644)
			}
			if effective {
				cfg, err := g.loadConfig()
				if err != nil {
					return err
				}
				write = cfg.WriteYAML
			}
			return runConfigInit(cmd, path, force, write)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	cmd.Flags().BoolVar(&user, "user", false, "Write the user config instead of the project config")
	cmd.Flags().BoolVar(&effective, "effective", false, "Write the effective configuration instead of the template")
	return cmd
}

func runConfigInit(cmd *cobra.Command, path string, force bool, write func(string) error) error {
	out := output.New(cmd.OutOrStdout())

	if _, err := os.Stat(path); err == nil {
		if !force {
			return hberrors.New(hberrors.ErrCodeInvalidInput,
				fmt.Sprintf("%s already exists", path), nil).
				WithSuggestion("Use --force to overwrite it; a backup is kept")
		}
		backup, err := config.BackupFile(path)
		if err != nil {
			return hberrors.IOError("failed to back up existing config", err)
		}
		out.Status("", fmt.Sprintf("Backed up %s to %s", path, backup))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return hberrors.IOError("failed to create config directory", err)
	}
	if err := write(path); err != nil {
		return hberrors.IOError(fmt.Sprintf("failed to write %s", path), err)
	}
	out.Successf("Wrote %s", path)
	return nil
}

func newConfigShowCmd(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			switch format {
			case "yaml":
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			default:
				return hberrors.New(hberrors.ErrCodeInvalidInput,
					fmt.Sprintf("unknown format %q (valid: yaml, json)", format), nil)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
