package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
	"github.com/Aman-CERP/hlsbench/internal/normalize"
	"github.com/Aman-CERP/hlsbench/internal/output"
	"github.com/Aman-CERP/hlsbench/internal/resolve"
)

func newTopCmd(g *globalFlags) *cobra.Command {
	var (
		all      bool
		raw      bool
		resolver string
	)

	cmd := &cobra.Command{
		Use:   "top <header.h>",
		Short: "Print the top function of a kernel header",
		Long: `Resolve the synthesis entry point of a kernel header: the last function
prototype declared in it. The header is cleaned first, as the build does,
so prototypes in the test-harness tail are ignored. Use --raw to resolve
the file as is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("resolver") {
				cfg.Resolver.Strategy = resolver
			}
			strategy, err := resolve.New(cfg.Resolver.Strategy)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return hberrors.New(hberrors.ErrCodeFileNotFound,
					fmt.Sprintf("cannot read header %s", args[0]), err).WithDetail("path", args[0])
			}
			if !raw {
				policy, err := normalize.ParseSlashPolicy(cfg.Normalize.SlashPolicy)
				if err != nil {
					return hberrors.ConfigError(err.Error(), err)
				}
				data = []byte(normalize.CleanHeader(string(data), normalize.Options{SlashPolicy: policy}))
			}

			if !all {
				top, err := resolve.Resolve(cmd.Context(), strategy, data)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), top)
				return err
			}

			protos, err := strategy.Prototypes(cmd.Context(), data)
			if err != nil {
				return err
			}
			if len(protos) == 0 {
				_, err := resolve.Resolve(cmd.Context(), strategy, data)
				return err
			}
			return output.New(cmd.OutOrStdout()).Prototypes(protos)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "List every prototype with its line")
	cmd.Flags().BoolVar(&raw, "raw", false, "Do not clean the header first")
	cmd.Flags().StringVar(&resolver, "resolver", "", "Top-function resolver: pattern or syntax")
	return cmd
}
