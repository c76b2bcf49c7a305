package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stellmhd/stellmhd/internal/logging"
)

type rootOptions struct {
	logLevel string
	log      *zap.Logger
	v        *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "stellmhd",
		Short:         "Fixed-boundary MHD equilibrium solver",
		Long: `stellmhd computes three-dimensional ideal MHD equilibria for
stellarators and tokamaks. The plasma boundary, profiles, and solver
parameters come from a text input deck; the solution is a set of
Fourier-Zernike coefficients for the flux-surface geometry.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.v.SetEnvPrefix("STELLMHD")
			opts.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			opts.v.AutomaticEnv()
			if err := opts.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := opts.v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
				return err
			}
			log, err := logging.New(opts.v.GetString("log-level"))
			if err != nil {
				return err
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info",
		"log verbosity (debug, info, warn, error)")
	// Accept underscore spellings of flag names.
	cmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	cmd.AddCommand(newSolveCmd(opts))
	cmd.AddCommand(newCheckCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}
