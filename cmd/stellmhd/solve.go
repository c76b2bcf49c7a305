package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stellmhd/stellmhd/internal/continuation"
	"github.com/stellmhd/stellmhd/internal/input"
	"github.com/stellmhd/stellmhd/internal/output"
	"github.com/stellmhd/stellmhd/internal/telemetry"
)

func newSolveCmd(opts *rootOptions) *cobra.Command {
	var (
		outPath     string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "solve INPUT",
		Short: "Solve the equilibrium described by an input deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			cfg, err := input.NewParser(opts.log).ParseFile(args[0])
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = strings.TrimSuffix(args[0], ".txt") + "_output.yaml"
			}

			var metrics *telemetry.Metrics
			eg, ctx := errgroup.WithContext(ctx)
			if addr := opts.v.GetString("metrics-addr"); addr != "" {
				metrics = telemetry.New()
				eg.Go(func() error { return metrics.Serve(ctx, addr, opts.log) })
			}

			driver := continuation.NewDriver(cfg, metrics, opts.log)
			eq, stages, err := driver.Run(ctx)
			cancel()
			if werr := eg.Wait(); err == nil {
				err = werr
			}
			if err != nil {
				return err
			}

			doc := output.Build(eq, stages)
			if err := output.Save(outPath, doc); err != nil {
				return err
			}
			opts.log.Info("equilibrium saved", zap.String("path", outPath))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "",
		"output file path (default: input name with _output.yaml suffix)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"listen address for the Prometheus /metrics endpoint (disabled when empty)")
	return cmd
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check INPUT",
		Short: "Parse and validate an input deck without solving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := input.NewParser(opts.log).ParseFile(args[0])
			if err != nil {
				return err
			}
			opts.log.Info("input deck is valid",
				zap.Int("stages", cfg.NumStages()),
				zap.Int("boundary_modes", len(cfg.Boundary)),
				zap.Bool("sym", cfg.Sym),
				zap.Int("nfp", cfg.NFP),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d continuation stages)\n", args[0], cfg.NumStages())
			return nil
		},
	}
}
