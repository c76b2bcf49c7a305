package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stellmhd/stellmhd/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stellmhd %s (%s)\n", version.Version, version.GitCommit)
		},
	}
}
