package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/treesync/internal/config"
	"github.com/dshills/treesync/internal/tree/treesitter"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version, grammars and configuration variables",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "treesync %s (commit %s, built %s, %s)\n", version, buildCommit, date, runtime.Version())
			fmt.Fprintf(out, "grammars: %s, %s\n", strings.Join(treesitter.Languages(), ", "), lineLanguage)
			fmt.Fprintf(out, "environment: %s\n", strings.Join(config.EnvVars(), " "))
		},
	}
}
