package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/treesync/internal/config"
	"github.com/dshills/treesync/internal/diag"
	"github.com/dshills/treesync/internal/logging"
)

// globals are the settings shared by every subcommand.
type globals struct {
	configPath string
	logLevel   string
	noColor    bool

	cfg    *config.Config
	ring   *diag.Ring
	level  slog.LevelVar
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "treesync",
		Short: "Keep a document and its syntax tree in step",
		Long: `treesync drives the document/tree synchronization engine from the
command line: it opens a file, derives its tree, applies editor-side and
tree-side edits and commits the tree in the background or on demand.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to a TOML configuration file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Console log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable coloured log output")

	root.AddCommand(replayCmd(g), watchCmd(g), versionCmd())
	return root
}

// setup loads the configuration and builds the logger. Flags override the
// file and the environment.
func (g *globals) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = g.logLevel
	}
	if g.noColor {
		cfg.Logging.NoColor = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.apply(cfg, cmd.ErrOrStderr())
	return nil
}

func (g *globals) apply(cfg *config.Config, logOut io.Writer) {
	g.cfg = cfg
	var extra []slog.Handler
	if cfg.Diagnostics.RingBytes > 0 {
		g.ring = diag.NewRing(diag.WithLimit(cfg.Diagnostics.RingBytes))
		extra = append(extra, g.ring)
	}
	g.logger = logging.New(logging.Config{
		Level:    cfg.Logging.Level,
		NoColor:  cfg.Logging.NoColor,
		Output:   logOut,
		LevelVar: &g.level,
	}, extra...)
}
