package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/treesync/internal/commit"
	"github.com/dshills/treesync/internal/config"
	"github.com/dshills/treesync/internal/document"
	"github.com/dshills/treesync/internal/logging"
	"github.com/dshills/treesync/internal/session"
)

func watchCmd(g *globals) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Follow a file on disk and keep its tree committed",
		Long: `Open FILE and follow its changes on disk. Every change is turned into
a single document-side edit and committed in the background; each commit
is logged with a summary of the new tree. The configuration file, when
given, is watched too and its log level applied live. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), g, args[0], debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", config.DefaultDebounce, "Quiet period before a change is applied")
	return cmd
}

func runWatch(ctx context.Context, g *globals, path string, debounce time.Duration) (err error) {
	path, err = filepath.Abs(path)
	if err != nil {
		return err
	}

	committed := make(chan document.ID, 16)
	e, err := g.openEngine(path, session.WithObserver(func(id document.ID, _, to commit.Stage) {
		if to != commit.Committed {
			return
		}
		select {
		case committed <- id:
		default:
		}
	}))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.close(); err == nil {
			err = cerr
		}
	}()

	w, err := config.NewWatcher(config.WithDebounce(debounce), config.WithWatcherLogger(g.logger))
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return err
	}
	var cfgPath string
	if g.configPath != "" {
		if cfgPath, err = filepath.Abs(g.configPath); err != nil {
			return err
		}
		if err := w.Add(cfgPath); err != nil {
			return err
		}
	}

	g.logger.Info("watching", "file", path, "len", e.doc.Len())

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return follow(ctx, w.Events(), w.Errors(), g.logger, func(ev config.Event) error {
			if ev.Path == cfgPath {
				g.reload()
				return nil
			}
			return e.sync(ev)
		})
	})
	grp.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case id := <-committed:
				e.report(g, id)
			}
		}
	})
	return grp.Wait()
}

// follow hands every event to handle until ctx ends, events closes or
// handle fails. Watch errors are logged; a closed error channel is dropped
// from the select.
func follow(ctx context.Context, events <-chan config.Event, errs <-chan error, logger *slog.Logger, handle func(config.Event) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := handle(ev); err != nil {
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

// sync applies the file's current content to the document as one edit.
func (e *engine) sync(ev config.Event) error {
	if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
		if _, err := os.Stat(ev.Path); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s was removed", ev.Path)
		}
	}
	data, err := os.ReadFile(ev.Path)
	if err != nil {
		return err
	}
	offset, oldLen, text := minimalEdit(e.doc.Text(), string(data))
	if oldLen == 0 && text == "" {
		return nil
	}
	return e.session.Edit(e.doc.ID(), offset, oldLen, text)
}

func (e *engine) report(g *globals, id document.ID) {
	tr, err := e.session.Tree(id)
	if err != nil || tr == nil {
		return
	}
	stats := e.session.Stats()
	g.logger.Info("committed",
		"len", tr.Len(),
		"stamp", tr.Stamp(),
		"commits", stats.Committed,
		"cancelled", stats.Cancelled)
	g.logger.Debug("tree", "tree", tr.String())
}

// reload re-reads the configuration file and applies its log level. The
// other settings take effect on the next run.
func (g *globals) reload() {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		g.logger.Warn("config reload failed", "error", err)
		return
	}
	g.level.Set(logging.ParseLevel(cfg.Logging.Level))
	g.logger.Info("config reloaded", "level", cfg.Logging.Level)
}
