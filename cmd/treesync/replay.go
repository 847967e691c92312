package main

import (
	"context"
	"fmt"
	"io"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"github.com/dshills/treesync/internal/session"
)

type replayOptions struct {
	script    string
	sync      bool
	showText  bool
	showStats bool
	showDiag  bool
}

func replayCmd(g *globals) *cobra.Command {
	var opts replayOptions

	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Apply an edit script to a file and print the resulting tree",
		Long: `Open FILE, derive its tree and apply the steps of an edit script.
Document-side edits are committed in the background unless --sync is given;
tree-side edits are buffered in a transaction and written back together.
The final tree is printed once the document is committed. FILE itself is
never written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), g, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.script, "script", "s", "", "TOML edit script")
	cmd.Flags().BoolVar(&opts.sync, "sync", false, "Commit synchronously after every step")
	cmd.Flags().BoolVar(&opts.showText, "text", false, "Print the final text before the tree")
	cmd.Flags().BoolVar(&opts.showStats, "stats", false, "Print scheduler counters")
	cmd.Flags().BoolVar(&opts.showDiag, "diag", false, "Print the diagnostics log")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}

func runReplay(ctx context.Context, g *globals, out io.Writer, path string, opts replayOptions) (err error) {
	sc, err := loadScript(opts.script)
	if err != nil {
		return err
	}

	e, err := g.openEngine(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.close(); err == nil {
			err = cerr
		}
	}()

	for i, st := range sc.Steps {
		if err := e.step(ctx, st); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if opts.sync {
			if err := e.session.CommitSync(e.doc.ID()); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		g.logger.Debug("step applied", "step", i+1, "len", e.doc.Len())
	}

	if err := e.session.WaitCommitted(ctx, e.doc.ID()); err != nil {
		return err
	}
	tr, err := e.session.Tree(e.doc.ID())
	if err != nil {
		return err
	}

	if opts.showText {
		fmt.Fprintln(out, e.doc.Text())
	}
	fmt.Fprintln(out, tr)
	if opts.showStats {
		pretty.Fprintf(out, "%# v\n", e.session.Stats())
	}
	if opts.showDiag && g.ring != nil {
		fmt.Fprint(out, g.ring.Dump())
	}
	return nil
}

func (e *engine) step(ctx context.Context, st Step) error {
	id := e.doc.ID()
	switch {
	case st.Edit != nil:
		return e.session.Edit(id, st.Edit.Offset, st.Edit.Delete, st.Edit.Text)
	case len(st.Tree) > 0:
		// tree-side edits need a tree that describes the text
		if err := e.session.WaitCommitted(ctx, id); err != nil {
			return err
		}
		return e.session.TreeEdit(id, func(te *session.TreeEdit) error {
			for _, r := range st.Tree {
				if err := te.Replace(r.Offset, r.Delete, r.Text); err != nil {
					return err
				}
			}
			return nil
		})
	case st.Commit:
		return e.session.CommitSync(id)
	case st.Wait:
		return e.session.WaitCommitted(ctx, id)
	}
	return errBadStep
}
