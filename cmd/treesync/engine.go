package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dshills/treesync/internal/config"
	"github.com/dshills/treesync/internal/document"
	"github.com/dshills/treesync/internal/policy"
	"github.com/dshills/treesync/internal/session"
	"github.com/dshills/treesync/internal/transaction"
	"github.com/dshills/treesync/internal/tree"
	"github.com/dshills/treesync/internal/tree/linetree"
	"github.com/dshills/treesync/internal/tree/treesitter"
)

// lineLanguage selects the line tree instead of a tree-sitter grammar.
const lineLanguage = "line"

// reparsers picks a reparse service per document: the configured grammar,
// else the grammar for the file extension, else the line tree.
func reparsers(cfg config.ParserConfig) session.ReparserFactory {
	return func(name string) (tree.Reparser, error) {
		switch cfg.Language {
		case lineLanguage:
			return linetree.New(), nil
		case "":
		default:
			return treesitter.New(cfg.Language)
		}
		p, err := treesitter.ForFile(name)
		if errors.Is(err, treesitter.ErrUnknownLanguage) {
			return linetree.New(), nil
		}
		return p, err
	}
}

// boundaryPolicy builds the policy chain for tree-side edits. The returned
// function releases the script interpreter.
func boundaryPolicy(cfg config.PolicyConfig, logger *slog.Logger) (transaction.BoundaryPolicy, func(), error) {
	var chain policy.Chain
	if cfg.Markup {
		chain = append(chain, policy.Markup{})
	}
	release := func() {}
	if cfg.Script != "" {
		script, err := policy.LoadLua(cfg.Script,
			policy.WithTimeout(cfg.ScriptTimeout.Duration),
			policy.WithLogger(logger))
		if err != nil {
			return nil, release, fmt.Errorf("loading policy script: %w", err)
		}
		chain = append(chain, script)
		release = func() { _ = script.Close() }
	}
	if len(chain) == 0 {
		return nil, release, nil
	}
	return chain, release, nil
}

// engine is a running session with one file open in it.
type engine struct {
	session *session.Session
	doc     *document.Document
	timeout time.Duration
	release func()
}

// openEngine starts a session and opens path in it.
func (g *globals) openEngine(path string, opts ...session.Option) (*engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pol, release, err := boundaryPolicy(g.cfg.Policy, g.logger)
	if err != nil {
		return nil, err
	}

	sched := g.cfg.Scheduler
	s := session.New(append([]session.Option{
		session.WithLogger(g.logger),
		session.WithReparserFactory(reparsers(g.cfg.Parser)),
		session.WithPolicy(pol),
		session.WithPollInterval(sched.PollInterval.Duration),
		session.WithSyncRetries(sched.SyncRetries),
		session.WithStrict(sched.Strict),
	}, opts...)...)

	doc, err := s.Open(path, string(data))
	if err != nil {
		_ = s.Shutdown(context.Background())
		release()
		return nil, err
	}
	s.Start()
	return &engine{session: s, doc: doc, timeout: sched.ShutdownTimeout.Duration, release: release}, nil
}

// close stops the session, waiting at most the configured shutdown timeout.
func (e *engine) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	err := e.session.Shutdown(ctx)
	e.release()
	return err
}
