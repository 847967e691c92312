// Package session owns a set of open documents and keeps each document's
// tree in step with its text.
//
// A Session wires the pieces together: it records every edit in the
// document's dirty range, queues a background commit, applies reparse
// results inside the shared write section and routes tree-side edits
// through a transaction bridge.
//
//	s := session.New(session.WithReparserFactory(factory))
//	s.Start()
//	defer s.Shutdown(ctx)
//
//	doc, err := s.Open("main.go", src)
//	...
//	s.Edit(doc.ID(), 10, 0, "x")
//	if err := s.CommitSync(doc.ID()); err != nil {
//	    return err
//	}
//	t, _ := s.Tree(doc.ID())
//
// Code that needs several operations to appear atomic to readers runs them
// in WriteAction. Background commits are suspended for its duration.
package session
