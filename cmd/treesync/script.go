package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Script is an edit script for the replay command:
//
//	[[step]]
//	edit = { offset = 0, delete = 0, text = "// header\n" }
//
//	[[step]]
//	tree = [{ offset = 3, delete = 4, text = "main" }]
//
//	[[step]]
//	commit = true
//
// Each step does exactly one thing. Edits are document-side, tree edits
// are buffered in one tree-side transaction and flushed together, commit
// brings the tree up to date synchronously and wait blocks until the
// background worker has.
type Script struct {
	Steps []Step `toml:"step"`
}

// Step is one scripted action.
type Step struct {
	Edit   *Replace  `toml:"edit"`
	Tree   []Replace `toml:"tree"`
	Commit bool      `toml:"commit"`
	Wait   bool      `toml:"wait"`
}

// Replace replaces Delete characters at Offset with Text.
type Replace struct {
	Offset int    `toml:"offset"`
	Delete int    `toml:"delete"`
	Text   string `toml:"text"`
}

func (r Replace) String() string {
	return fmt.Sprintf("replace(%d,+%d,%q)", r.Offset, r.Delete, r.Text)
}

// errBadStep marks a step that does not name exactly one action.
var errBadStep = errors.New("step must contain exactly one of edit, tree, commit or wait")

func loadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := parseScript(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func parseScript(data []byte) (*Script, error) {
	var sc Script
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sc); err != nil {
		return nil, err
	}
	for i, st := range sc.Steps {
		if err := st.validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &sc, nil
}

func (s Step) validate() error {
	n := 0
	if s.Edit != nil {
		n++
		if err := s.Edit.validate(); err != nil {
			return err
		}
	}
	if len(s.Tree) > 0 {
		n++
		for _, r := range s.Tree {
			if err := r.validate(); err != nil {
				return err
			}
		}
	}
	if s.Commit {
		n++
	}
	if s.Wait {
		n++
	}
	if n != 1 {
		return errBadStep
	}
	return nil
}

func (r Replace) validate() error {
	if r.Offset < 0 || r.Delete < 0 {
		return fmt.Errorf("%v: offset and delete must not be negative", r)
	}
	return nil
}
