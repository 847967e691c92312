package treesitter

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/dshills/treesync/internal/dirty"
	"github.com/dshills/treesync/internal/document"
	"github.com/dshills/treesync/internal/tree"
)

// Parser is a tree.Reparser for a single grammar. It is safe for
// concurrent use.
type Parser struct {
	name string
	lang *sitter.Language
}

// New creates a parser for the named grammar (see Languages).
func New(language string) (*Parser, error) {
	get, ok := grammars[strings.ToLower(language)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, language)
	}
	return &Parser{name: strings.ToLower(language), lang: get()}, nil
}

// ForFile creates a parser for path's extension.
func ForFile(path string) (*Parser, error) {
	name := LanguageForFile(path)
	if name == "" {
		return nil, fmt.Errorf("%w: no grammar for %q", ErrUnknownLanguage, path)
	}
	return New(name)
}

// Language returns the grammar name.
func (p *Parser) Language() string {
	return p.name
}

// Parse parses snap from scratch.
func (p *Parser) Parse(ctx context.Context, snap document.Snapshot) (*Tree, error) {
	return p.parse(ctx, snap, nil)
}

// Reparse implements tree.Reparser.
func (p *Parser) Reparse(ctx context.Context, snap document.Snapshot, old tree.Tree, block dirty.Block) (*tree.Fragment, error) {
	var seed *sitter.Tree
	if prev, ok := old.(*Tree); ok && prev.language == p.name && tree.Incremental(prev, len(snap.Text), block) {
		seed = prev.raw.Copy()
		seed.Edit(sitter.EditInput{
			StartIndex:  uint32(block.Start),
			OldEndIndex: uint32(block.TreeEnd),
			NewEndIndex: uint32(block.TextEnd),
			StartPoint:  pointAt(snap.Text, block.Start),
			OldEndPoint: pointAt(prev.src, block.TreeEnd),
			NewEndPoint: pointAt(snap.Text, block.TextEnd),
		})
	}

	t, err := p.parse(ctx, snap, seed)
	if err != nil {
		return nil, err
	}
	return &tree.Fragment{Doc: snap.ID, BaseStamp: snap.Stamp, Block: block, Tree: t}, nil
}

func (p *Parser) parse(ctx context.Context, snap document.Snapshot, seed *sitter.Tree) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.lang)

	raw, err := parser.ParseCtx(ctx, seed, []byte(snap.Text))
	if ctxErr := ctx.Err(); ctxErr != nil {
		// a result finished after cancellation is dropped as well
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s as %s: %w", snap.Name, p.name, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("parsing %s as %s: no tree", snap.Name, p.name)
	}
	return &Tree{raw: raw, src: snap.Text, stamp: snap.Stamp, language: p.name}, nil
}

// pointAt returns the row and byte column of offset in text.
func pointAt(text string, offset int) sitter.Point {
	head := text[:offset]
	row := strings.Count(head, "\n")
	col := offset - (strings.LastIndexByte(head, '\n') + 1)
	return sitter.Point{Row: uint32(row), Column: uint32(col)}
}
