package linetree

import (
	"context"
	"strings"

	"github.com/dshills/treesync/internal/dirty"
	"github.com/dshills/treesync/internal/document"
	"github.com/dshills/treesync/internal/tree"
)

// Parser is a tree.Reparser producing *Tree values. It is safe for
// concurrent use.
type Parser struct {
	checkpoint func(ctx context.Context, offset int)
}

// Option configures a Parser.
type Option func(*Parser)

// WithCheckpoint installs a hook called at every cancellation checkpoint
// with the offset of the line about to be scanned.
func WithCheckpoint(fn func(ctx context.Context, offset int)) Option {
	return func(p *Parser) {
		p.checkpoint = fn
	}
}

// New creates a parser.
func New(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse builds a tree for snap from scratch.
func (p *Parser) Parse(ctx context.Context, snap document.Snapshot) (*Tree, error) {
	blocks, err := p.scan(ctx, snap.Text, 0, len(snap.Text))
	if err != nil {
		return nil, err
	}
	return &Tree{stamp: snap.Stamp, length: len(snap.Text), blocks: blocks}, nil
}

// Reparse implements tree.Reparser.
func (p *Parser) Reparse(ctx context.Context, snap document.Snapshot, old tree.Tree, block dirty.Block) (*tree.Fragment, error) {
	prev, ok := old.(*Tree)
	var (
		t   *Tree
		err error
	)
	if ok && tree.Incremental(prev, len(snap.Text), block) {
		t, err = p.reparse(ctx, snap, prev, block)
	} else {
		t, err = p.Parse(ctx, snap)
	}
	if err != nil {
		return nil, err
	}
	return &tree.Fragment{Doc: snap.ID, BaseStamp: snap.Stamp, Block: block, Tree: t}, nil
}

// reparse rescans the text between the closest blank lines around the
// dirty block and reuses the old blocks on either side.
func (p *Parser) reparse(ctx context.Context, snap document.Snapshot, old *Tree, block dirty.Block) (*Tree, error) {
	text := snap.Text
	delta := block.TextEnd - block.TreeEnd

	// text before block.Start is unchanged, so a blank line that ends
	// there still separates blocks
	from := 0
	if i := lastBlankLineEnd(text[:block.Start]); i >= 0 {
		from = i
	}
	// likewise for whole lines after block.TextEnd; the newline before
	// such a line is unchanged too, so old blocks past it still hold
	to := len(text)
	if i := firstBlankLineStart(text, block.TextEnd); i >= 0 {
		to = i
	}

	var blocks []Block
	reused := 0
	for _, b := range old.blocks {
		if b.End > from {
			break
		}
		blocks = append(blocks, b)
		reused++
	}

	mid, err := p.scan(ctx, text, from, to)
	if err != nil {
		return nil, err
	}
	blocks = append(blocks, mid...)

	for _, b := range old.blocks {
		if b.Start+delta >= to {
			blocks = append(blocks, b.shift(delta))
			reused++
		}
	}

	return &Tree{stamp: snap.Stamp, length: len(text), blocks: blocks, reused: reused}, nil
}

// scan splits text[from:to] into blocks. from must start a line.
func (p *Parser) scan(ctx context.Context, text string, from, to int) ([]Block, error) {
	var (
		blocks []Block
		cur    *Block
	)
	for pos := from; pos < to; {
		if p.checkpoint != nil {
			p.checkpoint(ctx, pos)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := to
		if i := strings.IndexByte(text[pos:to], '\n'); i >= 0 {
			end = pos + i + 1
		}

		if isBlank(text[pos:end]) {
			cur = nil
		} else {
			if cur == nil {
				blocks = append(blocks, Block{Start: pos})
				cur = &blocks[len(blocks)-1]
			}
			cur.Lines = append(cur.Lines, Line{Start: pos, End: end})
			cur.End = end
		}
		pos = end
	}
	return blocks, nil
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// lastBlankLineEnd returns the offset just past the last complete blank
// line in s, or -1.
func lastBlankLineEnd(s string) int {
	end := strings.LastIndexByte(s, '\n')
	for end >= 0 {
		start := strings.LastIndexByte(s[:end], '\n') + 1
		if isBlank(s[start:end]) {
			return end + 1
		}
		end = start - 1
	}
	return -1
}

// firstBlankLineStart returns the start of the first complete blank line
// of s that starts after from, or -1. The line holding from is skipped
// since it may have been joined with edited text. A trailing line without
// a newline counts as complete.
func firstBlankLineStart(s string, from int) int {
	i := strings.IndexByte(s[from:], '\n')
	if i < 0 {
		return -1
	}
	for pos := from + i + 1; pos < len(s); {
		end := len(s)
		if i := strings.IndexByte(s[pos:], '\n'); i >= 0 {
			end = pos + i + 1
		}
		if isBlank(s[pos:end]) {
			return pos
		}
		pos = end
	}
	return -1
}
