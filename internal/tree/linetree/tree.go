package linetree

import (
	"fmt"
	"strings"

	"github.com/dshills/treesync/internal/document"
)

// Line is a single line, including its terminating newline if any.
type Line struct {
	Start int
	End   int
}

// Block is a maximal run of non-blank lines.
type Block struct {
	Start int
	End   int
	Lines []Line
}

// shift returns a copy of b moved by delta bytes.
func (b Block) shift(delta int) Block {
	out := Block{Start: b.Start + delta, End: b.End + delta, Lines: make([]Line, len(b.Lines))}
	for i, l := range b.Lines {
		out.Lines[i] = Line{Start: l.Start + delta, End: l.End + delta}
	}
	return out
}

// Tree is an immutable list of blocks.
type Tree struct {
	stamp  document.Stamp
	length int
	blocks []Block

	// reused counts blocks carried over from the previous tree.
	reused int
}

// Stamp implements tree.Tree.
func (t *Tree) Stamp() document.Stamp { return t.stamp }

// Len implements tree.Tree.
func (t *Tree) Len() int { return t.length }

// Blocks returns the blocks in text order.
func (t *Tree) Blocks() []Block { return t.blocks }

// Reused returns how many blocks were carried over by the reparse that
// produced the tree.
func (t *Tree) Reused() int { return t.reused }

// String renders the tree, one line per block.
func (t *Tree) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(document [0,%d) blocks=%d", t.length, len(t.blocks))
	for _, b := range t.blocks {
		fmt.Fprintf(&sb, "\n  (block [%d,%d) lines=%d)", b.Start, b.End, len(b.Lines))
	}
	sb.WriteString(")")
	return sb.String()
}
