package treesitter

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/dshills/treesync/internal/document"
)

// Tree is a tree-sitter syntax tree together with the text it was parsed
// from. Trees are never edited after construction.
type Tree struct {
	raw      *sitter.Tree
	src      string
	stamp    document.Stamp
	language string
}

// Stamp implements tree.Tree.
func (t *Tree) Stamp() document.Stamp { return t.stamp }

// Len implements tree.Tree.
func (t *Tree) Len() int { return len(t.src) }

// Language returns the grammar name.
func (t *Tree) Language() string { return t.language }

// Root returns the root syntax node.
func (t *Tree) Root() *sitter.Node { return t.raw.RootNode() }

// HasError reports whether the text contains syntax errors.
func (t *Tree) HasError() bool { return t.Root().HasError() }

// String returns the tree as an S-expression.
func (t *Tree) String() string { return t.Root().String() }
