package tree

import (
	"context"
	"fmt"

	"github.com/dshills/treesync/internal/dirty"
	"github.com/dshills/treesync/internal/document"
)

// Tree is a structural representation of a document's text.
type Tree interface {
	// Stamp is the document stamp of the text the tree was derived from.
	Stamp() document.Stamp

	// Len is the byte length of that text.
	Len() int

	String() string
}

// Fragment is the result of a reparse: a tree for the snapshot with the
// given base stamp, plus the dirty block it was derived over.
type Fragment struct {
	Doc       document.ID
	BaseStamp document.Stamp
	Block     dirty.Block
	Tree      Tree
}

// String returns a short description of the fragment.
func (f *Fragment) String() string {
	return fmt.Sprintf("fragment(doc=%s stamp=%d block=%s len=%d)", f.Doc, f.BaseStamp, f.Block, f.Tree.Len())
}

// Reparser derives a tree for snap. old is the tree currently cached for
// the document (nil for the first parse) and block bounds the text that
// changed since old was derived; block.Full requests a parse from scratch.
type Reparser interface {
	Reparse(ctx context.Context, snap document.Snapshot, old Tree, block dirty.Block) (*Fragment, error)
}

// ReparserFunc adapts a function to the Reparser interface.
type ReparserFunc func(ctx context.Context, snap document.Snapshot, old Tree, block dirty.Block) (*Fragment, error)

// Reparse calls f.
func (f ReparserFunc) Reparse(ctx context.Context, snap document.Snapshot, old Tree, block dirty.Block) (*Fragment, error) {
	return f(ctx, snap, old, block)
}

// Incremental reports whether old can seed an incremental reparse of a
// text of newLen bytes over block: the block must not be full and the
// length old covers must agree with the block's view of the edit.
func Incremental(old Tree, newLen int, block dirty.Block) bool {
	if old == nil || block.Full || block.IsEmpty() {
		return false
	}
	return old.Len()+block.TextEnd-block.TreeEnd == newLen
}
