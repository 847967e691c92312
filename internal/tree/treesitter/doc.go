// Package treesitter is a reparse service backed by tree-sitter grammars.
//
// Each reparse uses its own parser. When the cached tree came from the
// same grammar and the dirty block agrees with it, a copy of that tree is
// edited and handed to tree-sitter for an incremental parse; the cached
// tree itself is never modified, so readers may keep using it while the
// reparse runs.
package treesitter
