package treesitter

import "errors"

// ErrUnknownLanguage is returned for a language with no built-in grammar.
var ErrUnknownLanguage = errors.New("unknown tree-sitter language")
