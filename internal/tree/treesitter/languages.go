package treesitter

import (
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/yaml"
)

var grammars = map[string]func() *sitter.Language{
	"go":         golang.GetLanguage,
	"python":     python.GetLanguage,
	"javascript": javascript.GetLanguage,
	"rust":       rust.GetLanguage,
	"bash":       bash.GetLanguage,
	"yaml":       yaml.GetLanguage,
	"html":       html.GetLanguage,
}

var extensions = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".mjs":  "javascript",
	".rs":   "rust",
	".sh":   "bash",
	".bash": "bash",
	".yml":  "yaml",
	".yaml": "yaml",
	".html": "html",
	".htm":  "html",
}

// Languages returns the names of the built-in grammars, sorted.
func Languages() []string {
	names := make([]string, 0, len(grammars))
	for name := range grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LanguageForFile returns the grammar name for path's extension, or "".
func LanguageForFile(path string) string {
	return extensions[strings.ToLower(filepath.Ext(path))]
}
