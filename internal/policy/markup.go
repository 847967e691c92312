package policy

import (
	"strings"

	"github.com/dshills/treesync/internal/transaction"
)

// Markup keeps a `<` that precedes an inserted `><` inside the edit, so
// the fragment starts on the tag opener instead of just after it.
type Markup struct{}

// Adjust implements transaction.BoundaryPolicy.
func (Markup) Adjust(b transaction.Boundary) (left, right int) {
	if strings.HasSuffix(b.Before, "<") && strings.HasPrefix(b.New, "><") {
		return 1, 0
	}
	return 0, 0
}
