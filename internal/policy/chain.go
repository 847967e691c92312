package policy

import "github.com/dshills/treesync/internal/transaction"

// Chain asks every policy and widens by the largest answer on each side.
// Nil entries are skipped.
type Chain []transaction.BoundaryPolicy

// Adjust implements transaction.BoundaryPolicy.
func (c Chain) Adjust(b transaction.Boundary) (left, right int) {
	for _, p := range c {
		if p == nil {
			continue
		}
		l, r := p.Adjust(b)
		left = max(left, l)
		right = max(right, r)
	}
	return left, right
}
