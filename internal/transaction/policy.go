package transaction

// Boundary describes a narrowed edit to a BoundaryPolicy.
type Boundary struct {
	// Start and End delimit the edit in logical coordinates.
	Start int
	End   int

	// Before holds up to BoundaryContext bytes preceding Start.
	Before string

	// Old is the text being replaced and New its replacement.
	Old string
	New string

	// After holds up to BoundaryContext bytes following End.
	After string
}

// BoundaryContext is the number of neighbouring bytes passed to policies.
const BoundaryContext = 16

// BoundaryPolicy may widen an edit over unchanged neighbouring text.
// Adjust returns how many bytes to absorb on each side; the transaction
// copies those bytes into the replacement, so the final text is unchanged
// whatever a policy answers.
type BoundaryPolicy interface {
	Adjust(b Boundary) (left, right int)
}

// PolicyFunc adapts a function to BoundaryPolicy.
type PolicyFunc func(b Boundary) (left, right int)

// Adjust calls f(b).
func (f PolicyFunc) Adjust(b Boundary) (left, right int) {
	return f(b)
}
