package transaction

import "fmt"

// Fragment replaces [OrigStart, OrigEnd) of the original text with Text.
type Fragment struct {
	OrigStart int
	OrigEnd   int
	Text      string

	// logicalStart caches the fragment start in logical coordinates.
	logicalStart int
}

// OrigLen returns the length of the replaced original text.
func (f *Fragment) OrigLen() int {
	return f.OrigEnd - f.OrigStart
}

// Delta returns the change in text length caused by the fragment.
func (f *Fragment) Delta() int {
	return len(f.Text) - f.OrigLen()
}

// LogicalStart returns the fragment start with earlier fragments applied.
func (f *Fragment) LogicalStart() int {
	return f.logicalStart
}

// LogicalEnd returns the end of the fragment text in logical coordinates.
func (f *Fragment) LogicalEnd() int {
	return f.logicalStart + len(f.Text)
}

// String returns a human-readable representation of the fragment.
func (f *Fragment) String() string {
	return fmt.Sprintf("[%d:%d)->%q", f.OrigStart, f.OrigEnd, f.Text)
}
