package document

// Snapshot is an immutable view of a document at one stamp.
// Go strings are immutable, so a snapshot shares the document's storage
// and stays valid after further edits.
type Snapshot struct {
	ID    ID
	Name  string
	Text  string
	Stamp Stamp
}

// Len returns the byte length of the snapshot.
func (s Snapshot) Len() int {
	return len(s.Text)
}

// Slice returns text in [start, end), clamped to the snapshot.
func (s Snapshot) Slice(start, end int) string {
	start = max(0, min(start, len(s.Text)))
	end = max(start, min(end, len(s.Text)))
	return s.Text[start:end]
}
