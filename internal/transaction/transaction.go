package transaction

import (
	"slices"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/dshills/treesync/internal/document"
)

// Transaction accumulates replacements against a fixed base snapshot.
// A Transaction is not safe for concurrent use; the Bridge serializes it.
type Transaction struct {
	base   document.Snapshot
	frags  []*Fragment
	policy BoundaryPolicy
}

// New creates a transaction over base. policy may be nil.
func New(base document.Snapshot, policy BoundaryPolicy) *Transaction {
	return &Transaction{base: base, policy: policy}
}

// Base returns the snapshot the transaction started from.
func (t *Transaction) Base() document.Snapshot {
	return t.base
}

// Len returns the length of the logical text.
func (t *Transaction) Len() int {
	if len(t.frags) == 0 {
		return len(t.base.Text)
	}
	last := t.frags[len(t.frags)-1]
	return len(t.base.Text) + last.LogicalEnd() - last.OrigEnd
}

// Text returns the logical text: the base with every fragment applied.
func (t *Transaction) Text() string {
	return t.slice(0, t.Len())
}

// Fragments returns a copy of the fragment set in ascending order.
func (t *Transaction) Fragments() []Fragment {
	out := make([]Fragment, len(t.frags))
	for i, f := range t.frags {
		out[i] = *f
	}
	return out
}

// IsEmpty reports whether there is nothing to commit.
func (t *Transaction) IsEmpty() bool {
	return len(t.frags) == 0
}

// Replace replaces oldLen bytes at offset of the logical text with newText.
func (t *Transaction) Replace(offset, oldLen int, newText string) error {
	n := t.Len()
	if offset < 0 || oldLen < 0 || offset+oldLen > n {
		return errors.Wrapf(ErrRangeInvalid, "replace(%d, %d) on %d bytes", offset, oldLen, n)
	}

	start, end := offset, offset+oldLen
	prefix, suffix := commonAffixes(t.slice(start, end), newText)
	start += prefix
	end -= suffix
	newText = newText[prefix : len(newText)-suffix]
	if start == end && newText == "" {
		return nil
	}

	if newText == "" {
		start, end = t.alignDeletion(start, end)
	}

	if t.policy != nil {
		start, end, newText = t.applyPolicy(start, end, newText)
	}

	t.splice(start, end, newText)
	return t.check()
}

// applyPolicy widens the edit by what the policy asks for, copying the
// absorbed text into the replacement.
func (t *Transaction) applyPolicy(start, end int, newText string) (int, int, string) {
	n := t.Len()
	left, right := t.policy.Adjust(Boundary{
		Start:  start,
		End:    end,
		Before: t.slice(start-BoundaryContext, start),
		Old:    t.slice(start, end),
		New:    newText,
		After:  t.slice(end, end+BoundaryContext),
	})
	left = max(0, min(left, start))
	right = max(0, min(right, n-end))
	if left == 0 && right == 0 {
		return start, end, newText
	}
	newText = t.slice(start-left, start) + newText + t.slice(end, end+right)
	return start - left, end + right, newText
}

// alignDeletion slides a deletion containing a line break to an equivalent
// position that starts a line. Deleting [s,e) leaves the same text as
// deleting [s-1,e-1) when T[s-1]==T[e-1], and [s+1,e+1) when T[s]==T[e].
func (t *Transaction) alignDeletion(start, end int) (int, int) {
	width := end - start
	lo := max(0, start-width)
	hi := min(t.Len(), end+width)
	// one extra byte on the left so lineStart(lo) can look behind it
	wlo := max(0, lo-1)
	window := t.slice(wlo, hi)
	at := func(i int) byte { return window[i-wlo] }
	lineStart := func(i int) bool { return i == 0 || at(i-1) == '\n' }

	if !strings.Contains(window[start-wlo:end-wlo], "\n") || lineStart(start) {
		return start, end
	}

	for s, e := start, end; s > lo && e > start; {
		if at(s-1) != at(e-1) {
			break
		}
		s, e = s-1, e-1
		if lineStart(s) {
			return s, e
		}
	}
	for s, e := start, end; e < hi && s < end; {
		if at(s) != at(e) {
			break
		}
		s, e = s+1, e+1
		if lineStart(s) {
			return s, e
		}
	}
	return start, end
}

// splice records the replacement of logical [start,end) with text, merging
// every fragment whose logical span touches the edit.
func (t *Transaction) splice(start, end int, text string) {
	delta := len(text) - (end - start)

	i := sort.Search(len(t.frags), func(k int) bool {
		return t.frags[k].LogicalEnd() >= start
	})
	j := i
	for j < len(t.frags) && t.frags[j].logicalStart <= end {
		j++
	}

	var f *Fragment
	if i == j {
		origStart := start - t.deltaBefore(i)
		f = &Fragment{
			OrigStart:    origStart,
			OrigEnd:      origStart + (end - start),
			Text:         text,
			logicalStart: start,
		}
		t.frags = slices.Insert(t.frags, i, f)
	} else {
		first, last := t.frags[i], t.frags[j-1]
		lStart := min(start, first.logicalStart)
		lEnd := max(end, last.LogicalEnd())
		buf := t.slice(lStart, lEnd)
		f = &Fragment{
			OrigStart:    first.OrigStart - (first.logicalStart - lStart),
			OrigEnd:      last.OrigEnd + (lEnd - last.LogicalEnd()),
			Text:         buf[:start-lStart] + text + buf[end-lStart:],
			logicalStart: lStart,
		}
		t.frags = slices.Replace(t.frags, i, j, f)
	}

	for _, later := range t.frags[i+1:] {
		later.logicalStart += delta
	}

	if f.Text == t.base.Text[f.OrigStart:f.OrigEnd] {
		// the region is back to its original text
		t.frags = slices.Delete(t.frags, i, i+1)
	}
}

// deltaBefore returns the accumulated length change of fragments [0, i).
func (t *Transaction) deltaBefore(i int) int {
	if i == 0 {
		return 0
	}
	prev := t.frags[i-1]
	return prev.LogicalEnd() - prev.OrigEnd
}

// slice returns logical text in [a, b), clamped to the logical text.
func (t *Transaction) slice(a, b int) string {
	a = max(0, a)
	b = min(b, t.Len())
	if a >= b {
		return ""
	}

	var sb strings.Builder
	sb.Grow(b - a)
	pos, orig := 0, 0
	for _, f := range t.frags {
		if pos >= b {
			break
		}
		appendClipped(&sb, a, b, pos, t.base.Text[orig:f.OrigStart])
		appendClipped(&sb, a, b, f.logicalStart, f.Text)
		pos, orig = f.LogicalEnd(), f.OrigEnd
	}
	if pos < b {
		appendClipped(&sb, a, b, pos, t.base.Text[orig:])
	}
	return sb.String()
}

// appendClipped appends the part of seg, which starts at logical offset
// at, that falls inside [a, b).
func appendClipped(sb *strings.Builder, a, b, at int, seg string) {
	lo := max(a, at)
	hi := min(b, at+len(seg))
	if lo < hi {
		sb.WriteString(seg[lo-at : hi-at])
	}
}

// check verifies that fragments are sorted, disjoint, inside the base text
// and that their cached logical starts agree with their original offsets.
func (t *Transaction) check() error {
	shift := 0
	for k, f := range t.frags {
		if f.OrigStart < 0 || f.OrigStart > f.OrigEnd || f.OrigEnd > len(t.base.Text) {
			return errors.Wrapf(ErrInvariant, "fragment %d %v outside base of %d bytes", k, f, len(t.base.Text))
		}
		if k > 0 && t.frags[k-1].OrigEnd >= f.OrigStart {
			return errors.Wrapf(ErrInvariant, "fragments %d %v and %d %v overlap", k-1, t.frags[k-1], k, f)
		}
		if f.logicalStart != f.OrigStart+shift {
			return errors.Wrapf(ErrInvariant, "fragment %d %v logical start %d, want %d", k, f, f.logicalStart, f.OrigStart+shift)
		}
		shift += f.Delta()
	}
	return nil
}

// Commit writes the fragments into doc in ascending order as one atomic
// batch. doc must still be at the base stamp. The read-only guard is
// bypassed for this batch only.
func (t *Transaction) Commit(doc *document.Document) error {
	if doc.ID() != t.base.ID {
		return errors.Wrapf(ErrInvariant, "commit of %v into document %v", t.base.ID, doc.ID())
	}
	if len(t.frags) == 0 {
		if doc.Stamp() != t.base.Stamp {
			return ErrStaleTransaction
		}
		return nil
	}

	edits := make([]document.Edit, 0, len(t.frags))
	delta := 0
	for _, f := range t.frags {
		edits = append(edits, document.Edit{
			Range:   document.Range{Start: f.OrigStart + delta, End: f.OrigEnd + delta},
			NewText: f.Text,
		})
		delta += f.Delta()
	}
	return writeBatch(doc, t.base.Stamp, edits)
}

// writeBatch applies edits unguarded, reporting a moved document as stale.
func writeBatch(doc *document.Document, stamp document.Stamp, edits []document.Edit) error {
	err := doc.ApplyBatch(stamp, edits, true)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, document.ErrStampMismatch):
		return ErrStaleTransaction
	default:
		// fragments were derived from this very text, so they must fit
		return errors.Wrapf(ErrInvariant, "applying fragments: %v", err)
	}
}
