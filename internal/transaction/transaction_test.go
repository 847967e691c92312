package transaction

import (
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/treesync/internal/document"
)

type replaceOp struct {
	offset int
	oldLen int
	text   string
}

func newTxn(text string, policy BoundaryPolicy) (*document.Document, *Transaction) {
	doc := document.New("test", document.WithText(text))
	return doc, New(doc.Snapshot(), policy)
}

// apply replays ops one by one on a plain string.
func apply(text string, ops []replaceOp) string {
	for _, op := range ops {
		text = text[:op.offset] + op.text + text[op.offset+op.oldLen:]
	}
	return text
}

func TestInsertThenDeleteMergesIntoOneFragment(t *testing.T) {
	doc, txn := newTxn("abc", nil)

	require.NoError(t, txn.Replace(1, 0, "X"))
	assert.Equal(t, "aXbc", txn.Text())
	require.NoError(t, txn.Replace(2, 1, ""))
	assert.Equal(t, "aXc", txn.Text())

	frags := txn.Fragments()
	require.Len(t, frags, 1)
	assert.Equal(t, 1, frags[0].OrigStart)
	assert.Equal(t, 2, frags[0].OrigEnd)
	assert.Equal(t, "X", frags[0].Text)

	require.NoError(t, txn.Commit(doc))
	assert.Equal(t, "aXc", doc.Text())
}

func TestReplaceTrimsCommonAffixes(t *testing.T) {
	_, txn := newTxn("func main() {}", nil)

	require.NoError(t, txn.Replace(0, 14, "func  main() {}"))

	frags := txn.Fragments()
	require.Len(t, frags, 1)
	assert.Equal(t, 5, frags[0].OrigStart)
	assert.Equal(t, 5, frags[0].OrigEnd)
	assert.Equal(t, " ", frags[0].Text)
}

func TestReplaceIdenticalTextIsNoOp(t *testing.T) {
	_, txn := newTxn("hello", nil)

	require.NoError(t, txn.Replace(1, 3, "ell"))
	assert.True(t, txn.IsEmpty())
}

func TestReplaceRestoringOriginalDropsFragment(t *testing.T) {
	_, txn := newTxn("hello", nil)

	require.NoError(t, txn.Replace(1, 1, "a"))
	require.Len(t, txn.Fragments(), 1)
	require.NoError(t, txn.Replace(1, 1, "e"))
	assert.True(t, txn.IsEmpty())
	assert.Equal(t, "hello", txn.Text())
}

func TestAffixesRespectRuneBoundaries(t *testing.T) {
	// "é" and "è" share their first UTF-8 byte
	prefix, suffix := commonAffixes("xé", "xè")
	assert.Equal(t, 1, prefix)
	assert.Equal(t, 0, suffix)

	prefix, suffix = commonAffixes("éa", "èa")
	assert.Equal(t, 0, prefix)
	assert.Equal(t, 1, suffix)
}

func TestDeletionSlidesToLineStart(t *testing.T) {
	// deleting "\n  b" at [5,9) leaves the same text as deleting "  b\n"
	// at [2,6), which starts a line.
	doc, txn := newTxn("a\n  b\n  b\nc", nil)

	require.NoError(t, txn.Replace(5, 4, ""))

	frags := txn.Fragments()
	require.Len(t, frags, 1)
	assert.Equal(t, 2, frags[0].OrigStart)
	assert.Equal(t, 6, frags[0].OrigEnd)
	assert.Equal(t, "a\n  b\nc", txn.Text())

	require.NoError(t, txn.Commit(doc))
	assert.Equal(t, "a\n  b\nc", doc.Text())
}

func TestDeletionWithoutEquivalentPositionStays(t *testing.T) {
	_, txn := newTxn("ab\ncd", nil)

	require.NoError(t, txn.Replace(1, 2, ""))

	frags := txn.Fragments()
	require.Len(t, frags, 1)
	assert.Equal(t, 1, frags[0].OrigStart)
	assert.Equal(t, 3, frags[0].OrigEnd)
}

func TestPolicyWidensEdit(t *testing.T) {
	markup := PolicyFunc(func(b Boundary) (int, int) {
		if strings.HasSuffix(b.Before, "<") && strings.HasPrefix(b.New, "><") {
			return 1, 0
		}
		return 0, 0
	})
	doc, txn := newTxn("<a<b>", markup)

	require.NoError(t, txn.Replace(1, 1, "><"))

	frags := txn.Fragments()
	require.Len(t, frags, 1)
	assert.Equal(t, 0, frags[0].OrigStart)
	assert.Equal(t, "<><", frags[0].Text)

	require.NoError(t, txn.Commit(doc))
	assert.Equal(t, "<><<b>", doc.Text())
}

func TestPolicyCannotReachOutsideText(t *testing.T) {
	greedy := PolicyFunc(func(Boundary) (int, int) { return 100, 100 })
	_, txn := newTxn("abcdef", greedy)

	require.NoError(t, txn.Replace(2, 1, "X"))
	assert.Equal(t, "abXdef", txn.Text())

	frags := txn.Fragments()
	require.Len(t, frags, 1)
	assert.Equal(t, 0, frags[0].OrigStart)
	assert.Equal(t, 6, frags[0].OrigEnd)
}

func TestDistantEditsStaySeparate(t *testing.T) {
	doc, txn := newTxn("0123456789", nil)

	require.NoError(t, txn.Replace(8, 1, "EIGHT"))
	require.NoError(t, txn.Replace(1, 1, "one"))
	require.NoError(t, txn.Replace(0, 0, "!"))

	frags := txn.Fragments()
	require.Len(t, frags, 3)
	assert.Equal(t, "!", frags[0].Text)
	assert.Equal(t, 0, frags[0].OrigStart)
	assert.Equal(t, "one", frags[1].Text)
	assert.Equal(t, 2, frags[1].LogicalStart())
	assert.Equal(t, "EIGHT", frags[2].Text)
	assert.Equal(t, 8, frags[2].OrigStart)
	assert.Equal(t, 11, frags[2].LogicalStart())

	require.NoError(t, txn.Commit(doc))
	assert.Equal(t, "!0one234567EIGHT9", doc.Text())
}

func TestTouchingEditsMerge(t *testing.T) {
	_, txn := newTxn("0123456789", nil)

	require.NoError(t, txn.Replace(8, 1, "EIGHT"))
	// right after "EIGHT"
	require.NoError(t, txn.Replace(13, 0, "!"))

	frags := txn.Fragments()
	require.Len(t, frags, 1)
	assert.Equal(t, 8, frags[0].OrigStart)
	assert.Equal(t, 9, frags[0].OrigEnd)
	assert.Equal(t, "EIGHT!", frags[0].Text)
}

func TestReplaceSpanningFragmentsMerges(t *testing.T) {
	_, txn := newTxn("0123456789", nil)

	require.NoError(t, txn.Replace(2, 1, "AA"))
	require.NoError(t, txn.Replace(8, 1, "BB"))
	require.Len(t, txn.Fragments(), 2)

	// "01AA3456BB89": replace "A3456B" with "-"
	require.NoError(t, txn.Replace(3, 6, "-"))

	frags := txn.Fragments()
	require.Len(t, frags, 1)
	assert.Equal(t, 2, frags[0].OrigStart)
	assert.Equal(t, 8, frags[0].OrigEnd)
	assert.Equal(t, "A-B", frags[0].Text)
	assert.Equal(t, "01A-B89", txn.Text())
}

func TestReplaceOutOfRange(t *testing.T) {
	_, txn := newTxn("abc", nil)

	assert.ErrorIs(t, txn.Replace(2, 2, ""), ErrRangeInvalid)
	assert.ErrorIs(t, txn.Replace(-1, 0, "x"), ErrRangeInvalid)
}

func TestCommitStaleDocument(t *testing.T) {
	doc, txn := newTxn("abc", nil)
	require.NoError(t, txn.Replace(0, 1, "x"))
	require.NoError(t, doc.Insert(3, "d"))

	assert.ErrorIs(t, txn.Commit(doc), ErrStaleTransaction)
	assert.Equal(t, "abcd", doc.Text())
}

func TestCommitReadOnlyDocument(t *testing.T) {
	doc := document.New("ro", document.WithText("abc"), document.WithReadOnly())
	txn := New(doc.Snapshot(), nil)
	require.NoError(t, txn.Replace(1, 1, "B"))

	require.NoError(t, txn.Commit(doc))
	assert.Equal(t, "aBc", doc.Text())
	assert.True(t, doc.ReadOnly())
}

func TestCommitNotifiesPerFragment(t *testing.T) {
	doc, txn := newTxn("aaa bbb ccc ddd", nil)
	var changes []document.Change
	doc.AddListener(document.ListenerFunc(func(_ *document.Document, c document.Change) {
		changes = append(changes, c)
	}))

	require.NoError(t, txn.Replace(0, 4, ""))  // delete "aaa "
	require.NoError(t, txn.Replace(4, 0, "X")) // insert after "bbb "
	require.NoError(t, txn.Replace(9, 3, "D")) // replace "ddd"
	require.NoError(t, txn.Commit(doc))

	assert.Equal(t, "bbb Xccc D", doc.Text())
	require.Len(t, changes, 3)
	assert.Equal(t, 0, changes[0].NewLen)
	assert.Equal(t, 0, changes[1].OldLen)
	assert.Equal(t, 3, changes[2].OldLen)
	assert.Equal(t, 1, changes[2].NewLen)
}

// TestRandomReplaceRoundTrip checks that the committed fragment set always
// produces the same text as replaying every replace sequentially, and that
// fragments stay sorted and disjoint after every step.
func TestRandomReplaceRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	policies := []BoundaryPolicy{nil, PolicyFunc(func(b Boundary) (int, int) {
		return len(b.Before) % 3, len(b.After) % 2
	})}

	for iter := 0; iter < 2000; iter++ {
		original := randomText(rng, rng.IntN(30))
		doc, txn := newTxn(original, policies[iter%len(policies)])
		var ops []replaceOp

		steps := 1 + rng.IntN(10)
		for n := 0; n < steps; n++ {
			cur := apply(original, ops)
			op := randomOp(rng, cur)
			ops = append(ops, op)

			require.NoError(t, txn.Replace(op.offset, op.oldLen, op.text))
			require.Equal(t, apply(original, ops), txn.Text(), "ops %v", ops)
			requireDisjoint(t, txn.Fragments())
		}

		require.NoError(t, txn.Commit(doc))
		require.Equal(t, apply(original, ops), doc.Text(), "original %q ops %v", original, ops)
	}
}

func requireDisjoint(t *testing.T, frags []Fragment) {
	t.Helper()
	for k := 1; k < len(frags); k++ {
		require.Less(t, frags[k-1].OrigEnd, frags[k].OrigStart, "fragments %v", frags)
	}
}

func randomOp(rng *rand.Rand, text string) replaceOp {
	offset := rng.IntN(len(text) + 1)
	return replaceOp{
		offset: offset,
		oldLen: rng.IntN(len(text) - offset + 1),
		text:   randomText(rng, rng.IntN(4)),
	}
}

func randomText(rng *rand.Rand, n int) string {
	const alphabet = "ab \n<>"
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = alphabet[rng.IntN(len(alphabet))]
	}
	return string(buf)
}

func TestCommitIsAtomicAgainstConcurrentEdits(t *testing.T) {
	doc, txn := newTxn("0123456789", nil)
	require.NoError(t, txn.Replace(1, 1, "A"))
	require.NoError(t, txn.Replace(8, 1, "B"))
	require.Len(t, txn.Fragments(), 2)

	var once sync.Once
	done := make(chan error, 1)
	doc.AddListener(document.ListenerFunc(func(d *document.Document, _ document.Change) {
		// an editor racing the flush from the first fragment on
		once.Do(func() {
			go func() { done <- d.Insert(0, "EDITOR") }()
		})
	}))

	require.NoError(t, txn.Commit(doc))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("editor insert never finished")
	}
	assert.Equal(t, "EDITOR0A234567B9", doc.Text())
}
