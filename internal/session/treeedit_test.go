package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/treesync/internal/commit"
	"github.com/dshills/treesync/internal/document"
	"github.com/dshills/treesync/internal/policy"
	"github.com/dshills/treesync/internal/transaction"
)

func TestTreeEdit(t *testing.T) {
	s := newSession(t)
	doc, err := s.Open("main.go", "func main() {}\n")
	require.NoError(t, err)

	err = s.TreeEdit(doc.ID(), func(te *TreeEdit) error {
		require.NoError(t, te.Replace(0, 15, "func  main() {}\n"))
		pending := te.Pending()
		require.Len(t, pending, 1)
		assert.Equal(t, 5, pending[0].OrigStart)
		assert.Equal(t, " ", pending[0].Text)
		assert.Equal(t, "func main() {}\n", doc.Text(), "buffered until close")
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "func  main() {}\n", doc.Text())
	// the text moved ahead of the tree and is queued like any edit
	assert.False(t, s.IsCommitted(doc.ID()))
	stage, err := s.Stage(doc.ID())
	require.NoError(t, err)
	assert.Equal(t, commit.QueuedToCommit, stage)

	require.NoError(t, s.CommitSync(doc.ID()))
	requireFresh(t, s, doc)
}

func TestBeginTreeEditRefusesUncommitted(t *testing.T) {
	s := newSession(t)
	doc, err := s.Open("dirty.txt", "abc")
	require.NoError(t, err)
	require.NoError(t, s.Edit(doc.ID(), 0, 0, "x"))

	_, err = s.BeginTreeEdit(doc.ID())
	assert.ErrorIs(t, err, ErrNotCommitted)

	require.NoError(t, s.CommitSync(doc.ID()))
	te, err := s.BeginTreeEdit(doc.ID())
	require.NoError(t, err)
	require.NoError(t, te.Close())

	_, err = s.BeginTreeEdit(document.NewID())
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestTreeEditReadOnlyDocument(t *testing.T) {
	s := newSession(t)
	doc, err := s.Open("ro.txt", "abc", document.WithReadOnly())
	require.NoError(t, err)

	err = s.TreeEdit(doc.ID(), func(te *TreeEdit) error {
		return te.Replace(1, 1, "B")
	})
	require.NoError(t, err)

	assert.Equal(t, "aBc", doc.Text())
	assert.True(t, doc.ReadOnly())
	assert.ErrorIs(t, s.Edit(doc.ID(), 0, 0, "x"), document.ErrReadOnly)
}

func TestNestedTreeEdit(t *testing.T) {
	s := newSession(t)
	doc, err := s.Open("nested.txt", "0123456789")
	require.NoError(t, err)

	outer, err := s.BeginTreeEdit(doc.ID())
	require.NoError(t, err)
	inner, err := s.BeginTreeEdit(doc.ID())
	require.NoError(t, err)

	require.NoError(t, inner.Replace(8, 1, "EIGHT"))
	require.NoError(t, inner.Close())
	assert.Equal(t, "0123456789", doc.Text())

	require.NoError(t, outer.Replace(1, 1, "one"))
	require.NoError(t, outer.Close())
	assert.Equal(t, "0one234567EIGHT9", doc.Text())

	// idempotent
	require.NoError(t, outer.Close())
	assert.Equal(t, "0one234567EIGHT9", doc.Text())
}

func TestTreeEditStale(t *testing.T) {
	s := newSession(t)
	doc, err := s.Open("stale.txt", "abc")
	require.NoError(t, err)

	te, err := s.BeginTreeEdit(doc.ID())
	require.NoError(t, err)
	require.NoError(t, te.Replace(0, 1, "A"))
	require.NoError(t, s.Edit(doc.ID(), 3, 0, "d"))

	assert.ErrorIs(t, te.Close(), transaction.ErrStaleTransaction)
	assert.Equal(t, "abcd", doc.Text())
}

func TestTreeEditWithPolicy(t *testing.T) {
	s := newSession(t, WithPolicy(policy.Markup{}))
	doc, err := s.Open("page.html", "<a<b>")
	require.NoError(t, err)

	err = s.TreeEdit(doc.ID(), func(te *TreeEdit) error {
		if err := te.Replace(1, 1, "><"); err != nil {
			return err
		}
		pending := te.Pending()
		require.Len(t, pending, 1)
		assert.Equal(t, 0, pending[0].OrigStart)
		assert.Equal(t, "<><", pending[0].Text)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "<><<b>", doc.Text())

	require.NoError(t, s.CommitSync(doc.ID()))
	requireFresh(t, s, doc)
}
