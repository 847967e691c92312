package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/treesync/internal/commit"
	"github.com/dshills/treesync/internal/dirty"
	"github.com/dshills/treesync/internal/document"
	"github.com/dshills/treesync/internal/tree"
	"github.com/dshills/treesync/internal/tree/linetree"
)

const waitFor = 2 * time.Second

func newSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s := New(append([]Option{WithPollInterval(time.Millisecond), WithStrict(true)}, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		assert.NoError(t, s.Shutdown(ctx))
	})
	return s
}

func fullParse(t *testing.T, text string) string {
	t.Helper()
	tr, err := linetree.New().Parse(context.Background(), document.Snapshot{Text: text})
	require.NoError(t, err)
	return tr.String()
}

func requireFresh(t *testing.T, s *Session, doc *document.Document) {
	t.Helper()
	tr, err := s.Tree(doc.ID())
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, fullParse(t, doc.Text()), tr.String())
	assert.Equal(t, doc.Len(), tr.Len())
}

func TestOpenParsesDocument(t *testing.T) {
	var (
		mu          sync.Mutex
		transitions [][2]commit.Stage
	)
	s := newSession(t, WithObserver(func(_ document.ID, from, to commit.Stage) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, [2]commit.Stage{from, to})
	}))

	doc, err := s.Open("a.txt", "one\n\ntwo\n")
	require.NoError(t, err)

	requireFresh(t, s, doc)
	stage, err := s.Stage(doc.ID())
	require.NoError(t, err)
	assert.Equal(t, commit.Committed, stage)
	assert.True(t, s.IsCommitted(doc.ID()))
	assert.Empty(t, s.Uncommitted())
	assert.Equal(t, []*document.Document{doc}, s.Documents())
	assert.EqualValues(t, 1, s.Stats().Committed)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][2]commit.Stage{
		{commit.Dirty, commit.AboutToBeSyncCommitted},
		{commit.AboutToBeSyncCommitted, commit.Committed},
	}, transitions)
}

func TestOpenErrors(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		factory ReparserFactory
		wantErr error
	}{
		{
			name:    "no reparser",
			factory: func(string) (tree.Reparser, error) { return nil, errBoom },
			wantErr: errBoom,
		},
		{
			name: "first parse fails",
			factory: func(string) (tree.Reparser, error) {
				return tree.ReparserFunc(func(context.Context, document.Snapshot, tree.Tree, dirty.Block) (*tree.Fragment, error) {
					return nil, errBoom
				}), nil
			},
			wantErr: commit.ErrInvariant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, WithReparserFactory(tt.factory))

			doc, err := s.Open("broken.txt", "text")
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, tt.wantErr)

			var opErr *OperationError
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, "open", opErr.Op)
			assert.Equal(t, "broken.txt", opErr.Doc)
			assert.Empty(t, s.Documents())
		})
	}
}

func TestTrackTwice(t *testing.T) {
	s := newSession(t)
	doc, err := s.Open("twice.txt", "x")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Track(doc), ErrDocumentAlreadyOpen)
	assert.Len(t, s.Documents(), 1)
}

func TestEditCommitsInBackground(t *testing.T) {
	s := newSession(t)
	s.Start()
	doc, err := s.Open("bg.txt", "a\n\nb\n")
	require.NoError(t, err)

	require.NoError(t, s.Edit(doc.ID(), 3, 0, "c\n\n"))
	require.NoError(t, s.Edit(doc.ID(), 0, 1, "A"))

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, s.WaitCommitted(ctx, doc.ID()))

	assert.Equal(t, "A\n\nc\n\nb\n", doc.Text())
	requireFresh(t, s, doc)
}

func TestCommitSync(t *testing.T) {
	s := newSession(t)
	doc, err := s.Open("sync.txt", "a\n\nb\n")
	require.NoError(t, err)

	require.NoError(t, s.Edit(doc.ID(), 5, 0, "\nc"))
	assert.False(t, s.IsCommitted(doc.ID()))
	assert.Equal(t, []document.ID{doc.ID()}, s.Uncommitted())
	stage, err := s.Stage(doc.ID())
	require.NoError(t, err)
	assert.Equal(t, commit.QueuedToCommit, stage)

	require.NoError(t, s.CommitSync(doc.ID()))
	assert.True(t, s.IsCommitted(doc.ID()))
	requireFresh(t, s, doc)
}

func TestCommitAll(t *testing.T) {
	s := newSession(t)
	a, err := s.Open("a.txt", "a\n")
	require.NoError(t, err)
	b, err := s.Open("b.txt", "b\n")
	require.NoError(t, err)
	c, err := s.Open("c.txt", "c\n")
	require.NoError(t, err)

	require.NoError(t, s.Edit(a.ID(), 0, 0, "\n\n"))
	require.NoError(t, s.Edit(c.ID(), 2, 0, "d"))
	assert.Equal(t, []document.ID{a.ID(), c.ID()}, s.Uncommitted())

	require.NoError(t, s.CommitAll())
	assert.Empty(t, s.Uncommitted())
	for _, doc := range []*document.Document{a, b, c} {
		assert.True(t, s.IsCommitted(doc.ID()))
		requireFresh(t, s, doc)
	}
}

func TestEditErrors(t *testing.T) {
	s := newSession(t)
	doc, err := s.Open("e.txt", "abc")
	require.NoError(t, err)
	ro, err := s.Open("ro.txt", "abc", document.WithReadOnly())
	require.NoError(t, err)

	tests := []struct {
		name    string
		id      document.ID
		offset  int
		oldLen  int
		wantErr error
	}{
		{"unknown document", document.NewID(), 0, 0, ErrDocumentNotFound},
		{"read-only", ro.ID(), 0, 1, document.ErrReadOnly},
		{"offset out of range", doc.ID(), 4, 0, document.ErrOffsetOutOfRange},
		{"range past end", doc.ID(), 1, 5, document.ErrRangeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Edit(tt.id, tt.offset, tt.oldLen, "x")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, s.Uncommitted())
}

func TestWaitCommitted(t *testing.T) {
	s := newSession(t)
	doc, err := s.Open("wait.txt", "abc")
	require.NoError(t, err)

	// already committed
	require.NoError(t, s.WaitCommitted(context.Background(), doc.ID()))

	// not started, so nothing commits
	require.NoError(t, s.Edit(doc.ID(), 0, 0, "x"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.WaitCommitted(ctx, doc.ID()), context.DeadlineExceeded)

	assert.ErrorIs(t, s.WaitCommitted(context.Background(), document.NewID()), ErrDocumentNotFound)

	done := make(chan error, 1)
	go func() {
		done <- s.WaitCommitted(context.Background(), doc.ID())
	}()
	s.Start()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("waiter not woken by background commit")
	}
	requireFresh(t, s, doc)
}

func TestWaitCommittedWokenByClose(t *testing.T) {
	s := newSession(t)
	doc, err := s.Open("close.txt", "abc")
	require.NoError(t, err)
	require.NoError(t, s.Edit(doc.ID(), 0, 0, "x"))

	done := make(chan error, 1)
	go func() {
		done <- s.WaitCommitted(context.Background(), doc.ID())
	}()
	require.NoError(t, s.Close(doc.ID()))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDocumentNotFound)
	case <-time.After(waitFor):
		t.Fatal("waiter not woken by close")
	}
}

func TestWaitCommittedWokenByShutdown(t *testing.T) {
	s := newSession(t)
	doc, err := s.Open("shutdown.txt", "abc")
	require.NoError(t, err)
	require.NoError(t, s.Edit(doc.ID(), 0, 0, "x"))

	done := make(chan error, 1)
	go func() {
		done <- s.WaitCommitted(context.Background(), doc.ID())
	}()
	require.NoError(t, s.Shutdown(context.Background()))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(waitFor):
		t.Fatal("waiter not woken by shutdown")
	}

	_, err = s.Open("late.txt", "x")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClose(t *testing.T) {
	s := newSession(t)
	doc, err := s.Open("closed.txt", "abc")
	require.NoError(t, err)
	other, err := s.Open("other.txt", "abc")
	require.NoError(t, err)

	require.NoError(t, s.Close(doc.ID()))
	_, err = s.Document(doc.ID())
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	_, err = s.Stage(doc.ID())
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.False(t, s.IsCommitted(doc.ID()))
	assert.Equal(t, []*document.Document{other}, s.Documents())

	// the document lives on without the session
	enqueued := s.Stats().Enqueued
	require.NoError(t, doc.Insert(0, "x"))
	assert.Equal(t, enqueued, s.Stats().Enqueued)
	assert.Empty(t, s.Uncommitted())

	assert.ErrorIs(t, s.Close(doc.ID()), ErrDocumentNotFound)
}

func TestWriteActionSuspendsBackgroundCommits(t *testing.T) {
	s := newSession(t)
	s.Start()
	doc, err := s.Open("write.txt", "abc\n")
	require.NoError(t, err)

	err = s.WriteAction(func(w *Writer) error {
		require.NoError(t, w.Edit(doc.ID(), 0, 0, "x"))
		time.Sleep(10 * time.Millisecond)
		assert.False(t, s.IsCommitted(doc.ID()))
		return w.CommitSync(doc.ID())
	})
	require.NoError(t, err)
	assert.True(t, s.IsCommitted(doc.ID()))
	requireFresh(t, s, doc)
}

func TestReadAction(t *testing.T) {
	s := newSession(t)
	errRead := errors.New("read")
	assert.ErrorIs(t, s.ReadAction(func() error { return errRead }), errRead)
	assert.NoError(t, s.ReadAction(func() error { return nil }))
}

func TestConcurrentEditing(t *testing.T) {
	s := newSession(t)
	s.Start()

	docs := make([]*document.Document, 4)
	for i := range docs {
		doc, err := s.Open("doc.txt", "start\n\nend\n")
		require.NoError(t, err)
		docs[i] = doc
	}

	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(i), 99))
			texts := []string{"x", "\n", "\n\n", "yz"}
			for n := 0; n < 200; n++ {
				offset := rng.IntN(doc.Len() + 1)
				oldLen := 0
				if rng.IntN(3) == 0 {
					oldLen = rng.IntN(doc.Len() - offset + 1)
				}
				assert.NoError(t, s.Edit(doc.ID(), offset, oldLen, texts[rng.IntN(len(texts))]))
			}
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	for _, doc := range docs {
		require.NoError(t, s.WaitCommitted(ctx, doc.ID()))
		requireFresh(t, s, doc)
	}
}
