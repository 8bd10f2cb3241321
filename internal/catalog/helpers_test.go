package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/storage"
	"github.com/roach88/bookcat/internal/store"
	"github.com/roach88/bookcat/internal/tasks"
)

const testDomain = "books.example.org"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newService(t *testing.T, st storage.Store, mutate ...func(*Options)) *Service {
	t.Helper()
	opts := Options{
		Domain: testDomain,
		Policy: book.Policy{DefaultLanguage: "English"},
		Logger: discardLogger(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	return New(st, opts)
}

type recordedTask struct {
	kind   string
	bookID int64
	fields []string
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []recordedTask
}

func (q *fakeQueue) Enqueue(kind string, bookID int64, fields []string) (tasks.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, recordedTask{kind, bookID, fields})
	return tasks.Task{Kind: kind, BookID: bookID, Fields: fields}, true
}

func (q *fakeQueue) recorded() []recordedTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]recordedTask(nil), q.tasks...)
}

type broadcastCall struct {
	kind    book.Kind
	id      int64
	created bool
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
	err   error
}

func (b *fakeBroadcaster) Broadcast(_ context.Context, record book.Deduper, created bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{record.Kind(), record.Base().ID, created})
	return b.err
}

var errInjected = errors.New("injected failure")

// failingStore wraps a store so SetParentWork fails after the write it
// guards has already happened, and records the IDs of inserted works.
type failingStore struct {
	storage.Store

	mu      sync.Mutex
	workIDs []int64
}

func (f *failingStore) RunInTx(ctx context.Context, fn func(storage.Tx) error) error {
	return f.Store.RunInTx(ctx, func(tx storage.Tx) error {
		return fn(&failingTx{Tx: tx, owner: f})
	})
}

type failingTx struct {
	storage.Tx
	owner *failingStore
}

func (t *failingTx) InsertWork(ctx context.Context, w *book.Work) error {
	if err := t.Tx.InsertWork(ctx, w); err != nil {
		return err
	}
	t.owner.mu.Lock()
	t.owner.workIDs = append(t.owner.workIDs, w.ID)
	t.owner.mu.Unlock()
	return nil
}

func (t *failingTx) SetParentWork(context.Context, int64, int64) error {
	return errInjected
}

// saveOrphan stores an edition with no parent work, bypassing the service.
func saveOrphan(t *testing.T, st storage.Store, title string, authors ...int64) *book.Edition {
	t.Helper()
	e := book.NewEdition(title)
	e.Authors = authors
	require.NoError(t, st.RunInTx(context.Background(), func(tx storage.Tx) error {
		return tx.InsertEdition(context.Background(), e)
	}))
	return e
}

func getEdition(t *testing.T, st storage.Store, id int64) *book.Edition {
	t.Helper()
	var e *book.Edition
	require.NoError(t, st.RunInTx(context.Background(), func(tx storage.Tx) error {
		var err error
		e, err = tx.GetEdition(context.Background(), id)
		return err
	}))
	return e
}
