// Package storagetest holds the behavioral suite every storage backend must
// pass. Backends call Run from their own tests with a constructor for a
// fresh, empty store.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/link"
	"github.com/roach88/bookcat/internal/storage"
)

// Opener returns an empty store. It registers its own cleanup.
type Opener func(t *testing.T) storage.Store

// Run executes the suite against stores produced by open.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"AuthorRoundTrip", testAuthorRoundTrip},
		{"WorkRoundTrip", testWorkRoundTrip},
		{"EditionRoundTrip", testEditionRoundTrip},
		{"KindsShareIDSpace", testKindsShareIDSpace},
		{"NotFound", testNotFound},
		{"EditionsOfWorkOrder", testEditionsOfWorkOrder},
		{"Orphans", testOrphans},
		{"FindByField", testFindByField},
		{"BooksByAuthor", testBooksByAuthor},
		{"RemoteIDConflict", testRemoteIDConflict},
		{"Domains", testDomains},
		{"FileLinks", testFileLinks},
		{"Rollback", testRollback},
		{"ConcurrentTransactions", testConcurrentTransactions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

func inTx(t *testing.T, s storage.Store, fn func(tx storage.Tx) error) {
	t.Helper()
	require.NoError(t, s.RunInTx(context.Background(), fn))
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func testAuthorRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := &book.Author{Name: "Ursula K. Le Guin"}
	a.OriginID = "https://other.example/author/4"
	a.VIAF = "108299403"
	a.Wikidata = "Q181659"

	inTx(t, s, func(tx storage.Tx) error { return tx.InsertAuthor(ctx, a) })
	require.NotZero(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	a.Name = "Ursula Kroeber Le Guin"
	a.RemoteID = book.RemoteID("books.example", book.KindAuthor, a.ID)
	inTx(t, s, func(tx storage.Tx) error { return tx.UpdateAuthor(ctx, a) })

	var got *book.Author
	inTx(t, s, func(tx storage.Tx) (err error) {
		got, err = tx.GetAuthor(ctx, a.ID)
		return err
	})
	assert.Equal(t, "Ursula Kroeber Le Guin", got.Name)
	assert.Equal(t, a.Provenance, got.Provenance)
	assert.Equal(t, a.Identifiers, got.Identifiers)
}

func insertAuthors(t *testing.T, s storage.Store, names ...string) []int64 {
	t.Helper()
	var ids []int64
	inTx(t, s, func(tx storage.Tx) error {
		for _, n := range names {
			a := &book.Author{Name: n}
			if err := tx.InsertAuthor(context.Background(), a); err != nil {
				return err
			}
			ids = append(ids, a.ID)
		}
		return nil
	})
	return ids
}

func testWorkRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	authors := insertAuthors(t, s, "Le Guin")

	w := book.NewWork("The Dispossessed")
	w.Subtitle = "An Ambiguous Utopia"
	w.SortTitle = "dispossessed"
	w.Languages = []string{"English"}
	w.Subjects = []string{"Anarchism", "Science fiction"}
	w.SubjectPlaces = []string{"Anarres"}
	w.Series = "Hainish Cycle"
	w.SeriesNumber = "5"
	w.Authors = authors
	w.LCCN = "73018662"
	w.OpenLibraryKey = "OL59863W"
	w.FirstPublished = day(1974, time.May, 1)
	w.LastEditedBy = "editor"

	inTx(t, s, func(tx storage.Tx) error { return tx.InsertWork(ctx, w) })
	require.NotZero(t, w.ID)

	var got *book.Work
	inTx(t, s, func(tx storage.Tx) (err error) {
		got, err = tx.GetWork(ctx, w.ID)
		return err
	})
	assert.Equal(t, w.Title, got.Title)
	assert.Equal(t, w.Subtitle, got.Subtitle)
	assert.Equal(t, w.SortTitle, got.SortTitle)
	assert.Equal(t, w.Languages, got.Languages)
	assert.Equal(t, w.Subjects, got.Subjects)
	assert.Equal(t, w.SubjectPlaces, got.SubjectPlaces)
	assert.Equal(t, w.Series, got.Series)
	assert.Equal(t, w.SeriesNumber, got.SeriesNumber)
	assert.Equal(t, w.Authors, got.Authors)
	assert.Equal(t, w.LCCN, got.LCCN)
	assert.Equal(t, w.Identifiers, got.Identifiers)
	assert.Equal(t, "editor", got.LastEditedBy)
	require.NotNil(t, got.FirstPublished)
	assert.True(t, w.FirstPublished.Equal(*got.FirstPublished))
	assert.Nil(t, got.Published)

	got.Title = "The Dispossessed: An Ambiguous Utopia"
	got.Authors = nil
	inTx(t, s, func(tx storage.Tx) error { return tx.UpdateWork(ctx, got) })
	inTx(t, s, func(tx storage.Tx) (err error) {
		got, err = tx.GetWork(ctx, w.ID)
		return err
	})
	assert.Equal(t, "The Dispossessed: An Ambiguous Utopia", got.Title)
	assert.Empty(t, got.Authors)
}

func testEditionRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	authors := insertAuthors(t, s, "First", "Second")
	w := book.NewWork("Dune")
	inTx(t, s, func(tx storage.Tx) error { return tx.InsertWork(ctx, w) })

	e := book.NewEdition("Dune")
	e.ParentWork = w.ID
	e.ISBN10 = "0441013597"
	e.ISBN13 = "9780441013593"
	e.OCLCNumber = "50174843"
	e.Pages = 528
	e.PhysicalFormat = book.FormatPaperback
	e.PhysicalFormatDetail = "mass market"
	e.Publishers = []string{"Ace", "Penguin"}
	e.Cover = "covers/dune.jpg"
	e.Published = day(2005, time.August, 2)
	e.EditionRank = 9
	// Order is significant and survives storage.
	e.Authors = []int64{authors[1], authors[0]}

	inTx(t, s, func(tx storage.Tx) error { return tx.InsertEdition(ctx, e) })

	var got *book.Edition
	inTx(t, s, func(tx storage.Tx) (err error) {
		got, err = tx.GetEdition(ctx, e.ID)
		return err
	})
	assert.Equal(t, w.ID, got.ParentWork)
	assert.Equal(t, e.ISBN10, got.ISBN10)
	assert.Equal(t, e.ISBN13, got.ISBN13)
	assert.Equal(t, e.OCLCNumber, got.OCLCNumber)
	assert.Equal(t, 528, got.Pages)
	assert.Equal(t, book.FormatPaperback, got.PhysicalFormat)
	assert.Equal(t, "mass market", got.PhysicalFormatDetail)
	assert.Equal(t, e.Publishers, got.Publishers)
	assert.Equal(t, 9, got.EditionRank)
	assert.Equal(t, e.Authors, got.Authors)
	require.NotNil(t, got.Published)
	assert.True(t, e.Published.Equal(*got.Published))

	var locked *book.Edition
	inTx(t, s, func(tx storage.Tx) (err error) {
		locked, err = tx.LockEdition(ctx, e.ID)
		return err
	})
	assert.Equal(t, e.ID, locked.ID)

	got.EditionRank = 3
	got.ParentWork = 0
	inTx(t, s, func(tx storage.Tx) error { return tx.UpdateEdition(ctx, got) })
	inTx(t, s, func(tx storage.Tx) (err error) {
		got, err = tx.GetEdition(ctx, e.ID)
		return err
	})
	assert.Equal(t, 3, got.EditionRank)
	assert.True(t, got.IsOrphan())
}

func testKindsShareIDSpace(t *testing.T, s storage.Store) {
	ctx := context.Background()
	w := book.NewWork("W")
	e := book.NewEdition("E")
	inTx(t, s, func(tx storage.Tx) error {
		if err := tx.InsertWork(ctx, w); err != nil {
			return err
		}
		return tx.InsertEdition(ctx, e)
	})
	assert.NotEqual(t, w.ID, e.ID)

	inTx(t, s, func(tx storage.Tx) error {
		it, err := tx.GetBook(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, book.KindWork, it.Kind())

		it, err = tx.GetBook(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, book.KindEdition, it.Kind())

		_, err = tx.GetWork(ctx, e.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = tx.GetEdition(ctx, w.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	})
}

func testNotFound(t *testing.T, s storage.Store) {
	ctx := context.Background()
	inTx(t, s, func(tx storage.Tx) error {
		_, err := tx.GetAuthor(ctx, 404)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = tx.GetBook(ctx, 404)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = tx.LockEdition(ctx, 404)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = tx.GetDomain(ctx, 404)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		missing := book.NewWork("x")
		missing.ID = 404
		assert.ErrorIs(t, tx.UpdateWork(ctx, missing), storage.ErrNotFound)
		assert.ErrorIs(t, tx.SetParentWork(ctx, 404, 405), storage.ErrNotFound)
		return nil
	})
}

func testEditionsOfWorkOrder(t *testing.T, s storage.Store) {
	ctx := context.Background()
	w := book.NewWork("W")
	ranks := []int{2, 7, 2, 0}
	var ids []int64
	inTx(t, s, func(tx storage.Tx) error {
		if err := tx.InsertWork(ctx, w); err != nil {
			return err
		}
		for _, r := range ranks {
			e := book.NewEdition("E")
			e.ParentWork = w.ID
			e.EditionRank = r
			if err := tx.InsertEdition(ctx, e); err != nil {
				return err
			}
			ids = append(ids, e.ID)
		}
		return nil
	})

	var got []*book.Edition
	inTx(t, s, func(tx storage.Tx) (err error) {
		got, err = tx.EditionsOfWork(ctx, w.ID)
		return err
	})
	require.Len(t, got, 4)
	var order []int64
	for _, e := range got {
		order = append(order, e.ID)
	}
	assert.Equal(t, []int64{ids[1], ids[0], ids[2], ids[3]}, order)
}

func testOrphans(t *testing.T, s storage.Store) {
	ctx := context.Background()
	w := book.NewWork("W")
	var orphans []int64
	inTx(t, s, func(tx storage.Tx) error {
		if err := tx.InsertWork(ctx, w); err != nil {
			return err
		}
		for i := 0; i < 3; i++ {
			e := book.NewEdition("orphan")
			if err := tx.InsertEdition(ctx, e); err != nil {
				return err
			}
			orphans = append(orphans, e.ID)
		}
		owned := book.NewEdition("owned")
		owned.ParentWork = w.ID
		return tx.InsertEdition(ctx, owned)
	})

	inTx(t, s, func(tx storage.Tx) error {
		ids, err := tx.OrphanEditions(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, orphans[:2], ids)

		require.NoError(t, tx.SetParentWork(ctx, orphans[0], w.ID))
		ids, err = tx.OrphanEditions(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, orphans[1:], ids)

		e, err := tx.GetEdition(ctx, orphans[0])
		require.NoError(t, err)
		assert.Equal(t, w.ID, e.ParentWork)

		// A parent must be a work.
		assert.ErrorIs(t, tx.SetParentWork(ctx, orphans[1], orphans[2]), storage.ErrNotFound)
		return nil
	})
}

func testFindByField(t *testing.T, s storage.Store) {
	ctx := context.Background()
	e := book.NewEdition("Dune")
	e.ISBN13 = "9780441013593"
	e.GoodreadsKey = "234225"
	w := book.NewWork("Dune")
	w.GoodreadsKey = "234225"
	a := &book.Author{Name: "Frank Herbert"}
	a.Wikidata = "Q7934"
	inTx(t, s, func(tx storage.Tx) error {
		if err := tx.InsertEdition(ctx, e); err != nil {
			return err
		}
		if err := tx.InsertWork(ctx, w); err != nil {
			return err
		}
		return tx.InsertAuthor(ctx, a)
	})

	inTx(t, s, func(tx storage.Tx) error {
		found, err := tx.FindByField(ctx, book.KindEdition, book.FieldISBN13, "978-0-441-01359-3")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, e.ID, found[0].Base().ID)

		found, err = tx.FindByField(ctx, book.KindWork, book.FieldGoodreadsKey, "234225")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, book.KindWork, found[0].Kind())

		found, err = tx.FindByField(ctx, book.KindAuthor, book.FieldWikidata, "Q7934")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Frank Herbert", found[0].(*book.Author).Name)

		found, err = tx.FindByField(ctx, book.KindEdition, book.FieldOCLC, "")
		require.NoError(t, err)
		assert.Empty(t, found)

		_, err = tx.FindByField(ctx, book.KindWork, book.FieldISBN13, "9780441013593")
		assert.ErrorIs(t, err, storage.ErrUnknownField)
		_, err = tx.FindByField(ctx, book.KindEdition, "title; DROP TABLE books", "x")
		assert.ErrorIs(t, err, storage.ErrUnknownField)
		return nil
	})
}

func testBooksByAuthor(t *testing.T, s storage.Store) {
	ctx := context.Background()
	ids := insertAuthors(t, s, "A", "B")
	w := book.NewWork("W")
	w.Authors = []int64{ids[0]}
	e := book.NewEdition("E")
	e.Authors = []int64{ids[1], ids[0]}
	inTx(t, s, func(tx storage.Tx) error {
		if err := tx.InsertWork(ctx, w); err != nil {
			return err
		}
		return tx.InsertEdition(ctx, e)
	})

	inTx(t, s, func(tx storage.Tx) error {
		items, err := tx.BooksByAuthor(ctx, ids[0])
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, w.ID, items[0].Base().ID)
		assert.Equal(t, e.ID, items[1].Base().ID)

		items, err = tx.BooksByAuthor(ctx, ids[1])
		require.NoError(t, err)
		require.Len(t, items, 1)
		return nil
	})
}

func testRemoteIDConflict(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := book.NewWork("a")
	a.RemoteID = "https://books.example/book/1"
	inTx(t, s, func(tx storage.Tx) error { return tx.InsertWork(ctx, a) })

	err := s.RunInTx(ctx, func(tx storage.Tx) error {
		b := book.NewWork("b")
		b.RemoteID = "https://books.example/book/1"
		return tx.InsertWork(ctx, b)
	})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func testDomains(t *testing.T, s storage.Store) {
	ctx := context.Background()
	var first *link.Domain
	inTx(t, s, func(tx storage.Tx) error {
		d, created, err := tx.GetOrCreateDomain(ctx, "gutenberg.org")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, link.StatusPending, d.Status)
		assert.Equal(t, "gutenberg.org", d.Name)
		first = d

		again, created, err := tx.GetOrCreateDomain(ctx, "gutenberg.org")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, d.ID, again.ID)

		_, _, err = tx.GetOrCreateDomain(ctx, "archive.org")
		return err
	})

	first.Status = link.StatusApproved
	first.Name = "Project Gutenberg"
	first.ReportedBy = "reader"
	inTx(t, s, func(tx storage.Tx) error { return tx.UpdateDomain(ctx, first) })

	inTx(t, s, func(tx storage.Tx) error {
		got, err := tx.GetDomain(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, link.StatusApproved, got.Status)
		assert.Equal(t, "Project Gutenberg", got.Name)
		assert.Equal(t, "reader", got.ReportedBy)

		all, err := tx.ListDomains(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		pending, err := tx.ListDomains(ctx, link.StatusPending)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "archive.org", pending[0].Domain)
		return nil
	})
}

func testFileLinks(t *testing.T, s storage.Store) {
	ctx := context.Background()
	e := book.NewEdition("Pride and Prejudice")
	inTx(t, s, func(tx storage.Tx) error {
		if err := tx.InsertEdition(ctx, e); err != nil {
			return err
		}
		d, _, err := tx.GetOrCreateDomain(ctx, "gutenberg.org")
		if err != nil {
			return err
		}
		for _, ft := range []string{"epub", "pdf"} {
			l := &link.FileLink{
				Link:         link.Link{URL: "https://gutenberg.org/ebooks/1342." + ft, AddedBy: "reader", DomainID: d.ID},
				BookID:       e.ID,
				FileType:     ft,
				Availability: link.AvailabilityFree,
			}
			if err := tx.InsertFileLink(ctx, l); err != nil {
				return err
			}
			assert.NotZero(t, l.ID)
		}
		return nil
	})

	inTx(t, s, func(tx storage.Tx) error {
		links, err := tx.FileLinksOf(ctx, e.ID)
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, "epub", links[0].FileType)
		assert.Equal(t, "reader", links[0].AddedBy)
		assert.Equal(t, link.AvailabilityFree, links[1].Availability)
		assert.Equal(t, e.ID, links[1].BookID)
		return nil
	})
}

var errBoom = errors.New("boom")

func testRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	var id int64
	err := s.RunInTx(ctx, func(tx storage.Tx) error {
		w := book.NewWork("never")
		if err := tx.InsertWork(ctx, w); err != nil {
			return err
		}
		id = w.ID
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	require.NotZero(t, id)

	inTx(t, s, func(tx storage.Tx) error {
		_, err := tx.GetWork(ctx, id)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	})
}

func testConcurrentTransactions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	e := book.NewEdition("contended")
	inTx(t, s, func(tx storage.Tx) error { return tx.InsertEdition(ctx, e) })

	// Each transaction locks the edition and bumps its rank. With a working
	// lock no increment is lost.
	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.RunInTx(ctx, func(tx storage.Tx) error {
				cur, err := tx.LockEdition(ctx, e.ID)
				if err != nil {
					return err
				}
				cur.EditionRank++
				return tx.UpdateEdition(ctx, cur)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	inTx(t, s, func(tx storage.Tx) error {
		got, err := tx.GetEdition(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, n, got.EditionRank)
		return nil
	})
}
