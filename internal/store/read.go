package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/storage"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// selectColumns prefixes and joins id, the write columns, and created_at,
// matching the scan order of scanBook and scanAuthor.
func selectColumns(prefix string, write []string) string {
	cols := make([]string, 0, len(write)+2)
	cols = append(cols, prefix+"id")
	for _, c := range write {
		cols = append(cols, prefix+c)
	}
	cols = append(cols, prefix+"created_at")
	return strings.Join(cols, ", ")
}

var (
	bookColumns   = selectColumns("", bookWriteColumns)
	authorColumns = selectColumns("", authorWriteColumns)
)

func scanBook(sc rowScanner) (book.Item, error) {
	var (
		b                           book.Book
		kind                        string
		languages, subjects, places string
		firstPub, published         sql.NullTime
		lccn, isbn10, isbn13, oclc  string
		format, formatDetail        string
		publishers                  string
		pages, rank                 int
		parent                      sql.NullInt64
	)
	err := sc.Scan(
		&b.ID, &kind, &b.OriginID, &b.RemoteID,
		&b.OpenLibraryKey, &b.InventaireID, &b.LibraryThingKey, &b.GoodreadsKey, &b.BnfID,
		&b.VIAF, &b.Wikidata, &b.ASIN, &b.AASIN, &b.ISFDB,
		&b.LastEditedBy, &b.Title, &b.SortTitle, &b.Subtitle, &b.Description, &languages,
		&b.Series, &b.SeriesNumber, &subjects, &places, &b.Cover,
		&firstPub, &published,
		&lccn, &isbn10, &isbn13, &oclc, &pages,
		&format, &formatDetail, &publishers,
		&parent, &rank, &b.UpdatedAt, &b.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	if b.Languages, err = unmarshalList(languages); err != nil {
		return nil, fmt.Errorf("book %d languages: %w", b.ID, err)
	}
	if b.Subjects, err = unmarshalList(subjects); err != nil {
		return nil, fmt.Errorf("book %d subjects: %w", b.ID, err)
	}
	if b.SubjectPlaces, err = unmarshalList(places); err != nil {
		return nil, fmt.Errorf("book %d subject places: %w", b.ID, err)
	}
	b.FirstPublished = timePtr(firstPub)
	b.Published = timePtr(published)

	switch book.Kind(kind) {
	case book.KindWork:
		return &book.Work{Book: b, LCCN: lccn}, nil
	case book.KindEdition:
		e := &book.Edition{
			Book:                 b,
			ISBN10:               isbn10,
			ISBN13:               isbn13,
			OCLCNumber:           oclc,
			Pages:                pages,
			PhysicalFormat:       book.Format(format),
			PhysicalFormatDetail: formatDetail,
			ParentWork:           parent.Int64,
			EditionRank:          rank,
		}
		if e.Publishers, err = unmarshalList(publishers); err != nil {
			return nil, fmt.Errorf("book %d publishers: %w", b.ID, err)
		}
		return e, nil
	}
	return nil, fmt.Errorf("book %d has unknown kind %q", b.ID, kind)
}

// queryBooks runs a books query and attaches author sets. Rows are fully
// drained before the author lookups run on the same connection.
func (t *sqlTx) queryBooks(ctx context.Context, query string, args ...any) ([]book.Item, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	var items []book.Item
	for rows.Next() {
		it, err := scanBook(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	rows.Close()

	for _, it := range items {
		if err := t.loadAuthors(ctx, it.Data()); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (t *sqlTx) loadAuthors(ctx context.Context, b *book.Book) error {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT author_id FROM book_authors
		WHERE book_id = ?
		ORDER BY position ASC
	`, b.ID)
	if err != nil {
		return fmt.Errorf("query authors of %d: %w", b.ID, err)
	}
	defer rows.Close()

	b.Authors = nil
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan author of %d: %w", b.ID, err)
		}
		b.Authors = append(b.Authors, id)
	}
	return rows.Err()
}

func (t *sqlTx) getBook(ctx context.Context, id int64, kind book.Kind) (book.Item, error) {
	query := "SELECT " + bookColumns + " FROM books WHERE id = ?"
	args := []any{id}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}
	items, err := t.queryBooks(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		if kind == "" {
			kind = "book"
		}
		return nil, fmt.Errorf("get %s %d: %w", kind, id, storage.ErrNotFound)
	}
	return items[0], nil
}

func (t *sqlTx) GetBook(ctx context.Context, id int64) (book.Item, error) {
	return t.getBook(ctx, id, "")
}

func (t *sqlTx) GetWork(ctx context.Context, id int64) (*book.Work, error) {
	it, err := t.getBook(ctx, id, book.KindWork)
	if err != nil {
		return nil, err
	}
	return it.(*book.Work), nil
}

func (t *sqlTx) GetEdition(ctx context.Context, id int64) (*book.Edition, error) {
	it, err := t.getBook(ctx, id, book.KindEdition)
	if err != nil {
		return nil, err
	}
	return it.(*book.Edition), nil
}

// LockEdition is a plain read: the single pooled connection already
// serializes transactions.
func (t *sqlTx) LockEdition(ctx context.Context, id int64) (*book.Edition, error) {
	return t.GetEdition(ctx, id)
}

func (t *sqlTx) EditionsOfWork(ctx context.Context, workID int64) ([]*book.Edition, error) {
	items, err := t.queryBooks(ctx, "SELECT "+bookColumns+`
		FROM books
		WHERE kind = 'Edition' AND parent_work_id = ?
		ORDER BY edition_rank DESC, id ASC
	`, workID)
	if err != nil {
		return nil, fmt.Errorf("editions of %d: %w", workID, err)
	}
	editions := make([]*book.Edition, 0, len(items))
	for _, it := range items {
		editions = append(editions, it.(*book.Edition))
	}
	return editions, nil
}

func (t *sqlTx) OrphanEditions(ctx context.Context, limit int) ([]int64, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id FROM books
		WHERE kind = 'Edition' AND parent_work_id IS NULL
		ORDER BY id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query orphans: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan orphan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orphans: %w", err)
	}
	return ids, nil
}

// FindByField interpolates field into SQL only after checking it against
// the deduplication field list, which doubles as the column whitelist.
func (t *sqlTx) FindByField(ctx context.Context, kind book.Kind, field, value string) ([]book.Deduper, error) {
	if !book.IsDedupField(kind, field) {
		return nil, fmt.Errorf("find %s by %q: %w", kind, field, storage.ErrUnknownField)
	}
	value = book.MatchValue(field, value)
	if value == "" {
		return nil, nil
	}

	var found []book.Deduper
	if kind == book.KindAuthor {
		authors, err := t.queryAuthors(ctx,
			"SELECT "+authorColumns+" FROM authors WHERE "+field+" = ? ORDER BY id ASC", value)
		if err != nil {
			return nil, fmt.Errorf("find author by %s: %w", field, err)
		}
		for _, a := range authors {
			found = append(found, a)
		}
		return found, nil
	}

	items, err := t.queryBooks(ctx,
		"SELECT "+bookColumns+" FROM books WHERE kind = ? AND "+field+" = ? ORDER BY id ASC",
		string(kind), value)
	if err != nil {
		return nil, fmt.Errorf("find %s by %s: %w", kind, field, err)
	}
	for _, it := range items {
		found = append(found, it)
	}
	return found, nil
}

func (t *sqlTx) BooksByAuthor(ctx context.Context, authorID int64) ([]book.Item, error) {
	items, err := t.queryBooks(ctx, "SELECT "+selectColumns("b.", bookWriteColumns)+`
		FROM books b
		JOIN book_authors ba ON ba.book_id = b.id
		WHERE ba.author_id = ?
		ORDER BY b.id ASC
	`, authorID)
	if err != nil {
		return nil, fmt.Errorf("books by author %d: %w", authorID, err)
	}
	return items, nil
}

func scanAuthor(sc rowScanner) (*book.Author, error) {
	a := &book.Author{}
	err := sc.Scan(
		&a.ID, &a.OriginID, &a.RemoteID,
		&a.OpenLibraryKey, &a.InventaireID, &a.LibraryThingKey, &a.GoodreadsKey, &a.BnfID,
		&a.VIAF, &a.Wikidata, &a.ASIN, &a.AASIN, &a.ISFDB,
		&a.LastEditedBy, &a.Name, &a.UpdatedAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

func (t *sqlTx) queryAuthors(ctx context.Context, query string, args ...any) ([]*book.Author, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query authors: %w", err)
	}
	defer rows.Close()

	var authors []*book.Author
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authors: %w", err)
	}
	return authors, nil
}

func (t *sqlTx) GetAuthor(ctx context.Context, id int64) (*book.Author, error) {
	row := t.tx.QueryRowContext(ctx, "SELECT "+authorColumns+" FROM authors WHERE id = ?", id)
	a, err := scanAuthor(row)
	if err != nil {
		return nil, fmt.Errorf("get author %d: %w", id, err)
	}
	return a, nil
}
