package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/storage"
)

// bookWriteColumns are the books columns written on insert and update, in
// the order bookValues returns them. kind is written on insert only.
var bookWriteColumns = []string{
	"kind", "origin_id", "remote_id",
	"openlibrary_key", "inventaire_id", "librarything_key", "goodreads_key", "bnf_id",
	"viaf", "wikidata", "asin", "aasin", "isfdb",
	"last_edited_by", "title", "sort_title", "subtitle", "description", "languages",
	"series", "series_number", "subjects", "subject_places", "cover",
	"first_published_date", "published_date",
	"lccn", "isbn_10", "isbn_13", "oclc_number", "pages",
	"physical_format", "physical_format_detail", "publishers",
	"parent_work_id", "edition_rank", "updated_at",
}

var (
	insertBookSQL = fmt.Sprintf(
		"INSERT INTO books (%s, created_at) VALUES (%s?)",
		strings.Join(bookWriteColumns, ", "),
		strings.Repeat("?, ", len(bookWriteColumns)),
	)
	updateBookSQL = fmt.Sprintf(
		"UPDATE books SET %s = ? WHERE id = ? AND kind = ?",
		strings.Join(bookWriteColumns[1:], " = ?, "),
	)
)

// bookValues flattens a work or edition into bookWriteColumns order.
func bookValues(it book.Item, now any) ([]any, error) {
	b := it.Data()
	languages, err := marshalList(b.Languages)
	if err != nil {
		return nil, err
	}
	subjects, err := marshalList(b.Subjects)
	if err != nil {
		return nil, err
	}
	places, err := marshalList(b.SubjectPlaces)
	if err != nil {
		return nil, err
	}

	var lccn, isbn10, isbn13, oclc, format, formatDetail string
	var pages, rank int
	publishers, parent := "[]", nullID(0)
	switch v := it.(type) {
	case *book.Work:
		lccn = v.LCCN
	case *book.Edition:
		isbn10, isbn13, oclc = v.ISBN10, v.ISBN13, v.OCLCNumber
		pages, rank = v.Pages, v.EditionRank
		format, formatDetail = string(v.PhysicalFormat), v.PhysicalFormatDetail
		if publishers, err = marshalList(v.Publishers); err != nil {
			return nil, err
		}
		parent = nullID(v.ParentWork)
	}

	return []any{
		string(it.Kind()), b.OriginID, b.RemoteID,
		b.OpenLibraryKey, b.InventaireID, b.LibraryThingKey, b.GoodreadsKey, b.BnfID,
		b.VIAF, b.Wikidata, b.ASIN, b.AASIN, b.ISFDB,
		b.LastEditedBy, b.Title, b.SortTitle, b.Subtitle, b.Description, languages,
		b.Series, b.SeriesNumber, subjects, places, b.Cover,
		nullTime(b.FirstPublished), nullTime(b.Published),
		lccn, isbn10, isbn13, oclc, pages,
		format, formatDetail, publishers,
		parent, rank, now,
	}, nil
}

func (t *sqlTx) insertBook(ctx context.Context, it book.Item) error {
	values, err := bookValues(it, t.now)
	if err != nil {
		return fmt.Errorf("insert %s: %w", it.Kind(), err)
	}
	res, err := t.tx.ExecContext(ctx, insertBookSQL, append(values, t.now)...)
	if err != nil {
		return fmt.Errorf("insert %s: %w", it.Kind(), mapError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert %s: last insert id: %w", it.Kind(), err)
	}

	r := it.Base()
	r.ID, r.CreatedAt, r.UpdatedAt = id, t.now, t.now
	return t.writeAuthors(ctx, id, it.Data().Authors)
}

func (t *sqlTx) updateBook(ctx context.Context, it book.Item) error {
	values, err := bookValues(it, t.now)
	if err != nil {
		return fmt.Errorf("update %s: %w", it.Kind(), err)
	}
	r := it.Base()
	args := append(values[1:], r.ID, string(it.Kind()))
	res, err := t.tx.ExecContext(ctx, updateBookSQL, args...)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", it.Kind(), r.ID, mapError(err))
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update %s %d: %w", it.Kind(), r.ID, err)
	} else if n == 0 {
		return fmt.Errorf("update %s %d: %w", it.Kind(), r.ID, storage.ErrNotFound)
	}

	r.UpdatedAt = t.now
	return t.writeAuthors(ctx, r.ID, it.Data().Authors)
}

// writeAuthors replaces a book's author set, keeping list order.
func (t *sqlTx) writeAuthors(ctx context.Context, bookID int64, authors []int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM book_authors WHERE book_id = ?`, bookID); err != nil {
		return fmt.Errorf("clear authors of %d: %w", bookID, err)
	}
	for pos, authorID := range storage.UniqueAuthors(authors) {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO book_authors (book_id, author_id, position)
			VALUES (?, ?, ?)
		`, bookID, authorID, pos)
		if err != nil {
			return fmt.Errorf("add author %d to %d: %w", authorID, bookID, mapError(err))
		}
	}
	return nil
}

func (t *sqlTx) InsertWork(ctx context.Context, w *book.Work) error {
	return t.insertBook(ctx, w)
}

func (t *sqlTx) UpdateWork(ctx context.Context, w *book.Work) error {
	return t.updateBook(ctx, w)
}

func (t *sqlTx) InsertEdition(ctx context.Context, e *book.Edition) error {
	return t.insertBook(ctx, e)
}

func (t *sqlTx) UpdateEdition(ctx context.Context, e *book.Edition) error {
	return t.updateBook(ctx, e)
}

// SetParentWork attaches an edition to a work. The target must be a work.
func (t *sqlTx) SetParentWork(ctx context.Context, editionID, workID int64) error {
	var kind string
	err := t.tx.QueryRowContext(ctx, `SELECT kind FROM books WHERE id = ?`, workID).Scan(&kind)
	if err != nil {
		return fmt.Errorf("set parent of %d: work %d: %w", editionID, workID, mapError(err))
	}
	if kind != string(book.KindWork) {
		return fmt.Errorf("set parent of %d: %d is not a work: %w", editionID, workID, storage.ErrNotFound)
	}

	res, err := t.tx.ExecContext(ctx, `
		UPDATE books SET parent_work_id = ?, updated_at = ?
		WHERE id = ? AND kind = 'Edition'
	`, workID, t.now, editionID)
	if err != nil {
		return fmt.Errorf("set parent of %d: %w", editionID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("set parent of %d: %w", editionID, err)
	} else if n == 0 {
		return fmt.Errorf("set parent of edition %d: %w", editionID, storage.ErrNotFound)
	}
	return nil
}

var authorWriteColumns = []string{
	"origin_id", "remote_id",
	"openlibrary_key", "inventaire_id", "librarything_key", "goodreads_key", "bnf_id",
	"viaf", "wikidata", "asin", "aasin", "isfdb",
	"last_edited_by", "name", "updated_at",
}

var (
	insertAuthorSQL = fmt.Sprintf(
		"INSERT INTO authors (%s, created_at) VALUES (%s?)",
		strings.Join(authorWriteColumns, ", "),
		strings.Repeat("?, ", len(authorWriteColumns)),
	)
	updateAuthorSQL = fmt.Sprintf(
		"UPDATE authors SET %s = ? WHERE id = ?",
		strings.Join(authorWriteColumns, " = ?, "),
	)
)

func authorValues(a *book.Author, now any) []any {
	return []any{
		a.OriginID, a.RemoteID,
		a.OpenLibraryKey, a.InventaireID, a.LibraryThingKey, a.GoodreadsKey, a.BnfID,
		a.VIAF, a.Wikidata, a.ASIN, a.AASIN, a.ISFDB,
		a.LastEditedBy, a.Name, now,
	}
}

func (t *sqlTx) InsertAuthor(ctx context.Context, a *book.Author) error {
	res, err := t.tx.ExecContext(ctx, insertAuthorSQL, append(authorValues(a, t.now), t.now)...)
	if err != nil {
		return fmt.Errorf("insert author: %w", mapError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert author: last insert id: %w", err)
	}
	a.ID, a.CreatedAt, a.UpdatedAt = id, t.now, t.now
	return nil
}

func (t *sqlTx) UpdateAuthor(ctx context.Context, a *book.Author) error {
	res, err := t.tx.ExecContext(ctx, updateAuthorSQL, append(authorValues(a, t.now), a.ID)...)
	if err != nil {
		return fmt.Errorf("update author %d: %w", a.ID, mapError(err))
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update author %d: %w", a.ID, err)
	} else if n == 0 {
		return fmt.Errorf("update author %d: %w", a.ID, storage.ErrNotFound)
	}
	a.UpdatedAt = t.now
	return nil
}
