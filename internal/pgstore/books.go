package pgstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/storage"
)

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

var authorWriteColumns = []string{
	"origin_id", "remote_id",
	"openlibrary_key", "inventaire_id", "librarything_key", "goodreads_key", "bnf_id",
	"viaf", "wikidata", "asin", "aasin", "isfdb",
	"last_edited_by", "name", "updated_at",
}

// placeholders returns "$from, $from+1, ..." for n parameters.
func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ps, ", ")
}

// assignments returns "col = $from, ..." for an UPDATE.
func assignments(from int, cols []string) string {
	as := make([]string, len(cols))
	for i, c := range cols {
		as[i] = fmt.Sprintf("%s = $%d", c, from+i)
	}
	return strings.Join(as, ", ")
}

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

	insertBookSQL = fmt.Sprintf("INSERT INTO books (%s, created_at) VALUES (%s) RETURNING id",
		strings.Join(bookWriteColumns, ", "), placeholders(1, len(bookWriteColumns)+1))
	updateBookSQL = fmt.Sprintf("UPDATE books SET %s WHERE id = $%d AND kind = $%d",
		assignments(1, bookWriteColumns[1:]), len(bookWriteColumns), len(bookWriteColumns)+1)

	insertAuthorSQL = fmt.Sprintf("INSERT INTO authors (%s, created_at) VALUES (%s) RETURNING id",
		strings.Join(authorWriteColumns, ", "), placeholders(1, len(authorWriteColumns)+1))
	updateAuthorSQL = fmt.Sprintf("UPDATE authors SET %s WHERE id = $%d",
		assignments(1, authorWriteColumns), len(authorWriteColumns)+1)
)

func list(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func parentID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func bookValues(it book.Item, now time.Time) []any {
	b := it.Data()
	var lccn, isbn10, isbn13, oclc, format, formatDetail string
	var pages, rank int
	var parent *int64
	publishers := []string{}
	switch v := it.(type) {
	case *book.Work:
		lccn = v.LCCN
	case *book.Edition:
		isbn10, isbn13, oclc = v.ISBN10, v.ISBN13, v.OCLCNumber
		pages, rank = v.Pages, v.EditionRank
		format, formatDetail = string(v.PhysicalFormat), v.PhysicalFormatDetail
		publishers = list(v.Publishers)
		parent = parentID(v.ParentWork)
	}
	return []any{
		string(it.Kind()), b.OriginID, b.RemoteID,
		b.OpenLibraryKey, b.InventaireID, b.LibraryThingKey, b.GoodreadsKey, b.BnfID,
		b.VIAF, b.Wikidata, b.ASIN, b.AASIN, b.ISFDB,
		b.LastEditedBy, b.Title, b.SortTitle, b.Subtitle, b.Description, list(b.Languages),
		b.Series, b.SeriesNumber, list(b.Subjects), list(b.SubjectPlaces), b.Cover,
		utcPtr(b.FirstPublished), utcPtr(b.Published),
		lccn, isbn10, isbn13, oclc, pages,
		format, formatDetail, publishers,
		parent, rank, now,
	}
}

func scanBook(row pgx.Row) (book.Item, error) {
	var (
		b                          book.Book
		kind                       string
		lccn, isbn10, isbn13, oclc string
		format, formatDetail       string
		publishers                 []string
		pages, rank                int
		parent                     *int64
	)
	err := row.Scan(
		&b.ID, &kind, &b.OriginID, &b.RemoteID,
		&b.OpenLibraryKey, &b.InventaireID, &b.LibraryThingKey, &b.GoodreadsKey, &b.BnfID,
		&b.VIAF, &b.Wikidata, &b.ASIN, &b.AASIN, &b.ISFDB,
		&b.LastEditedBy, &b.Title, &b.SortTitle, &b.Subtitle, &b.Description, &b.Languages,
		&b.Series, &b.SeriesNumber, &b.Subjects, &b.SubjectPlaces, &b.Cover,
		&b.FirstPublished, &b.Published,
		&lccn, &isbn10, &isbn13, &oclc, &pages,
		&format, &formatDetail, &publishers,
		&parent, &rank, &b.UpdatedAt, &b.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	b.Languages = nilIfEmpty(b.Languages)
	b.Subjects = nilIfEmpty(b.Subjects)
	b.SubjectPlaces = nilIfEmpty(b.SubjectPlaces)
	b.FirstPublished = utcPtr(b.FirstPublished)
	b.Published = utcPtr(b.Published)
	b.CreatedAt, b.UpdatedAt = b.CreatedAt.UTC(), b.UpdatedAt.UTC()

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
			Publishers:           nilIfEmpty(publishers),
			EditionRank:          rank,
		}
		if parent != nil {
			e.ParentWork = *parent
		}
		return e, nil
	}
	return nil, fmt.Errorf("book %d has unknown kind %q", b.ID, kind)
}

func nilIfEmpty(v []string) []string {
	if len(v) == 0 {
		return nil
	}
	return v
}

// queryBooks runs a books query and attaches author sets in one extra query.
func (t *pgTx) queryBooks(ctx context.Context, query string, args ...any) ([]book.Item, error) {
	rows, err := t.tx.Query(ctx, query, args...)
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
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	if err := t.loadAuthors(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (t *pgTx) loadAuthors(ctx context.Context, items []book.Item) error {
	byID := make(map[int64]*book.Book, len(items))
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		b := it.Data()
		b.Authors = nil
		byID[b.ID] = b
		ids = append(ids, b.ID)
	}

	rows, err := t.tx.Query(ctx, `
		SELECT book_id, author_id FROM book_authors
		WHERE book_id = ANY($1)
		ORDER BY book_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("query book authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookID, authorID int64
		if err := rows.Scan(&bookID, &authorID); err != nil {
			return fmt.Errorf("scan book author: %w", err)
		}
		if b := byID[bookID]; b != nil {
			b.Authors = append(b.Authors, authorID)
		}
	}
	return rows.Err()
}

func (t *pgTx) writeAuthors(ctx context.Context, bookID int64, authors []int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM book_authors WHERE book_id = $1`, bookID); err != nil {
		return fmt.Errorf("clear authors of %d: %w", bookID, err)
	}
	for pos, authorID := range storage.UniqueAuthors(authors) {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO book_authors (book_id, author_id, position)
			VALUES ($1, $2, $3)
		`, bookID, authorID, pos)
		if err != nil {
			return fmt.Errorf("add author %d to %d: %w", authorID, bookID, mapError(err))
		}
	}
	return nil
}

func (t *pgTx) insertBook(ctx context.Context, it book.Item) error {
	args := append(bookValues(it, t.now), t.now)
	var id int64
	if err := t.tx.QueryRow(ctx, insertBookSQL, args...).Scan(&id); err != nil {
		return fmt.Errorf("insert %s: %w", it.Kind(), mapError(err))
	}
	r := it.Base()
	r.ID, r.CreatedAt, r.UpdatedAt = id, t.now, t.now
	return t.writeAuthors(ctx, id, it.Data().Authors)
}

func (t *pgTx) updateBook(ctx context.Context, it book.Item) error {
	r := it.Base()
	args := append(bookValues(it, t.now)[1:], r.ID, string(it.Kind()))
	tag, err := t.tx.Exec(ctx, updateBookSQL, args...)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", it.Kind(), r.ID, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s %d: %w", it.Kind(), r.ID, storage.ErrNotFound)
	}
	r.UpdatedAt = t.now
	return t.writeAuthors(ctx, r.ID, it.Data().Authors)
}

func (t *pgTx) InsertWork(ctx context.Context, w *book.Work) error       { return t.insertBook(ctx, w) }
func (t *pgTx) UpdateWork(ctx context.Context, w *book.Work) error       { return t.updateBook(ctx, w) }
func (t *pgTx) InsertEdition(ctx context.Context, e *book.Edition) error { return t.insertBook(ctx, e) }
func (t *pgTx) UpdateEdition(ctx context.Context, e *book.Edition) error { return t.updateBook(ctx, e) }

func (t *pgTx) getBook(ctx context.Context, id int64, kind book.Kind, suffix string) (book.Item, error) {
	query := "SELECT " + bookColumns + " FROM books WHERE id = $1"
	args := []any{id}
	if kind != "" {
		query += " AND kind = $2"
		args = append(args, string(kind))
	}
	items, err := t.queryBooks(ctx, query+suffix, args...)
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

func (t *pgTx) GetBook(ctx context.Context, id int64) (book.Item, error) {
	return t.getBook(ctx, id, "", "")
}

func (t *pgTx) GetWork(ctx context.Context, id int64) (*book.Work, error) {
	it, err := t.getBook(ctx, id, book.KindWork, "")
	if err != nil {
		return nil, err
	}
	return it.(*book.Work), nil
}

func (t *pgTx) GetEdition(ctx context.Context, id int64) (*book.Edition, error) {
	it, err := t.getBook(ctx, id, book.KindEdition, "")
	if err != nil {
		return nil, err
	}
	return it.(*book.Edition), nil
}

// LockEdition takes a row lock held until the transaction ends.
func (t *pgTx) LockEdition(ctx context.Context, id int64) (*book.Edition, error) {
	it, err := t.getBook(ctx, id, book.KindEdition, " FOR UPDATE")
	if err != nil {
		return nil, err
	}
	return it.(*book.Edition), nil
}

func (t *pgTx) EditionsOfWork(ctx context.Context, workID int64) ([]*book.Edition, error) {
	items, err := t.queryBooks(ctx, "SELECT "+bookColumns+`
		FROM books
		WHERE kind = 'Edition' AND parent_work_id = $1
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

func (t *pgTx) OrphanEditions(ctx context.Context, limit int) ([]int64, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id FROM books
		WHERE kind = 'Edition' AND parent_work_id IS NULL
		ORDER BY id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query orphans: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect orphans: %w", err)
	}
	return ids, nil
}

func (t *pgTx) SetParentWork(ctx context.Context, editionID, workID int64) error {
	var kind string
	err := t.tx.QueryRow(ctx, `SELECT kind FROM books WHERE id = $1`, workID).Scan(&kind)
	if err != nil {
		return fmt.Errorf("set parent of %d: work %d: %w", editionID, workID, mapError(err))
	}
	if kind != string(book.KindWork) {
		return fmt.Errorf("set parent of %d: %d is not a work: %w", editionID, workID, storage.ErrNotFound)
	}

	tag, err := t.tx.Exec(ctx, `
		UPDATE books SET parent_work_id = $1, updated_at = $2
		WHERE id = $3 AND kind = 'Edition'
	`, workID, t.now, editionID)
	if err != nil {
		return fmt.Errorf("set parent of %d: %w", editionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set parent of edition %d: %w", editionID, storage.ErrNotFound)
	}
	return nil
}

// FindByField interpolates field only after it passed the deduplication
// field whitelist.
func (t *pgTx) FindByField(ctx context.Context, kind book.Kind, field, value string) ([]book.Deduper, error) {
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
			"SELECT "+authorColumns+" FROM authors WHERE "+field+" = $1 ORDER BY id ASC", value)
		if err != nil {
			return nil, fmt.Errorf("find author by %s: %w", field, err)
		}
		for _, a := range authors {
			found = append(found, a)
		}
		return found, nil
	}

	items, err := t.queryBooks(ctx,
		"SELECT "+bookColumns+" FROM books WHERE kind = $1 AND "+field+" = $2 ORDER BY id ASC",
		string(kind), value)
	if err != nil {
		return nil, fmt.Errorf("find %s by %s: %w", kind, field, err)
	}
	for _, it := range items {
		found = append(found, it)
	}
	return found, nil
}

func (t *pgTx) BooksByAuthor(ctx context.Context, authorID int64) ([]book.Item, error) {
	items, err := t.queryBooks(ctx, "SELECT "+selectColumns("b.", bookWriteColumns)+`
		FROM books b
		JOIN book_authors ba ON ba.book_id = b.id
		WHERE ba.author_id = $1
		ORDER BY b.id ASC
	`, authorID)
	if err != nil {
		return nil, fmt.Errorf("books by author %d: %w", authorID, err)
	}
	return items, nil
}

func authorValues(a *book.Author, now time.Time) []any {
	return []any{
		a.OriginID, a.RemoteID,
		a.OpenLibraryKey, a.InventaireID, a.LibraryThingKey, a.GoodreadsKey, a.BnfID,
		a.VIAF, a.Wikidata, a.ASIN, a.AASIN, a.ISFDB,
		a.LastEditedBy, a.Name, now,
	}
}

func scanAuthor(row pgx.Row) (*book.Author, error) {
	a := &book.Author{}
	err := row.Scan(
		&a.ID, &a.OriginID, &a.RemoteID,
		&a.OpenLibraryKey, &a.InventaireID, &a.LibraryThingKey, &a.GoodreadsKey, &a.BnfID,
		&a.VIAF, &a.Wikidata, &a.ASIN, &a.AASIN, &a.ISFDB,
		&a.LastEditedBy, &a.Name, &a.UpdatedAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	a.CreatedAt, a.UpdatedAt = a.CreatedAt.UTC(), a.UpdatedAt.UTC()
	return a, nil
}

func (t *pgTx) queryAuthors(ctx context.Context, query string, args ...any) ([]*book.Author, error) {
	rows, err := t.tx.Query(ctx, query, args...)
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

func (t *pgTx) InsertAuthor(ctx context.Context, a *book.Author) error {
	var id int64
	args := append(authorValues(a, t.now), t.now)
	if err := t.tx.QueryRow(ctx, insertAuthorSQL, args...).Scan(&id); err != nil {
		return fmt.Errorf("insert author: %w", mapError(err))
	}
	a.ID, a.CreatedAt, a.UpdatedAt = id, t.now, t.now
	return nil
}

func (t *pgTx) UpdateAuthor(ctx context.Context, a *book.Author) error {
	tag, err := t.tx.Exec(ctx, updateAuthorSQL, append(authorValues(a, t.now), a.ID)...)
	if err != nil {
		return fmt.Errorf("update author %d: %w", a.ID, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update author %d: %w", a.ID, storage.ErrNotFound)
	}
	a.UpdatedAt = t.now
	return nil
}

func (t *pgTx) GetAuthor(ctx context.Context, id int64) (*book.Author, error) {
	row := t.tx.QueryRow(ctx, "SELECT "+authorColumns+" FROM authors WHERE id = $1", id)
	a, err := scanAuthor(row)
	if err != nil {
		return nil, fmt.Errorf("get author %d: %w", id, err)
	}
	return a, nil
}
