// Package storage defines the persistence ports of the catalog.
//
// Every read and write happens inside Store.RunInTx. The function either
// commits as a whole or, when it returns an error, leaves no trace.
// Two backends implement the ports: internal/store (SQLite) and
// internal/pgstore (PostgreSQL).
package storage

import (
	"context"
	"errors"

	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/link"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("record already exists")

	// ErrUnknownField is returned by FindByField for a field that is not a
	// deduplication field of the requested kind.
	ErrUnknownField = errors.New("not a deduplication field")
)

// Store opens transactions against a backend.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the set of operations available inside a transaction.
//
// Insert methods assign ID, CreatedAt and UpdatedAt on the passed record.
// Update methods overwrite every stored column and refresh UpdatedAt.
type Tx interface {
	InsertAuthor(ctx context.Context, a *book.Author) error
	UpdateAuthor(ctx context.Context, a *book.Author) error
	GetAuthor(ctx context.Context, id int64) (*book.Author, error)

	InsertWork(ctx context.Context, w *book.Work) error
	UpdateWork(ctx context.Context, w *book.Work) error
	GetWork(ctx context.Context, id int64) (*book.Work, error)

	InsertEdition(ctx context.Context, e *book.Edition) error
	UpdateEdition(ctx context.Context, e *book.Edition) error
	GetEdition(ctx context.Context, id int64) (*book.Edition, error)

	// LockEdition reads an edition and holds it against concurrent writers
	// until the transaction ends.
	LockEdition(ctx context.Context, id int64) (*book.Edition, error)

	// GetBook loads a work or an edition; both share one ID space.
	GetBook(ctx context.Context, id int64) (book.Item, error)

	// EditionsOfWork returns a work's editions by rank descending, then ID.
	EditionsOfWork(ctx context.Context, workID int64) ([]*book.Edition, error)

	// OrphanEditions returns up to limit IDs of editions without a parent
	// work, oldest first.
	OrphanEditions(ctx context.Context, limit int) ([]int64, error)

	SetParentWork(ctx context.Context, editionID, workID int64) error

	// FindByField returns stored records of kind whose deduplication field
	// equals value. ISBN values are normalized before comparison. An empty
	// value matches nothing.
	FindByField(ctx context.Context, kind book.Kind, field, value string) ([]book.Deduper, error)

	// BooksByAuthor returns the works and editions crediting an author.
	BooksByAuthor(ctx context.Context, authorID int64) ([]book.Item, error)

	// GetOrCreateDomain resolves a hostname to its domain, creating a
	// pending one on first use. The bool reports creation.
	GetOrCreateDomain(ctx context.Context, host string) (*link.Domain, bool, error)
	GetDomain(ctx context.Context, id int64) (*link.Domain, error)
	UpdateDomain(ctx context.Context, d *link.Domain) error

	// ListDomains returns domains in ID order; an empty status lists all.
	ListDomains(ctx context.Context, status link.Status) ([]*link.Domain, error)

	InsertFileLink(ctx context.Context, l *link.FileLink) error
	FileLinksOf(ctx context.Context, bookID int64) ([]*link.FileLink, error)
}

// UniqueAuthors drops repeated author IDs, keeping first positions.
func UniqueAuthors(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
