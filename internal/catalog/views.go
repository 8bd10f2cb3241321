package catalog

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/metrics"
	"github.com/roach88/bookcat/internal/storage"
)

// GetBook loads a work or an edition.
func (s *Service) GetBook(ctx context.Context, id int64) (book.Item, error) {
	var it book.Item
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		it, err = tx.GetBook(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

// GetAuthor loads an author.
func (s *Service) GetAuthor(ctx context.Context, id int64) (*book.Author, error) {
	var a *book.Author
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		a, err = tx.GetAuthor(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Editions returns a work's editions in display order.
func (s *Service) Editions(ctx context.Context, workID int64) (*book.Work, []*book.Edition, error) {
	var (
		w        *book.Work
		editions []*book.Edition
	)
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		if w, err = tx.GetWork(ctx, workID); err != nil {
			return err
		}
		editions, err = tx.EditionsOfWork(ctx, workID)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("editions of work %d: %w", workID, err)
	}
	book.SortEditions(editions)
	return w, editions, nil
}

// DefaultEdition returns the edition shown for a work, or nil when it has
// none.
func (s *Service) DefaultEdition(ctx context.Context, workID int64) (*book.Edition, error) {
	_, editions, err := s.Editions(ctx, workID)
	if err != nil {
		return nil, err
	}
	return book.DefaultEdition(editions), nil
}

// EditionForAuthor returns the best edition of a work crediting authorID,
// or nil.
func (s *Service) EditionForAuthor(ctx context.Context, workID, authorID int64) (*book.Edition, error) {
	_, editions, err := s.Editions(ctx, workID)
	if err != nil {
		return nil, err
	}
	return book.EditionForAuthor(editions, authorID), nil
}

// EditionCollection renders one page of a work's editions collection.
func (s *Service) EditionCollection(ctx context.Context, workID int64, page, pageLength int) (book.Collection, error) {
	w, editions, err := s.Editions(ctx, workID)
	if err != nil {
		return book.Collection{}, err
	}
	return book.NewEditionCollection(w.RemoteID, editions, page, pageLength)
}

// BooksByAuthor returns the works and editions crediting an author. Results
// are cached per author and dropped whenever a save touches that author.
func (s *Service) BooksByAuthor(ctx context.Context, authorID int64) ([]book.Item, error) {
	if items, ok := s.authorBooks.Get(authorID); ok {
		metrics.AuthorCacheHits.Inc()
		return slices.Clone(items), nil
	}
	metrics.AuthorCacheMisses.Inc()

	var items []book.Item
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		items, err = tx.BooksByAuthor(ctx, authorID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("books by author %d: %w", authorID, err)
	}
	s.authorBooks.Add(authorID, items)
	return slices.Clone(items), nil
}
