package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/metrics"
	"github.com/roach88/bookcat/internal/storage"
)

// saved describes one committed book write.
type saved struct {
	item    book.Item
	created bool
	changed []string
	authors []int64 // author IDs before and after the write
}

// SaveEdition creates or updates an edition. On error e is restored to
// its state before the call.
//
// ISBN derivation, rank and sort title are recomputed inside the
// transaction. A new edition gets its local remote ID before commit.
func (s *Service) SaveEdition(ctx context.Context, e *book.Edition, opts SaveOptions) error {
	orig := *e
	var res saved
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		res, err = s.saveEdition(ctx, tx, e)
		return err
	})
	if err != nil {
		*e = orig
		return fmt.Errorf("save edition: %w", err)
	}
	s.committed(ctx, []saved{res}, opts)
	return nil
}

// SaveWork creates or updates a work, then re-saves every edition of the
// work in the same transaction so their derived fields stay current.
func (s *Service) SaveWork(ctx context.Context, w *book.Work, opts SaveOptions) error {
	orig := *w
	var results []saved
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		results = results[:0]
		res, err := s.saveWork(ctx, tx, w)
		if err != nil {
			return err
		}
		results = append(results, res)
		if res.created {
			return nil
		}

		editions, err := tx.EditionsOfWork(ctx, w.ID)
		if err != nil {
			return err
		}
		for _, e := range editions {
			er, err := s.saveEdition(ctx, tx, e)
			if err != nil {
				return fmt.Errorf("re-save edition %d: %w", e.ID, err)
			}
			results = append(results, er)
		}
		return nil
	})
	if err != nil {
		*w = orig
		return fmt.Errorf("save work: %w", err)
	}

	// Only the work itself federates; its editions ride along.
	s.committed(ctx, results[:1], opts)
	s.committed(ctx, results[1:], SaveOptions{})
	return nil
}

// SaveAuthor creates or updates an author.
func (s *Service) SaveAuthor(ctx context.Context, a *book.Author, opts SaveOptions) error {
	orig := *a
	created := a.ID == 0
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		if !created {
			prev, err := tx.GetAuthor(ctx, a.ID)
			if err != nil {
				return err
			}
			if err := book.Restamp(a, prev.Provenance, s.domain); err != nil {
				return err
			}
			return tx.UpdateAuthor(ctx, a)
		}
		book.PrepareInsert(a)
		if err := tx.InsertAuthor(ctx, a); err != nil {
			return err
		}
		if err := book.Stamp(a, s.domain); err != nil {
			return err
		}
		return tx.UpdateAuthor(ctx, a)
	})
	if err != nil {
		*a = orig
		return fmt.Errorf("save author: %w", err)
	}
	s.invalidateAuthors(a.ID)
	if opts.Broadcast {
		s.broadcast(ctx, a, created)
	}
	return nil
}

func (s *Service) saveEdition(ctx context.Context, tx storage.Tx, e *book.Edition) (saved, error) {
	var before *book.Book
	if e.ID != 0 {
		prev, err := tx.GetEdition(ctx, e.ID)
		if err != nil {
			return saved{}, err
		}
		before = &prev.Book
	}

	e.Authors = storage.UniqueAuthors(e.Authors)
	e.Prepare(s.policy)

	if err := s.write(ctx, tx, e, before,
		func() error { return tx.InsertEdition(ctx, e) },
		func() error { return tx.UpdateEdition(ctx, e) },
	); err != nil {
		return saved{}, err
	}
	return newSaved(e, before), nil
}

func (s *Service) saveWork(ctx context.Context, tx storage.Tx, w *book.Work) (saved, error) {
	var before *book.Book
	if w.ID != 0 {
		prev, err := tx.GetWork(ctx, w.ID)
		if err != nil {
			return saved{}, err
		}
		before = &prev.Book
	}

	w.Authors = storage.UniqueAuthors(w.Authors)
	w.Prepare(s.policy)

	if err := s.write(ctx, tx, w, before,
		func() error { return tx.InsertWork(ctx, w) },
		func() error { return tx.UpdateWork(ctx, w) },
	); err != nil {
		return saved{}, err
	}
	return newSaved(w, before), nil
}

// write persists a book. New records are inserted, stamped with their local
// address and written again so the address is stored with them. Stored
// records (before != nil) keep their stored provenance.
func (s *Service) write(ctx context.Context, tx storage.Tx, it book.Item, before *book.Book, insert, update func() error) error {
	if before != nil {
		if err := book.Restamp(it, before.Provenance, s.domain); err != nil {
			return err
		}
		return update()
	}
	book.PrepareInsert(it)
	if err := insert(); err != nil {
		return err
	}
	if err := book.Stamp(it, s.domain); err != nil {
		return err
	}
	return update()
}

func newSaved(it book.Item, before *book.Book) saved {
	res := saved{
		item:    it,
		created: before == nil,
		changed: book.Diff(before, it.Data()),
		authors: slices.Clone(it.Data().Authors),
	}
	if before != nil {
		res.authors = append(res.authors, before.Authors...)
	}
	return res
}

// committed runs the post-commit side effects of a batch of saves.
func (s *Service) committed(ctx context.Context, results []saved, opts SaveOptions) {
	for _, res := range results {
		s.invalidateAuthors(res.authors...)

		switch it := res.item.(type) {
		case *book.Edition:
			s.enqueuePreview(it.ID, res.changed)
			metrics.EditionsSaved.Inc()
			metrics.EditionRank.Observe(float64(it.EditionRank))
		case *book.Work:
			metrics.WorksSaved.Inc()
		}

		s.logger.Debug("book saved",
			slog.String("kind", string(res.item.Kind())),
			slog.Int64("id", res.item.Base().ID),
			slog.Bool("created", res.created),
			slog.Any("changed", res.changed),
		)
		if opts.Broadcast {
			s.broadcast(ctx, res.item, res.created)
		}
	}
}
