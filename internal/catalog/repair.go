package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/metrics"
	"github.com/roach88/bookcat/internal/storage"
)

// RepairResult reports what Repair did to one edition.
type RepairResult struct {
	EditionID int64 `json:"edition_id"`
	// Result is one of metrics.RepairCreated or metrics.RepairSkipped.
	Result string `json:"result"`
	// WorkID is the edition's parent after the repair.
	WorkID int64 `json:"work_id"`
}

// Repair gives an orphan edition a parent work built from its own title
// and authors. Editions that already have a parent are left alone.
//
// The check and the write share one transaction with the edition locked,
// so concurrent repairs of one edition create exactly one work. The new
// work is never broadcast.
func (s *Service) Repair(ctx context.Context, editionID int64) (RepairResult, error) {
	res := RepairResult{EditionID: editionID}
	var authors []int64

	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		e, err := tx.LockEdition(ctx, editionID)
		if err != nil {
			return err
		}
		if !e.IsOrphan() {
			res.Result = metrics.RepairSkipped
			res.WorkID = e.ParentWork
			return nil
		}

		w := book.NewWork(e.Title)
		w.Authors = slices.Clone(e.Authors)
		w.Prepare(s.policy)
		book.PrepareInsert(w)
		if err := tx.InsertWork(ctx, w); err != nil {
			return fmt.Errorf("create work: %w", err)
		}
		if err := book.Stamp(w, s.domain); err != nil {
			return err
		}
		if err := tx.UpdateWork(ctx, w); err != nil {
			return fmt.Errorf("stamp work: %w", err)
		}
		if err := tx.SetParentWork(ctx, e.ID, w.ID); err != nil {
			return err
		}

		res.Result = metrics.RepairCreated
		res.WorkID = w.ID
		authors = w.Authors
		return nil
	})
	if err != nil {
		metrics.Repairs.WithLabelValues(metrics.RepairFailed).Inc()
		return RepairResult{EditionID: editionID}, fmt.Errorf("repair edition %d: %w", editionID, err)
	}

	metrics.Repairs.WithLabelValues(res.Result).Inc()
	s.invalidateAuthors(authors...)
	if res.Result == metrics.RepairCreated {
		s.logger.Info("edition repaired",
			slog.Int64("edition_id", editionID),
			slog.Int64("work_id", res.WorkID),
		)
	}
	return res, nil
}

// RepairOrphans repairs up to limit orphan editions, oldest first. It keeps
// going past individual failures and returns them joined.
func (s *Service) RepairOrphans(ctx context.Context, limit int) ([]RepairResult, error) {
	var ids []int64
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		ids, err = tx.OrphanEditions(ctx, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}

	var (
		results []RepairResult
		errs    []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.Repair(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// RunSweeper repairs orphans in batches every interval until ctx is done.
// It returns nil on cancellation.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration, batch int) error {
	if interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			results, err := s.RepairOrphans(ctx, batch)
			if err != nil && ctx.Err() == nil {
				s.logger.Error("orphan sweep failed", slog.Any("error", err))
			}
			if len(results) > 0 {
				s.logger.Info("orphan sweep", slog.Int("repaired", len(results)))
			}
		}
	}
}
