package catalog

import (
	"context"
	"fmt"

	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/metrics"
	"github.com/roach88/bookcat/internal/storage"
)

// Match is a stored record sharing a deduplication value with a candidate.
type Match struct {
	Record book.Deduper
	// Field is the first deduplication field, in DedupFields order, that
	// matched.
	Field string
}

// FindDuplicates returns the stored records of the candidate's kind that
// share any non-empty deduplication value with it. The candidate itself is
// excluded when it has been saved. Each record appears once.
//
// Deciding whether to merge is left to the caller.
func (s *Service) FindDuplicates(ctx context.Context, candidate book.Deduper) ([]Match, error) {
	values := book.DedupValues(candidate)
	self := candidate.Base().ID

	var matches []Match
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		matches = matches[:0]
		seen := make(map[int64]bool)
		for _, fv := range values {
			found, err := tx.FindByField(ctx, candidate.Kind(), fv.Field, fv.Value)
			if err != nil {
				return err
			}
			for _, d := range found {
				id := d.Base().ID
				if id == self || seen[id] {
					continue
				}
				seen[id] = true
				matches = append(matches, Match{Record: d, Field: fv.Field})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	for _, m := range matches {
		metrics.DuplicatesFound.WithLabelValues(m.Field).Inc()
	}
	return matches, nil
}
