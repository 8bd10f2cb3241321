package book

import (
	"cmp"
	"slices"
)

// CompareEditions orders editions by rank descending, then by storage ID
// ascending so the oldest of equally ranked editions comes first.
func CompareEditions(a, b *Edition) int {
	if c := cmp.Compare(b.EditionRank, a.EditionRank); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortEditions sorts editions in place into display order.
func SortEditions(editions []*Edition) {
	slices.SortStableFunc(editions, CompareEditions)
}

// DefaultEdition returns the edition shown for a work, or nil when the work
// has no editions.
func DefaultEdition(editions []*Edition) *Edition {
	if len(editions) == 0 {
		return nil
	}
	return slices.MinFunc(editions, CompareEditions)
}

// EditionForAuthor returns the highest-ranked edition crediting authorID,
// or nil.
func EditionForAuthor(editions []*Edition, authorID int64) *Edition {
	var credited []*Edition
	for _, e := range editions {
		if e.HasAuthor(authorID) {
			credited = append(credited, e)
		}
	}
	return DefaultEdition(credited)
}
