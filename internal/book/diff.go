package book

import "slices"

// Fields whose change invalidates a book's preview image.
const (
	TrackedTitle    = "title"
	TrackedSubtitle = "subtitle"
	TrackedCover    = "cover"
	TrackedAuthors  = "authors"
)

// Diff returns the tracked fields that differ between before and after.
// A nil before means the record is new; every non-empty tracked field counts.
func Diff(before, after *Book) []string {
	if after == nil {
		return nil
	}
	var prev Book
	if before != nil {
		prev = *before
	}
	var changed []string
	if prev.Title != after.Title {
		changed = append(changed, TrackedTitle)
	}
	if prev.Subtitle != after.Subtitle {
		changed = append(changed, TrackedSubtitle)
	}
	if prev.Cover != after.Cover {
		changed = append(changed, TrackedCover)
	}
	if !sameSet(prev.Authors, after.Authors) {
		changed = append(changed, TrackedAuthors)
	}
	return changed
}

func sameSet(a, b []int64) bool {
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(slices.Compact(x), slices.Compact(y))
}
