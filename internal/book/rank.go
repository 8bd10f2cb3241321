package book

import (
	"slices"
	"strings"
)

// MaxRank caps the completeness score. The individual points add up to 11;
// scores above the cap tie and fall back to storage order.
const MaxRank = 9

// Rank scores how complete an edition's metadata is.
//
//	+3 cover present
//	+1 defaultLanguage listed in languages
//	+1 physical format is paperback or hardcover (any case)
//	+1 each for isbn_13, isbn_10, oclc_number, pages, physical_format, description
//
// Rank is pure; the result is always in [0, MaxRank].
func Rank(e *Edition, defaultLanguage string) int {
	rank := 0
	if e.Cover != "" {
		rank += 3
	}
	if defaultLanguage != "" && slices.Contains(e.Languages, defaultLanguage) {
		rank++
	}
	switch strings.ToLower(string(e.PhysicalFormat)) {
	case "paperback", "hardcover":
		rank++
	}
	for _, present := range []bool{
		e.ISBN13 != "",
		e.ISBN10 != "",
		e.OCLCNumber != "",
		e.Pages > 0,
		e.PhysicalFormat != "",
		e.Description != "",
	} {
		if present {
			rank++
		}
	}
	return min(rank, MaxRank)
}
