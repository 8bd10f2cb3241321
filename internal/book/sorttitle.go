package book

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DefaultArticles lists leading articles by language name.
var DefaultArticles = map[string][]string{
	"English":    {"the", "a", "an"},
	"Spanish":    {"un", "una", "unos", "unas", "el", "la", "los", "las"},
	"Galician":   {"un", "unha", "uns", "unhas", "o", "a", "os", "as"},
	"Italian":    {"un", "uno", "una", "il", "lo", "la", "i", "gli", "le"},
	"Portuguese": {"um", "uma", "uns", "umas", "o", "a", "os", "as"},
	"French":     {"un", "une", "le", "la", "les"},
	"German":     {"der", "die", "das", "ein", "eine"},
}

// GuessSortTitle lowercases title and strips one leading article belonging
// to any of the book's languages.
func GuessSortTitle(title string, languages []string, articles map[string][]string) string {
	// Casers keep state; one per call.
	lower := cases.Lower(language.Und)
	t := lower.String(norm.NFC.String(strings.TrimSpace(title)))
	for _, lang := range languages {
		list := slices.Clone(articles[lang])
		slices.SortStableFunc(list, func(a, b string) int {
			return cmp.Compare(len(b), len(a))
		})
		for _, article := range list {
			prefix := lower.String(article) + " "
			if rest, ok := strings.CutPrefix(t, prefix); ok {
				return strings.TrimSpace(rest)
			}
		}
	}
	return t
}
