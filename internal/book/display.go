package book

import (
	"strconv"
	"strings"
)

// AuthorText joins author names for display.
func AuthorText(names []string) string {
	return strings.Join(names, ", ")
}

// Info summarizes an edition: format, non-default language, year, publishers.
func (e *Edition) Info(defaultLanguage string) string {
	var items []string
	if e.PhysicalFormat != "" {
		items = append(items, e.PhysicalFormat.Label())
	}
	items = append(items, e.commonInfo(defaultLanguage)...)
	if len(e.Publishers) > 0 {
		items = append(items, strings.Join(e.Publishers, ", "))
	}
	return strings.Join(items, ", ")
}

// Info summarizes a work: non-default language and year.
func (w *Work) Info(defaultLanguage string) string {
	return strings.Join(w.commonInfo(defaultLanguage), ", ")
}

func (b *Book) commonInfo(defaultLanguage string) []string {
	var items []string
	if len(b.Languages) > 0 && b.Languages[0] != defaultLanguage {
		items = append(items, b.Languages[0]+" language")
	}
	if b.Published != nil {
		items = append(items, strconv.Itoa(b.Published.Year()))
	}
	return items
}

// AltText describes an item's cover image for screen readers.
func AltText(it Item, authorNames []string, defaultLanguage string) string {
	var sb strings.Builder
	if len(authorNames) > 0 {
		sb.WriteString(AuthorText(authorNames))
		sb.WriteString(": ")
	}
	sb.WriteString(it.Data().Title)
	if info := it.Info(defaultLanguage); info != "" {
		sb.WriteString(" (")
		sb.WriteString(info)
		sb.WriteString(")")
	}
	return sb.String()
}
