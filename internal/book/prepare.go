package book

import "github.com/roach88/bookcat/internal/isbn"

// Policy carries the server settings that shape derived edition fields.
type Policy struct {
	// DefaultLanguage earns an edition one rank point when listed.
	DefaultLanguage string

	// Articles maps a language name to the leading articles stripped when
	// guessing a sort title. Nil means DefaultArticles.
	Articles map[string][]string
}

// DeriveISBNs fills whichever ISBN form is missing and normalizes both.
//
// A 978-prefixed ISBN-13 yields an ISBN-10; an ISBN-10 yields an ISBN-13.
// Failed derivations leave the field empty.
func (e *Edition) DeriveISBNs() {
	if e.ISBN10 == "" && e.ISBN13 != "" {
		if v, ok := isbn.To10(e.ISBN13); ok {
			e.ISBN10 = v
		}
	}
	if e.ISBN13 == "" && e.ISBN10 != "" {
		if v, ok := isbn.To13(e.ISBN10); ok {
			e.ISBN13 = v
		}
	}
	e.ISBN10 = isbn.Normalize(e.ISBN10)
	e.ISBN13 = isbn.Normalize(e.ISBN13)
}

// Prepare applies the save-time policy: ISBN derivation, rank, sort title.
func (e *Edition) Prepare(p Policy) {
	e.DeriveISBNs()
	e.EditionRank = Rank(e, p.DefaultLanguage)
	if e.SortTitle == "" {
		e.SortTitle = GuessSortTitle(e.Title, e.Languages, p.articles())
	}
}

// Prepare fills a work's sort title when it has none.
func (w *Work) Prepare(p Policy) {
	if w.SortTitle == "" {
		w.SortTitle = GuessSortTitle(w.Title, w.Languages, p.articles())
	}
}

func (p Policy) articles() map[string][]string {
	if p.Articles == nil {
		return DefaultArticles
	}
	return p.Articles
}
