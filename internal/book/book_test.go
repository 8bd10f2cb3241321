package book

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	w, err := New(KindWork, "Dune")
	require.NoError(t, err)
	assert.Equal(t, KindWork, w.Kind())
	assert.Equal(t, "Dune", w.Data().Title)

	e, err := New(KindEdition, "Dune")
	require.NoError(t, err)
	assert.Equal(t, KindEdition, e.Kind())

	for _, k := range []Kind{KindBook, KindAuthor, Kind("Pamphlet")} {
		_, err := New(k, "x")
		assert.ErrorIs(t, err, ErrAbstractBook, "kind %s", k)
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("edition")
	require.NoError(t, err)
	assert.Equal(t, KindEdition, k)

	_, err = ParseKind("magazine")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat("paperback")
	assert.True(t, ok)
	assert.Equal(t, FormatPaperback, f)
	assert.Equal(t, "Paperback", f.Label())

	f, ok = ParseFormat("Mass-market")
	assert.False(t, ok)
	assert.Equal(t, Format("Mass-market"), f)
	assert.Equal(t, "Mass-market", f.Label())

	assert.Equal(t, "Graphic novel", FormatGraphicNovel.Label())
}

func TestProvenance(t *testing.T) {
	t.Run("federated", func(t *testing.T) {
		e := NewEdition("Dune")
		e.RemoteID = "https://other.example/book/77"
		PrepareInsert(e)
		assert.Equal(t, "https://other.example/book/77", e.OriginID)
		assert.Empty(t, e.RemoteID)

		e.ID = 12
		require.NoError(t, Stamp(e, "books.example"))
		assert.Equal(t, "https://books.example/book/12", e.RemoteID)
		assert.Equal(t, "https://other.example/book/77", e.OriginID)
		assert.False(t, e.IsLocal())
	})

	t.Run("local", func(t *testing.T) {
		w := NewWork("Dune")
		PrepareInsert(w)
		w.ID = 3
		require.NoError(t, Stamp(w, "books.example"))
		assert.Equal(t, "https://books.example/book/3", w.RemoteID)
		assert.True(t, w.IsLocal())
	})

	t.Run("author", func(t *testing.T) {
		a := &Author{Name: "Frank Herbert"}
		a.ID = 9
		require.NoError(t, Stamp(a, "books.example"))
		assert.Equal(t, "https://books.example/author/9", a.RemoteID)
	})

	t.Run("unsaved", func(t *testing.T) {
		assert.ErrorIs(t, Stamp(NewWork("x"), "books.example"), ErrUnsaved)
	})

	t.Run("origin survives restamp", func(t *testing.T) {
		e := NewEdition("x")
		e.ID = 5
		e.OriginID = "https://other.example/book/1"
		require.NoError(t, Stamp(e, "books.example"))
		require.NoError(t, Stamp(e, "books.example"))
		assert.Equal(t, "https://other.example/book/1", e.OriginID)
	})

	t.Run("restamp keeps stored provenance", func(t *testing.T) {
		e := NewEdition("x")
		e.ID = 5
		e.OriginID = ""
		e.RemoteID = "https://third.example/book/2"
		stored := Provenance{OriginID: "https://other.example/book/1", RemoteID: "https://books.example/book/5"}
		require.NoError(t, Restamp(e, stored, "books.example"))
		assert.Equal(t, "https://other.example/book/1", e.OriginID)
		assert.Equal(t, "https://books.example/book/5", e.RemoteID)
	})

	t.Run("restamp of legacy record", func(t *testing.T) {
		a := &Author{Name: "x"}
		a.ID = 9
		a.OriginID = "https://third.example/author/2"
		require.NoError(t, Restamp(a, Provenance{}, "books.example"))
		assert.Equal(t, "https://books.example/author/9", a.OriginID)
		assert.Equal(t, "https://books.example/author/9", a.RemoteID)
	})
}

func TestExternalLinks(t *testing.T) {
	var ids Identifiers
	assert.Empty(t, ids.OpenLibraryLink())
	assert.Empty(t, ids.InventaireLink())
	assert.Empty(t, ids.ISFDBLink())

	ids = Identifiers{OpenLibraryKey: "OL7353617M", InventaireID: "isbn:9780441013593", ISFDB: "1159"}
	assert.Equal(t, "https://openlibrary.org/books/OL7353617M", ids.OpenLibraryLink())
	assert.Equal(t, "https://inventaire.io/entity/isbn:9780441013593", ids.InventaireLink())
	assert.Equal(t, "https://www.isfdb.org/cgi-bin/title.cgi?1159", ids.ISFDBLink())
}

func TestDiff(t *testing.T) {
	before := &Book{Title: "Dune", Authors: []int64{1, 2}}

	same := *before
	same.Authors = []int64{2, 1}
	assert.Empty(t, Diff(before, &same))

	after := *before
	after.Cover = "covers/dune.jpg"
	after.Authors = []int64{1}
	assert.Equal(t, []string{TrackedCover, TrackedAuthors}, Diff(before, &after))

	created := &Book{Title: "Dune", Subtitle: "Book One"}
	assert.Equal(t, []string{TrackedTitle, TrackedSubtitle}, Diff(nil, created))

	assert.Nil(t, Diff(before, nil))
}

func TestGuessSortTitle(t *testing.T) {
	tests := []struct {
		title     string
		languages []string
		want      string
	}{
		{"The Left Hand of Darkness", []string{"English"}, "left hand of darkness"},
		{"An Instance of the Fingerpost", []string{"English"}, "instance of the fingerpost"},
		{"A Wizard of Earthsea", []string{"English"}, "wizard of earthsea"},
		{"Anathem", []string{"English"}, "anathem"},
		{"La Regenta", []string{"Spanish"}, "regenta"},
		{"La Regenta", []string{"English"}, "la regenta"},
		{"The Hobbit", nil, "the hobbit"},
		{"Los Unos y las Otras", []string{"Galician", "Spanish"}, "unos y las otras"},
		{"ÉTÉ", []string{"French"}, "été"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, GuessSortTitle(tt.title, tt.languages, DefaultArticles))
		})
	}
}

func TestDisplay(t *testing.T) {
	published := time.Date(1965, 8, 1, 0, 0, 0, 0, time.UTC)
	e := NewEdition("Dune")
	e.PhysicalFormat = FormatHardcover
	e.Languages = []string{"English"}
	e.Published = &published
	e.Publishers = []string{"Chilton Books"}

	assert.Equal(t, "Frank Herbert", AuthorText([]string{"Frank Herbert"}))
	assert.Equal(t, "Hardcover, 1965, Chilton Books", e.Info("English"))
	assert.Equal(t, "Frank Herbert: Dune (Hardcover, 1965, Chilton Books)",
		AltText(e, []string{"Frank Herbert"}, "English"))

	e.Languages = []string{"French"}
	assert.Equal(t, "Hardcover, French language, 1965, Chilton Books", e.Info("English"))

	w := NewWork("Dune")
	assert.Equal(t, "", w.Info("English"))
	assert.Equal(t, "Dune", AltText(w, nil, "English"))
}
