package fixture

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/catalog"
	"github.com/roach88/bookcat/internal/store"
)

func newService(t *testing.T) *catalog.Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "fixture.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return catalog.New(st, catalog.Options{
		Domain: "books.example.org",
		Policy: book.Policy{DefaultLanguage: "English"},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	doc, err := ReadFile(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)
	res, err := Apply(ctx, svc, doc)
	require.NoError(t, err)

	require.Len(t, res.Authors, 2)
	require.Len(t, res.Works, 1)
	require.Len(t, res.Editions, 3)

	due, err := svc.GetAuthor(ctx, res.Authors["due"])
	require.NoError(t, err)
	assert.Equal(t, "https://elsewhere.example/author/12", due.OriginID)

	it, err := svc.GetBook(ctx, res.Editions["kindred-pb"])
	require.NoError(t, err)
	pb := it.(*book.Edition)
	assert.Equal(t, res.Works["kindred"], pb.ParentWork)
	assert.Equal(t, "9780807083697", pb.ISBN13)
	assert.Equal(t, "0807083690", pb.ISBN10)
	assert.Equal(t, book.FormatPaperback, pb.PhysicalFormat)
	assert.Equal(t, []int64{res.Authors["butler"]}, pb.Authors)
	require.NotNil(t, pb.Published)
	assert.Equal(t, time.Date(2004, 2, 1, 0, 0, 0, 0, time.UTC), *pb.Published)
	// cover 3, language 1, paperback 1, isbn13 1, isbn10 1, pages 1, format 1
	assert.Equal(t, 9, pb.EditionRank)

	def, err := svc.DefaultEdition(ctx, res.Works["kindred"])
	require.NoError(t, err)
	assert.Equal(t, pb.ID, def.ID)

	stray, err := svc.GetBook(ctx, res.Editions["stray"])
	require.NoError(t, err)
	assert.True(t, stray.(*book.Edition).IsOrphan())
}

func TestApply_UnknownKey(t *testing.T) {
	doc, err := Read(strings.NewReader(`
editions:
  - key: lost
    title: Lost
    work: nowhere
`))
	require.NoError(t, err)
	_, err = Apply(context.Background(), newService(t), doc)
	assert.ErrorIs(t, err, ErrUnknownKey)

	doc, err = Read(strings.NewReader(`
works:
  - title: Anonymous
    authors: [nobody]
`))
	require.NoError(t, err)
	_, err = Apply(context.Background(), newService(t), doc)
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestApply_DuplicateKey(t *testing.T) {
	doc, err := Read(strings.NewReader(`
authors:
  - key: a
    name: One
  - key: a
    name: Two
`))
	require.NoError(t, err)
	_, err = Apply(context.Background(), newService(t), doc)
	assert.ErrorContains(t, err, "duplicate fixture key")
}

func TestRead_RejectsUnknownFields(t *testing.T) {
	_, err := Read(strings.NewReader("editions:\n  - title: X\n    colour: red\n"))
	assert.Error(t, err)
}

func TestRead_BadDate(t *testing.T) {
	_, err := Read(strings.NewReader("works:\n  - title: X\n    published: yesterday\n"))
	assert.ErrorContains(t, err, "yesterday")
}

func TestRead_Empty(t *testing.T) {
	doc, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, doc.Authors)
}
