package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bookcat/internal/book"
)

func TestFindDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, openStore(t))

	byISBN := book.NewEdition("Pride and Prejudice")
	byISBN.ISBN13 = "9780141439518"
	require.NoError(t, svc.SaveEdition(ctx, byISBN, SaveOptions{}))

	byKey := book.NewEdition("Pride & Prejudice")
	byKey.OpenLibraryKey = "OL7353617M"
	require.NoError(t, svc.SaveEdition(ctx, byKey, SaveOptions{}))

	unrelated := book.NewEdition("Emma")
	unrelated.ISBN13 = "9780141439587"
	require.NoError(t, svc.SaveEdition(ctx, unrelated, SaveOptions{}))

	candidate := book.NewEdition("Pride and Prejudice")
	candidate.OpenLibraryKey = "OL7353617M"
	candidate.ISBN10 = "0-14-143951-3"

	matches, err := svc.FindDuplicates(ctx, candidate)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, byKey.ID, matches[0].Record.Base().ID)
	assert.Equal(t, book.FieldOpenLibraryKey, matches[0].Field)
	assert.Equal(t, byISBN.ID, matches[1].Record.Base().ID)
	assert.Equal(t, book.FieldISBN10, matches[1].Field)
}

func TestFindDuplicates_ExcludesSelf(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, openStore(t))

	a := book.NewEdition("Persuasion")
	a.OCLCNumber = "123456"
	require.NoError(t, svc.SaveEdition(ctx, a, SaveOptions{}))
	b := book.NewEdition("Persuasion")
	b.OCLCNumber = "123456"
	b.ISBN13 = "9780141439686"
	require.NoError(t, svc.SaveEdition(ctx, b, SaveOptions{}))

	matches, err := svc.FindDuplicates(ctx, a)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, b.ID, matches[0].Record.Base().ID)
	assert.Equal(t, book.FieldOCLC, matches[0].Field)
}

func TestFindDuplicates_KindsDoNotMix(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, openStore(t))

	w := book.NewWork("Sense and Sensibility")
	w.Wikidata = "Q217523"
	require.NoError(t, svc.SaveWork(ctx, w, SaveOptions{}))

	candidate := book.NewEdition("Sense and Sensibility")
	candidate.Wikidata = "Q217523"
	matches, err := svc.FindDuplicates(ctx, candidate)
	require.NoError(t, err)
	assert.Empty(t, matches)

	author := &book.Author{Name: "Jane Austen"}
	author.Wikidata = "Q36322"
	require.NoError(t, svc.SaveAuthor(ctx, author, SaveOptions{}))
	incoming := &book.Author{Name: "Austen, Jane"}
	incoming.Wikidata = "Q36322"
	matches, err = svc.FindDuplicates(ctx, incoming)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, author.ID, matches[0].Record.Base().ID)
}
