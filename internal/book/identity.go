package book

import (
	"slices"

	"github.com/roach88/bookcat/internal/isbn"
)

// Deduplication field names. They double as storage column names.
const (
	FieldOpenLibraryKey  = "openlibrary_key"
	FieldInventaireID    = "inventaire_id"
	FieldLibraryThingKey = "librarything_key"
	FieldGoodreadsKey    = "goodreads_key"
	FieldBnfID           = "bnf_id"
	FieldVIAF            = "viaf"
	FieldWikidata        = "wikidata"
	FieldASIN            = "asin"
	FieldAASIN           = "aasin"
	FieldISFDB           = "isfdb"

	FieldLCCN = "lccn"

	FieldISBN10 = "isbn_10"
	FieldISBN13 = "isbn_13"
	FieldOCLC   = "oclc_number"
)

var recordFields = []string{
	FieldOpenLibraryKey, FieldInventaireID, FieldLibraryThingKey, FieldGoodreadsKey,
	FieldBnfID, FieldVIAF, FieldWikidata, FieldASIN, FieldAASIN, FieldISFDB,
}

// FieldValue is one deduplication field and its value on a record.
type FieldValue struct {
	Field string
	Value string
}

// DedupFields lists the deduplication fields of kind in a fixed order.
// KindBook and unknown kinds have none.
func DedupFields(kind Kind) []string {
	switch kind {
	case KindAuthor:
		return slices.Clone(recordFields)
	case KindWork:
		return append(slices.Clone(recordFields), FieldLCCN)
	case KindEdition:
		return append(slices.Clone(recordFields), FieldISBN10, FieldISBN13, FieldOCLC)
	default:
		return nil
	}
}

// IsDedupField reports whether field is a deduplication field of kind.
func IsDedupField(kind Kind, field string) bool {
	return slices.Contains(DedupFields(kind), field)
}

// DedupValues returns every deduplication field of d with its current value,
// empty values included, in DedupFields order.
func DedupValues(d Deduper) []FieldValue {
	return d.dedupValues()
}

func (i Identifiers) values() []FieldValue {
	return []FieldValue{
		{FieldOpenLibraryKey, i.OpenLibraryKey},
		{FieldInventaireID, i.InventaireID},
		{FieldLibraryThingKey, i.LibraryThingKey},
		{FieldGoodreadsKey, i.GoodreadsKey},
		{FieldBnfID, i.BnfID},
		{FieldVIAF, i.VIAF},
		{FieldWikidata, i.Wikidata},
		{FieldASIN, i.ASIN},
		{FieldAASIN, i.AASIN},
		{FieldISFDB, i.ISFDB},
	}
}

func (a *Author) dedupValues() []FieldValue {
	return a.Identifiers.values()
}

func (w *Work) dedupValues() []FieldValue {
	return append(w.Identifiers.values(), FieldValue{FieldLCCN, w.LCCN})
}

func (e *Edition) dedupValues() []FieldValue {
	return append(e.Identifiers.values(),
		FieldValue{FieldISBN10, e.ISBN10},
		FieldValue{FieldISBN13, e.ISBN13},
		FieldValue{FieldOCLC, e.OCLCNumber},
	)
}

// MatchValue returns the form of value used for equality on field.
// ISBN fields compare normalized; everything else compares verbatim.
func MatchValue(field, value string) string {
	if field == FieldISBN10 || field == FieldISBN13 {
		return isbn.Normalize(value)
	}
	return value
}

// SameEntity reports whether a and b denote the same real-world entity and,
// if so, the first deduplication field that proved it.
//
// Records of different kinds never match. A field counts only when it is
// non-empty on both sides.
func SameEntity(a, b Deduper) (string, bool) {
	if a == nil || b == nil || a.Kind() != b.Kind() {
		return "", false
	}
	theirs := make(map[string]string)
	for _, fv := range b.dedupValues() {
		theirs[fv.Field] = MatchValue(fv.Field, fv.Value)
	}
	for _, fv := range a.dedupValues() {
		v := MatchValue(fv.Field, fv.Value)
		if v != "" && theirs[fv.Field] == v {
			return fv.Field, true
		}
	}
	return "", false
}
