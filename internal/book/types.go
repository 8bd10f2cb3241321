package book

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrAbstractBook is returned when a caller asks for the shared catalog-item
// base instead of a Work or an Edition.
var ErrAbstractBook = errors.New("books must be created as a Work or an Edition")

// ErrUnsaved is returned when an operation needs a storage ID that has not
// been assigned yet.
var ErrUnsaved = errors.New("record has no storage id")

// Kind names a concrete record type.
type Kind string

const (
	// KindBook is the abstract catalog item. It cannot be instantiated.
	KindBook    Kind = "Book"
	KindWork    Kind = "Work"
	KindEdition Kind = "Edition"
	KindAuthor  Kind = "Author"
)

// ParseKind resolves a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{KindBook, KindWork, KindEdition, KindAuthor} {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown record kind %q", s)
}

// Provenance distinguishes where a record came from and where it lives now.
//
// RemoteID is the federation-wide address of the record. Once the record is
// persisted it is always this server's address and never changes again.
// OriginID is the address the record had before it was first persisted here:
// the sending server's address for federated records, this server's own
// address for locally authored ones.
type Provenance struct {
	OriginID string
	RemoteID string
}

// IsLocal reports whether the record was authored on this server.
func (p Provenance) IsLocal() bool {
	return p.OriginID != "" && p.OriginID == p.RemoteID
}

// Identifiers holds the external identifiers shared by works, editions and
// authors. Every field is a deduplication field; empty means null.
type Identifiers struct {
	OpenLibraryKey  string
	InventaireID    string
	LibraryThingKey string
	GoodreadsKey    string
	BnfID           string // Bibliothèque nationale de France
	VIAF            string
	Wikidata        string
	ASIN            string
	AASIN           string
	ISFDB           string
}

// Record is the base of every editable book-data record.
type Record struct {
	ID int64
	Provenance
	Identifiers

	// LastEditedBy is the local actor who last changed the record, if any.
	LastEditedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Book is the metadata shared by works and editions.
//
// Book on its own is not an Item and cannot be stored; embed it through
// Work or Edition.
type Book struct {
	Record

	Title         string
	SortTitle     string
	Subtitle      string
	Description   string
	Languages     []string
	Series        string
	SeriesNumber  string
	Subjects      []string
	SubjectPlaces []string

	// Authors is the ordered author set, as author storage IDs.
	Authors []int64

	Cover          string
	FirstPublished *time.Time
	Published      *time.Time
}

// HasAuthor reports whether id is in the author set.
func (b *Book) HasAuthor(id int64) bool {
	for _, a := range b.Authors {
		if a == id {
			return true
		}
	}
	return false
}

// Deduper is implemented by every record that takes part in identity matching.
type Deduper interface {
	Kind() Kind
	Base() *Record
	dedupValues() []FieldValue
}

// Item is a concrete catalog item: a *Work or an *Edition.
// The interface is sealed; no other package can add variants.
type Item interface {
	Deduper
	Data() *Book
	Info(defaultLanguage string) string
	sealed()
}

// Work is the abstract notion of a book. It owns zero or more editions.
type Work struct {
	Book

	// LCCN is the Library of Congress catalog control number.
	LCCN string
}

// NewWork returns a transient work.
func NewWork(title string) *Work {
	return &Work{Book: Book{Title: title}}
}

func (w *Work) Kind() Kind    { return KindWork }
func (w *Work) Base() *Record { return &w.Record }
func (w *Work) Data() *Book   { return &w.Book }
func (w *Work) sealed()       {}

// Edition is a concrete published form of a work.
type Edition struct {
	Book

	ISBN10               string
	ISBN13               string
	OCLCNumber           string
	Pages                int
	PhysicalFormat       Format
	PhysicalFormatDetail string
	Publishers           []string

	// ParentWork is the owning work's storage ID. Zero marks an orphan that
	// needs repair.
	ParentWork int64

	// EditionRank is derived by Prepare on every save.
	EditionRank int
}

// NewEdition returns a transient edition.
func NewEdition(title string) *Edition {
	return &Edition{Book: Book{Title: title}}
}

func (e *Edition) Kind() Kind    { return KindEdition }
func (e *Edition) Base() *Record { return &e.Record }
func (e *Edition) Data() *Book   { return &e.Book }
func (e *Edition) sealed()       {}

// IsOrphan reports whether the edition has lost its parent work.
func (e *Edition) IsOrphan() bool {
	return e.ParentWork == 0
}

// New constructs an empty item of the given kind.
// Only KindWork and KindEdition are accepted; anything else, including the
// abstract KindBook, fails with ErrAbstractBook.
func New(kind Kind, title string) (Item, error) {
	switch kind {
	case KindWork:
		return NewWork(title), nil
	case KindEdition:
		return NewEdition(title), nil
	default:
		return nil, fmt.Errorf("%w: got %q", ErrAbstractBook, kind)
	}
}

// Author is a person credited on works and editions.
type Author struct {
	Record
	Name string
}

func (a *Author) Kind() Kind    { return KindAuthor }
func (a *Author) Base() *Record { return &a.Record }

// Format is a schema.org BookFormatType value.
type Format string

const (
	FormatAudiobook    Format = "AudiobookFormat"
	FormatEBook        Format = "EBook"
	FormatGraphicNovel Format = "GraphicNovel"
	FormatHardcover    Format = "Hardcover"
	FormatPaperback    Format = "Paperback"
)

var formatLabels = map[Format]string{
	FormatAudiobook:    "Audiobook",
	FormatEBook:        "eBook",
	FormatGraphicNovel: "Graphic novel",
	FormatHardcover:    "Hardcover",
	FormatPaperback:    "Paperback",
}

// ParseFormat matches s against the known formats, ignoring case.
// Unknown values are returned unchanged with ok=false; federated data may
// carry formats this server does not know.
func ParseFormat(s string) (Format, bool) {
	for f := range formatLabels {
		if strings.EqualFold(s, string(f)) {
			return f, true
		}
	}
	return Format(s), false
}

// Label returns the human-readable name of the format.
func (f Format) Label() string {
	if l, ok := formatLabels[f]; ok {
		return l
	}
	return string(f)
}
