// Package fixture loads catalog seed data from YAML.
//
// Records refer to each other by symbolic keys; Apply saves authors, then
// works, then editions and resolves the keys to the assigned storage IDs.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/catalog"
)

// ErrUnknownKey is returned when a record references a key that is not
// defined earlier in the document.
var ErrUnknownKey = errors.New("unknown fixture key")

// Document is a fixture file.
type Document struct {
	Authors  []Author  `yaml:"authors"`
	Works    []Work    `yaml:"works"`
	Editions []Edition `yaml:"editions"`
}

// Identifiers mirrors book.Identifiers.
type Identifiers struct {
	OpenLibraryKey  string `yaml:"openlibrary_key"`
	InventaireID    string `yaml:"inventaire_id"`
	LibraryThingKey string `yaml:"librarything_key"`
	GoodreadsKey    string `yaml:"goodreads_key"`
	BnfID           string `yaml:"bnf_id"`
	VIAF            string `yaml:"viaf"`
	Wikidata        string `yaml:"wikidata"`
	ASIN            string `yaml:"asin"`
	AASIN           string `yaml:"aasin"`
	ISFDB           string `yaml:"isfdb"`
}

type Author struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	RemoteID    string `yaml:"remote_id"`
	Identifiers `yaml:",inline"`
}

// Book holds the fields shared by works and editions.
type Book struct {
	Key            string   `yaml:"key"`
	Title          string   `yaml:"title"`
	SortTitle      string   `yaml:"sort_title"`
	Subtitle       string   `yaml:"subtitle"`
	Description    string   `yaml:"description"`
	Languages      []string `yaml:"languages"`
	Series         string   `yaml:"series"`
	SeriesNumber   string   `yaml:"series_number"`
	Subjects       []string `yaml:"subjects"`
	SubjectPlaces  []string `yaml:"subject_places"`
	Authors        []string `yaml:"authors"`
	Cover          string   `yaml:"cover"`
	FirstPublished Date     `yaml:"first_published"`
	Published      Date     `yaml:"published"`
	RemoteID       string   `yaml:"remote_id"`
	Identifiers    `yaml:",inline"`
}

type Work struct {
	Book `yaml:",inline"`
	LCCN string `yaml:"lccn"`
}

type Edition struct {
	Book                 `yaml:",inline"`
	Work                 string   `yaml:"work"`
	ISBN10               string   `yaml:"isbn_10"`
	ISBN13               string   `yaml:"isbn_13"`
	OCLCNumber           string   `yaml:"oclc_number"`
	Pages                int      `yaml:"pages"`
	PhysicalFormat       string   `yaml:"physical_format"`
	PhysicalFormatDetail string   `yaml:"physical_format_detail"`
	Publishers           []string `yaml:"publishers"`
}

// Date is a calendar date written as YYYY-MM-DD.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("line %d: date %q: %w", node.Line, s, err)
	}
	d.Time = t
	return nil
}

func (d Date) ptr() *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// Result maps fixture keys to storage IDs.
type Result struct {
	Authors  map[string]int64 `json:"authors"`
	Works    map[string]int64 `json:"works"`
	Editions map[string]int64 `json:"editions"`
}

// Saver is the subset of catalog.Service used to apply fixtures.
type Saver interface {
	SaveAuthor(ctx context.Context, a *book.Author, opts catalog.SaveOptions) error
	SaveWork(ctx context.Context, w *book.Work, opts catalog.SaveOptions) error
	SaveEdition(ctx context.Context, e *book.Edition, opts catalog.SaveOptions) error
}

// Read decodes a fixture document. Unknown keys are rejected.
func Read(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &doc, nil
}

// ReadFile decodes the fixture document at path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Apply saves every record of doc. Each record is its own save; a failure
// stops the load and leaves earlier records in place. Fixtures are never
// broadcast.
func Apply(ctx context.Context, s Saver, doc *Document) (*Result, error) {
	res := &Result{
		Authors:  make(map[string]int64),
		Works:    make(map[string]int64),
		Editions: make(map[string]int64),
	}

	for i, fa := range doc.Authors {
		a := &book.Author{Name: fa.Name}
		a.RemoteID = fa.RemoteID
		a.Identifiers = fa.Identifiers.convert()
		if err := s.SaveAuthor(ctx, a, catalog.SaveOptions{}); err != nil {
			return res, fmt.Errorf("author %s: %w", label(fa.Key, i), err)
		}
		if err := define(res.Authors, fa.Key, a.ID); err != nil {
			return res, err
		}
	}

	for i, fw := range doc.Works {
		w := book.NewWork(fw.Title)
		if err := fw.Book.fill(&w.Book, res.Authors); err != nil {
			return res, fmt.Errorf("work %s: %w", label(fw.Key, i), err)
		}
		w.LCCN = fw.LCCN
		if err := s.SaveWork(ctx, w, catalog.SaveOptions{}); err != nil {
			return res, fmt.Errorf("work %s: %w", label(fw.Key, i), err)
		}
		if err := define(res.Works, fw.Key, w.ID); err != nil {
			return res, err
		}
	}

	for i, fe := range doc.Editions {
		e := book.NewEdition(fe.Title)
		if err := fe.Book.fill(&e.Book, res.Authors); err != nil {
			return res, fmt.Errorf("edition %s: %w", label(fe.Key, i), err)
		}
		if fe.Work != "" {
			id, ok := res.Works[fe.Work]
			if !ok {
				return res, fmt.Errorf("edition %s: work %q: %w", label(fe.Key, i), fe.Work, ErrUnknownKey)
			}
			e.ParentWork = id
		}
		e.ISBN10 = fe.ISBN10
		e.ISBN13 = fe.ISBN13
		e.OCLCNumber = fe.OCLCNumber
		e.Pages = fe.Pages
		e.PhysicalFormat, _ = book.ParseFormat(fe.PhysicalFormat)
		e.PhysicalFormatDetail = fe.PhysicalFormatDetail
		e.Publishers = fe.Publishers
		if err := s.SaveEdition(ctx, e, catalog.SaveOptions{}); err != nil {
			return res, fmt.Errorf("edition %s: %w", label(fe.Key, i), err)
		}
		if err := define(res.Editions, fe.Key, e.ID); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (fb Book) fill(b *book.Book, authors map[string]int64) error {
	b.SortTitle = fb.SortTitle
	b.Subtitle = fb.Subtitle
	b.Description = fb.Description
	b.Languages = fb.Languages
	b.Series = fb.Series
	b.SeriesNumber = fb.SeriesNumber
	b.Subjects = fb.Subjects
	b.SubjectPlaces = fb.SubjectPlaces
	b.Cover = fb.Cover
	b.FirstPublished = fb.FirstPublished.ptr()
	b.Published = fb.Published.ptr()
	b.RemoteID = fb.RemoteID
	b.Identifiers = fb.Identifiers.convert()
	for _, key := range fb.Authors {
		id, ok := authors[key]
		if !ok {
			return fmt.Errorf("author %q: %w", key, ErrUnknownKey)
		}
		b.Authors = append(b.Authors, id)
	}
	return nil
}

func (i Identifiers) convert() book.Identifiers {
	return book.Identifiers{
		OpenLibraryKey:  i.OpenLibraryKey,
		InventaireID:    i.InventaireID,
		LibraryThingKey: i.LibraryThingKey,
		GoodreadsKey:    i.GoodreadsKey,
		BnfID:           i.BnfID,
		VIAF:            i.VIAF,
		Wikidata:        i.Wikidata,
		ASIN:            i.ASIN,
		AASIN:           i.AASIN,
		ISFDB:           i.ISFDB,
	}
}

func define(keys map[string]int64, key string, id int64) error {
	if key == "" {
		return nil
	}
	if _, dup := keys[key]; dup {
		return fmt.Errorf("duplicate fixture key %q", key)
	}
	keys[key] = id
	return nil
}

func label(key string, index int) string {
	if key != "" {
		return fmt.Sprintf("%q", key)
	}
	return fmt.Sprintf("#%d", index+1)
}
