package book

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ActivityStreams vocabulary used by collection views.
const (
	ActivityStreamsContext = "https://www.w3.org/ns/activitystreams"
	TypeOrderedCollection  = "OrderedCollection"
	TypeOrderedPage        = "OrderedCollectionPage"
)

// DefaultPageLength is the number of editions per collection page.
const DefaultPageLength = 15

// ErrPageOutOfRange is returned for a page past the end of a collection.
var ErrPageOutOfRange = errors.New("page out of range")

// Collection is an ordered collection summary or one of its pages.
type Collection struct {
	Context      string   `json:"@context"`
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	TotalItems   int      `json:"totalItems"`
	First        string   `json:"first,omitempty"`
	Last         string   `json:"last,omitempty"`
	PartOf       string   `json:"partOf,omitempty"`
	Next         string   `json:"next,omitempty"`
	Prev         string   `json:"prev,omitempty"`
	OrderedItems []string `json:"orderedItems,omitempty"`
}

// NewEditionCollection builds the "<work>/editions" collection.
//
// Page 0 returns the summary with first/last links. Pages from 1 list edition
// remote IDs in display order. The editions slice is not modified.
func NewEditionCollection(workRemoteID string, editions []*Edition, page, pageLength int) (Collection, error) {
	if pageLength <= 0 {
		pageLength = DefaultPageLength
	}
	id := workRemoteID + "/editions"
	total := len(editions)
	pages := max(1, (total+pageLength-1)/pageLength)

	if page == 0 {
		return Collection{
			Context:    ActivityStreamsContext,
			ID:         id,
			Type:       TypeOrderedCollection,
			TotalItems: total,
			First:      pageURL(id, 1),
			Last:       pageURL(id, pages),
		}, nil
	}
	if page < 0 || page > pages {
		return Collection{}, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, pages)
	}

	sorted := append([]*Edition(nil), editions...)
	SortEditions(sorted)
	start := (page - 1) * pageLength
	end := min(start+pageLength, total)

	c := Collection{
		Context:    ActivityStreamsContext,
		ID:         pageURL(id, page),
		Type:       TypeOrderedPage,
		TotalItems: total,
		PartOf:     id,
	}
	for _, e := range sorted[start:end] {
		c.OrderedItems = append(c.OrderedItems, e.RemoteID)
	}
	if page < pages {
		c.Next = pageURL(id, page+1)
	}
	if page > 1 {
		c.Prev = pageURL(id, page-1)
	}
	return c, nil
}

// JSON renders the collection as indented JSON.
func (c Collection) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

func pageURL(id string, page int) string {
	return fmt.Sprintf("%s?page=%d", id, page)
}
