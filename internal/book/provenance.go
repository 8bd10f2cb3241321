package book

import (
	"fmt"
	"net/url"
)

// RemoteID returns the federation-wide address of a record stored here.
// Works and editions share the /book/ namespace.
func RemoteID(domain string, kind Kind, id int64) string {
	segment := "book"
	if kind == KindAuthor {
		segment = "author"
	}
	return fmt.Sprintf("https://%s/%s/%d", domain, segment, id)
}

// PrepareInsert runs before a record is persisted for the first time.
// Any inbound address moves into OriginID and RemoteID is cleared; the
// local address is assigned by Stamp once the storage ID is known.
func PrepareInsert(d Deduper) {
	r := d.Base()
	if r.OriginID == "" {
		r.OriginID = r.RemoteID
	}
	r.RemoteID = ""
}

// Stamp assigns the local address after first persistence. A record without
// an inbound address becomes locally authored.
func Stamp(d Deduper, domain string) error {
	r := d.Base()
	if r.ID == 0 {
		return ErrUnsaved
	}
	local := RemoteID(domain, d.Kind(), r.ID)
	if r.OriginID == "" {
		r.OriginID = local
	}
	r.RemoteID = local
	return nil
}

// Restamp runs before a stored record is written again. The stored origin
// is kept and the local address re-derived, whatever the caller's copy
// holds.
func Restamp(d Deduper, stored Provenance, domain string) error {
	d.Base().OriginID = stored.OriginID
	return Stamp(d, domain)
}

// OpenLibraryLink returns the Open Library page for the record, or "".
func (i Identifiers) OpenLibraryLink() string {
	if i.OpenLibraryKey == "" {
		return ""
	}
	return "https://openlibrary.org/books/" + url.PathEscape(i.OpenLibraryKey)
}

// InventaireLink returns the Inventaire entity page for the record, or "".
func (i Identifiers) InventaireLink() string {
	if i.InventaireID == "" {
		return ""
	}
	return "https://inventaire.io/entity/" + url.PathEscape(i.InventaireID)
}

// ISFDBLink returns the ISFDB title page for the record, or "".
func (i Identifiers) ISFDBLink() string {
	if i.ISFDB == "" {
		return ""
	}
	return "https://www.isfdb.org/cgi-bin/title.cgi?" + url.QueryEscape(i.ISFDB)
}
