// Package book models the catalog's bibliographic records.
//
// The package defines:
//   - Record: identifier and provenance fields shared by every book-data record
//   - Work and Edition: the two concrete catalog items, sealed behind Item
//   - Author: a record that participates in identity matching but is not an item
//
// # Identity
//
// Two records of the same kind denote the same real-world entity when any
// deduplication field holds the same non-empty value on both (SameEntity).
// A single shared identifier is authoritative; conflicting values in other
// fields never override a match.
//
// # Addressing
//
// Works and editions share one address space: both surface as
// https://<domain>/book/<id>. Authors live under /author/<id>.
//
// # Derived fields
//
// Edition.Prepare runs the save-time policy: ISBN cross-derivation and
// normalization, completeness rank, and sort title. It is pure and must be
// called inside the transaction that persists the edition.
package book
