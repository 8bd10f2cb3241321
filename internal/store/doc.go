// Package store is the SQLite backend of the catalog's storage ports.
//
// # Layout
//
//   - books: works and editions in one table, so both share the /book/<id>
//     address space; kind tells them apart
//   - authors, with ordered author sets in book_authors
//   - link_domains and links for the trust gate
//
// # Concurrency
//
// The pool holds a single connection. Every transaction therefore runs alone,
// which is what makes LockEdition a plain read here: check-then-act inside
// one RunInTx cannot interleave with another writer.
//
// # Database Configuration
//
//   - WAL mode: concurrent readers from other processes during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
