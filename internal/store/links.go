package store

import (
	"context"
	"fmt"

	"github.com/roach88/bookcat/internal/link"
	"github.com/roach88/bookcat/internal/storage"
)

const domainColumns = "id, domain, status, name, reported_by, created_at, updated_at"

func scanDomain(sc rowScanner) (*link.Domain, error) {
	d := &link.Domain{}
	var status string
	err := sc.Scan(&d.ID, &d.Domain, &status, &d.Name, &d.ReportedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	d.Status = link.Status(status)
	return d, nil
}

// GetOrCreateDomain inserts a pending domain unless the host already has one,
// then reads whichever row exists.
func (t *sqlTx) GetOrCreateDomain(ctx context.Context, host string) (*link.Domain, bool, error) {
	fresh := link.NewDomain(host)
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO link_domains (domain, status, name, reported_by, created_at, updated_at)
		VALUES (?, ?, ?, '', ?, ?)
		ON CONFLICT(domain) DO NOTHING
	`, fresh.Domain, string(fresh.Status), fresh.Name, t.now, t.now)
	if err != nil {
		return nil, false, fmt.Errorf("create domain %s: %w", host, mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("create domain %s: %w", host, err)
	}

	row := t.tx.QueryRowContext(ctx, "SELECT "+domainColumns+" FROM link_domains WHERE domain = ?", host)
	d, err := scanDomain(row)
	if err != nil {
		return nil, false, fmt.Errorf("get domain %s: %w", host, err)
	}
	return d, n > 0, nil
}

func (t *sqlTx) GetDomain(ctx context.Context, id int64) (*link.Domain, error) {
	row := t.tx.QueryRowContext(ctx, "SELECT "+domainColumns+" FROM link_domains WHERE id = ?", id)
	d, err := scanDomain(row)
	if err != nil {
		return nil, fmt.Errorf("get domain %d: %w", id, err)
	}
	return d, nil
}

func (t *sqlTx) UpdateDomain(ctx context.Context, d *link.Domain) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE link_domains SET status = ?, name = ?, reported_by = ?, updated_at = ?
		WHERE id = ?
	`, string(d.Status), d.Name, d.ReportedBy, t.now, d.ID)
	if err != nil {
		return fmt.Errorf("update domain %d: %w", d.ID, mapError(err))
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update domain %d: %w", d.ID, err)
	} else if n == 0 {
		return fmt.Errorf("update domain %d: %w", d.ID, storage.ErrNotFound)
	}
	d.UpdatedAt = t.now
	return nil
}

func (t *sqlTx) ListDomains(ctx context.Context, status link.Status) ([]*link.Domain, error) {
	query := "SELECT " + domainColumns + " FROM link_domains"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY id ASC"

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	var domains []*link.Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}
	return domains, nil
}

func (t *sqlTx) InsertFileLink(ctx context.Context, l *link.FileLink) error {
	if l.Availability == "" {
		l.Availability = link.AvailabilityFree
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO links (url, added_by, domain_id, book_id, filetype, availability, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, l.URL, l.AddedBy, l.DomainID, l.BookID, l.FileType, string(l.Availability), t.now)
	if err != nil {
		return fmt.Errorf("insert link: %w", mapError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert link: last insert id: %w", err)
	}
	l.ID, l.CreatedAt = id, t.now
	return nil
}

func (t *sqlTx) FileLinksOf(ctx context.Context, bookID int64) ([]*link.FileLink, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, url, added_by, domain_id, book_id, filetype, availability, created_at
		FROM links
		WHERE book_id = ?
		ORDER BY id ASC
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("query links of %d: %w", bookID, err)
	}
	defer rows.Close()

	var links []*link.FileLink
	for rows.Next() {
		l := &link.FileLink{}
		var availability string
		if err := rows.Scan(&l.ID, &l.URL, &l.AddedBy, &l.DomainID, &l.BookID, &l.FileType, &availability, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		l.Availability = link.Availability(availability)
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}
