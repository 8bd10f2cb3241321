package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/roach88/bookcat/internal/link"
	"github.com/roach88/bookcat/internal/storage"
)

const domainColumns = "id, domain, status, name, reported_by, created_at, updated_at"

func scanDomain(row pgx.Row) (*link.Domain, error) {
	d := &link.Domain{}
	var status string
	if err := row.Scan(&d.ID, &d.Domain, &status, &d.Name, &d.ReportedBy, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	d.Status = link.Status(status)
	d.CreatedAt, d.UpdatedAt = d.CreatedAt.UTC(), d.UpdatedAt.UTC()
	return d, nil
}

func (t *pgTx) GetOrCreateDomain(ctx context.Context, host string) (*link.Domain, bool, error) {
	fresh := link.NewDomain(host)
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO link_domains (domain, status, name, reported_by, created_at, updated_at)
		VALUES ($1, $2, $3, '', $4, $4)
		ON CONFLICT (domain) DO NOTHING
	`, fresh.Domain, string(fresh.Status), fresh.Name, t.now)
	if err != nil {
		return nil, false, fmt.Errorf("create domain %s: %w", host, mapError(err))
	}

	row := t.tx.QueryRow(ctx, "SELECT "+domainColumns+" FROM link_domains WHERE domain = $1", host)
	d, err := scanDomain(row)
	if err != nil {
		return nil, false, fmt.Errorf("get domain %s: %w", host, err)
	}
	return d, tag.RowsAffected() > 0, nil
}

func (t *pgTx) GetDomain(ctx context.Context, id int64) (*link.Domain, error) {
	row := t.tx.QueryRow(ctx, "SELECT "+domainColumns+" FROM link_domains WHERE id = $1", id)
	d, err := scanDomain(row)
	if err != nil {
		return nil, fmt.Errorf("get domain %d: %w", id, err)
	}
	return d, nil
}

func (t *pgTx) UpdateDomain(ctx context.Context, d *link.Domain) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE link_domains SET status = $1, name = $2, reported_by = $3, updated_at = $4
		WHERE id = $5
	`, string(d.Status), d.Name, d.ReportedBy, t.now, d.ID)
	if err != nil {
		return fmt.Errorf("update domain %d: %w", d.ID, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update domain %d: %w", d.ID, storage.ErrNotFound)
	}
	d.UpdatedAt = t.now
	return nil
}

func (t *pgTx) ListDomains(ctx context.Context, status link.Status) ([]*link.Domain, error) {
	rows, err := t.tx.Query(ctx, "SELECT "+domainColumns+`
		FROM link_domains
		WHERE $1 = '' OR status = $1
		ORDER BY id ASC
	`, string(status))
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

func (t *pgTx) InsertFileLink(ctx context.Context, l *link.FileLink) error {
	if l.Availability == "" {
		l.Availability = link.AvailabilityFree
	}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO links (url, added_by, domain_id, book_id, filetype, availability, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, l.URL, l.AddedBy, l.DomainID, l.BookID, l.FileType, string(l.Availability), t.now).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("insert link: %w", mapError(err))
	}
	l.CreatedAt = t.now
	return nil
}

func (t *pgTx) FileLinksOf(ctx context.Context, bookID int64) ([]*link.FileLink, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, url, added_by, domain_id, book_id, filetype, availability, created_at
		FROM links
		WHERE book_id = $1
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
