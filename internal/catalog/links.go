package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/bookcat/internal/auth"
	"github.com/roach88/bookcat/internal/link"
	"github.com/roach88/bookcat/internal/metrics"
	"github.com/roach88/bookcat/internal/storage"
)

// FileLinkInput describes a file link to add to a book.
type FileLinkInput struct {
	BookID       int64
	URL          string
	FileType     string
	Availability link.Availability
}

// AddFileLink attaches a file link to a book, creating a pending domain for
// a hostname seen for the first time. Links are never broadcast on their
// own; the owning book carries them.
func (s *Service) AddFileLink(ctx context.Context, actor auth.Actor, in FileLinkInput) (*link.FileLink, *link.Domain, error) {
	host, err := link.Hostname(in.URL)
	if err != nil {
		return nil, nil, err
	}
	availability, err := link.ParseAvailability(string(in.Availability))
	if err != nil {
		return nil, nil, err
	}

	fl := &link.FileLink{
		Link: link.Link{
			URL:     strings.TrimSpace(in.URL),
			AddedBy: actor.ID,
		},
		BookID:       in.BookID,
		FileType:     strings.TrimSpace(in.FileType),
		Availability: availability,
	}
	var (
		domain  *link.Domain
		created bool
	)
	err = s.store.RunInTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetBook(ctx, in.BookID); err != nil {
			return err
		}
		domain, created, err = tx.GetOrCreateDomain(ctx, host)
		if err != nil {
			return err
		}
		fl.DomainID = domain.ID
		return tx.InsertFileLink(ctx, fl)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("add file link: %w", err)
	}
	if created {
		s.logger.Info("link domain created", slog.String("domain", host), slog.Int64("id", domain.ID))
	}
	return fl, domain, nil
}

// SetDomainStatus moves a domain through the moderation gate. The returned
// bool reports whether the status changed.
func (s *Service) SetDomainStatus(ctx context.Context, actor auth.Actor, domainID int64, to link.Status) (*link.Domain, bool, error) {
	var (
		d       *link.Domain
		changed bool
	)
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		if d, err = tx.GetDomain(ctx, domainID); err != nil {
			return err
		}
		if changed, err = d.SetStatus(actor, s.authz, to); err != nil || !changed {
			return err
		}
		return tx.UpdateDomain(ctx, d)
	})
	if err != nil {
		if errors.Is(err, auth.ErrPermissionDenied) {
			metrics.PermissionDenied.Inc()
		}
		return nil, false, fmt.Errorf("set domain status: %w", err)
	}
	if changed {
		metrics.DomainTransitions.WithLabelValues(string(d.Status)).Inc()
		s.logger.Info("link domain moderated",
			slog.String("domain", d.Domain),
			slog.String("status", string(d.Status)),
			slog.String("actor", actor.ID),
		)
	}
	return d, changed, nil
}

// RenameDomain sets a domain's display name. Moderators only.
func (s *Service) RenameDomain(ctx context.Context, actor auth.Actor, domainID int64, name string) (*link.Domain, error) {
	var d *link.Domain
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		if d, err = tx.GetDomain(ctx, domainID); err != nil {
			return err
		}
		if err := d.Rename(actor, s.authz, name); err != nil {
			return err
		}
		return tx.UpdateDomain(ctx, d)
	})
	if err != nil {
		if errors.Is(err, auth.ErrPermissionDenied) {
			metrics.PermissionDenied.Inc()
		}
		return nil, fmt.Errorf("rename domain: %w", err)
	}
	return d, nil
}

// ReportDomain flags a domain for moderator attention. Any actor may report.
func (s *Service) ReportDomain(ctx context.Context, actor auth.Actor, domainID int64) (*link.Domain, error) {
	var d *link.Domain
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		if d, err = tx.GetDomain(ctx, domainID); err != nil {
			return err
		}
		d.ReportedBy = actor.ID
		return tx.UpdateDomain(ctx, d)
	})
	if err != nil {
		return nil, fmt.Errorf("report domain: %w", err)
	}
	return d, nil
}

// ListDomains returns domains with the given status, or all when status is
// empty.
func (s *Service) ListDomains(ctx context.Context, status link.Status) ([]*link.Domain, error) {
	var domains []*link.Domain
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		domains, err = tx.ListDomains(ctx, status)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	return domains, nil
}

// FileLinks returns the file links of a book.
func (s *Service) FileLinks(ctx context.Context, bookID int64) ([]*link.FileLink, error) {
	var links []*link.FileLink
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		links, err = tx.FileLinksOf(ctx, bookID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("file links of %d: %w", bookID, err)
	}
	return links, nil
}
