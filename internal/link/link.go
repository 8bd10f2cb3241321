// Package link models external links attached to books and the
// per-hostname trust gate that moderators use to approve or block them.
package link

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/bookcat/internal/auth"
)

// Status is the moderation state of a link domain.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusBlocked  Status = "blocked"
)

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(s)); st {
	case StatusPending, StatusApproved, StatusBlocked:
		return st, nil
	}
	return "", fmt.Errorf("unknown domain status %q", s)
}

// Availability describes how a linked file can be obtained.
type Availability string

const (
	AvailabilityFree     Availability = "free"
	AvailabilityPurchase Availability = "purchase"
	AvailabilityLoan     Availability = "loan"
)

// ParseAvailability validates an availability name. Empty means free.
func ParseAvailability(s string) (Availability, error) {
	switch a := Availability(strings.ToLower(s)); a {
	case "":
		return AvailabilityFree, nil
	case AvailabilityFree, AvailabilityPurchase, AvailabilityLoan:
		return a, nil
	}
	return "", fmt.Errorf("unknown availability %q", s)
}

var (
	// ErrInvalidTransition is returned for a status change the gate never allows.
	ErrInvalidTransition = errors.New("invalid domain status transition")

	// ErrInvalidURL is returned when a link URL has no usable hostname.
	ErrInvalidURL = errors.New("invalid link url")
)

// Domain is the trust record for one hostname.
type Domain struct {
	ID         int64
	Domain     string
	Status     Status
	Name       string
	ReportedBy string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewDomain returns a pending domain named after its host.
func NewDomain(host string) *Domain {
	return &Domain{Domain: host, Status: StatusPending, Name: host}
}

// SetStatus moves the domain to a new moderation state.
//
// Allowed moves are pending to approved or blocked, and approved to blocked
// and back. Asking for the current status is a no-op. Only actors holding
// auth.PermModeratePost may change anything; the domain is left untouched on
// every error. The returned bool reports whether the status changed.
func (d *Domain) SetStatus(actor auth.Actor, authz auth.Authorizer, to Status) (bool, error) {
	if err := auth.Require(authz, actor, auth.PermModeratePost); err != nil {
		return false, fmt.Errorf("set status of %s: %w", d.Domain, err)
	}
	to, err := ParseStatus(string(to))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	if d.Status == to {
		return false, nil
	}
	if to == StatusPending {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, to)
	}
	d.Status = to
	return true, nil
}

// Rename sets the display name. An empty name falls back to the hostname.
func (d *Domain) Rename(actor auth.Actor, authz auth.Authorizer, name string) error {
	if err := auth.Require(authz, actor, auth.PermModeratePost); err != nil {
		return fmt.Errorf("rename %s: %w", d.Domain, err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = d.Domain
	}
	d.Name = name
	return nil
}

// Link is an external URL added by a local actor.
type Link struct {
	ID        int64
	URL       string
	AddedBy   string
	DomainID  int64
	CreatedAt time.Time
}

// FileLink is a link to a copy of a book.
type FileLink struct {
	Link
	BookID       int64
	FileType     string
	Availability Availability
}

// Hostname returns the lowercased host of a link URL, without port.
func Hostname(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: no host in %q", ErrInvalidURL, raw)
	}
	return host, nil
}
