// Package catalog coordinates saves, repairs, deduplication and link
// moderation on top of a storage backend.
//
// Every mutating operation runs in one storage transaction. Side effects
// (cache invalidation, preview tasks, broadcasts) happen only after commit
// and never fail the operation that triggered them.
package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/roach88/bookcat/internal/auth"
	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/storage"
	"github.com/roach88/bookcat/internal/tasks"
)

// Default author-books cache settings.
const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = 15 * time.Minute
)

// Broadcaster is notified of committed changes that should federate.
type Broadcaster interface {
	Broadcast(ctx context.Context, record book.Deduper, created bool) error
}

// TaskQueue accepts post-commit background work. *tasks.Dispatcher
// implements it.
type TaskQueue interface {
	Enqueue(kind string, bookID int64, fields []string) (tasks.Task, bool)
}

// Options configures a Service.
type Options struct {
	// Domain is this server's hostname, used to build remote IDs.
	Domain string

	Policy book.Policy

	// PreviewsEnabled turns on preview_image tasks for changed books.
	PreviewsEnabled bool

	CacheSize int
	CacheTTL  time.Duration

	// Authorizer checks moderation permissions. Nil means auth.PermissionSet.
	Authorizer auth.Authorizer

	Broadcaster Broadcaster
	Tasks       TaskQueue
	Logger      *slog.Logger
}

// SaveOptions controls the side effects of a save.
type SaveOptions struct {
	Broadcast bool
}

// Service is the catalog core.
type Service struct {
	store    storage.Store
	domain   string
	policy   book.Policy
	previews bool
	authz    auth.Authorizer
	bcast    Broadcaster
	tasks    TaskQueue
	logger   *slog.Logger

	authorBooks *expirable.LRU[int64, []book.Item]
}

// New returns a Service over store.
func New(store storage.Store, opts Options) *Service {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Authorizer == nil {
		opts.Authorizer = auth.PermissionSet{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:       store,
		domain:      opts.Domain,
		policy:      opts.Policy,
		previews:    opts.PreviewsEnabled,
		authz:       opts.Authorizer,
		bcast:       opts.Broadcaster,
		tasks:       opts.Tasks,
		logger:      opts.Logger,
		authorBooks: expirable.NewLRU[int64, []book.Item](opts.CacheSize, nil, opts.CacheTTL),
	}
}

// Domain returns the hostname the service stamps records with.
func (s *Service) Domain() string {
	return s.domain
}

// Ping checks the storage backend.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) broadcast(ctx context.Context, record book.Deduper, created bool) {
	if s.bcast == nil {
		return
	}
	if err := s.bcast.Broadcast(ctx, record, created); err != nil {
		s.logger.Warn("broadcast failed",
			slog.String("kind", string(record.Kind())),
			slog.Int64("id", record.Base().ID),
			slog.Any("error", err),
		)
	}
}

// enqueuePreview schedules a preview regeneration for a committed change.
func (s *Service) enqueuePreview(id int64, changed []string) {
	if !s.previews || s.tasks == nil || len(changed) == 0 {
		return
	}
	if _, ok := s.tasks.Enqueue(tasks.KindPreviewImage, id, changed); !ok {
		s.logger.Warn("preview task dropped", slog.Int64("book_id", id))
	}
}

func (s *Service) invalidateAuthors(ids ...int64) {
	for _, id := range ids {
		s.authorBooks.Remove(id)
	}
}
