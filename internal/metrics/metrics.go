// Package metrics declares the catalog's Prometheus metrics.
// All metrics register with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Repair outcomes.
const (
	RepairCreated = "created"
	RepairSkipped = "skipped"
	RepairFailed  = "failed"
)

// Catalog metrics
var (
	EditionsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookcat_editions_saved_total",
		Help: "Editions written, inserts and updates.",
	})

	WorksSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookcat_works_saved_total",
		Help: "Works written, inserts and updates.",
	})

	// EditionRank is observed once per edition save.
	EditionRank = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bookcat_edition_rank",
		Help:    "Completeness rank computed on edition save.",
		Buckets: prometheus.LinearBuckets(0, 1, 10),
	})

	Repairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookcat_repairs_total",
			Help: "Orphan edition repairs by outcome.",
		},
		[]string{"result"},
	)

	DuplicatesFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookcat_duplicates_found_total",
			Help: "Stored duplicates reported, by the field that matched.",
		},
		[]string{"field"},
	)
)

// Trust gate metrics
var (
	DomainTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookcat_domain_transitions_total",
			Help: "Link domain status changes by target status.",
		},
		[]string{"to"},
	)

	PermissionDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookcat_permission_denied_total",
		Help: "Moderation attempts by actors without the required permission.",
	})
)

// Cache and task metrics
var (
	AuthorCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookcat_author_cache_hits_total",
		Help: "Author-books cache hits.",
	})

	AuthorCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookcat_author_cache_misses_total",
		Help: "Author-books cache misses.",
	})

	TasksEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookcat_tasks_enqueued_total",
			Help: "Background tasks enqueued by kind.",
		},
		[]string{"kind"},
	)

	TasksFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookcat_tasks_failed_total",
			Help: "Background tasks whose handler returned an error, by kind.",
		},
		[]string{"kind"},
	)
)

// HTTP metrics for the ops endpoint
var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookcat_http_requests_total",
			Help: "Requests served by the ops endpoint.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookcat_http_request_duration_seconds",
			Help:    "Ops endpoint request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
