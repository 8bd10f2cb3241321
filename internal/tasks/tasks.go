// Package tasks runs post-commit side effects in the background.
//
// Producers call Dispatcher.Enqueue after a transaction has committed. The
// queue is unbounded and in memory; a fixed pool of workers drains it.
// Handler failures are logged and counted, never retried. Tasks still queued
// when the process exits are lost; they describe derived data (preview
// images) that the next save regenerates.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/bookcat/internal/metrics"
)

// KindPreviewImage asks for a book's preview image to be regenerated.
const KindPreviewImage = "preview_image"

// ErrDispatcherStopped is returned by Run once Stop has been called before
// Run started.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// Task is one unit of background work.
type Task struct {
	ID         string
	Kind       string
	BookID     int64
	Fields     []string
	EnqueuedAt time.Time
}

// Handler processes a task.
type Handler interface {
	Handle(ctx context.Context, t Task) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, t Task) error

func (f HandlerFunc) Handle(ctx context.Context, t Task) error { return f(ctx, t) }

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the number of concurrent workers (minimum 1).
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		d.workers = max(1, n)
	}
}

// WithIDGenerator replaces the UUIDv7 task ID source.
func WithIDGenerator(g IDGenerator) Option {
	return func(d *Dispatcher) {
		d.ids = g
	}
}

// WithLogger sets the logger for handler failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// Dispatcher owns the task queue and the workers draining it.
type Dispatcher struct {
	queue   *queue
	handler Handler
	workers int
	ids     IDGenerator
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	started bool
}

// NewDispatcher returns a dispatcher that feeds tasks to h.
func NewDispatcher(h Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:   newQueue(),
		handler: h,
		workers: 1,
		ids:     UUIDv7Generator{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue schedules a task. It never blocks. The returned bool is false
// once the dispatcher has been stopped.
func (d *Dispatcher) Enqueue(kind string, bookID int64, fields []string) (Task, bool) {
	t := Task{
		ID:         d.ids.NewID(),
		Kind:       kind,
		BookID:     bookID,
		Fields:     slices.Clone(fields),
		EnqueuedAt: d.now(),
	}
	if !d.queue.Enqueue(t) {
		return Task{}, false
	}
	metrics.TasksEnqueued.WithLabelValues(kind).Inc()
	return t, true
}

// Pending returns the number of queued tasks not yet picked up.
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}

// Stop closes the queue. Run finishes the tasks already queued and returns.
func (d *Dispatcher) Stop() {
	d.queue.Close()
}

// Run starts the workers and blocks until the queue is stopped and drained
// (returns nil) or ctx is cancelled (returns ctx.Err()). Run may be called
// only once.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already running")
	}
	d.started = true
	d.mu.Unlock()

	if d.queue.Drained() {
		return ErrDispatcherStopped
	}

	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		if t, ok := d.queue.TryDequeue(); ok {
			d.handle(ctx, t)
			continue
		}
		if d.queue.Drained() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-d.queue.Wait():
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, t Task) {
	if err := d.handler.Handle(ctx, t); err != nil {
		metrics.TasksFailed.WithLabelValues(t.Kind).Inc()
		d.logger.Error("task failed",
			slog.String("task_id", t.ID),
			slog.String("kind", t.Kind),
			slog.Int64("book_id", t.BookID),
			slog.Any("error", err),
		)
	}
}
