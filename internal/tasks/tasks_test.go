package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bookcat/internal/metrics"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQueueFIFO(t *testing.T) {
	q := newQueue()
	for i := int64(1); i <= 3; i++ {
		require.True(t, q.Enqueue(Task{BookID: i}))
	}
	assert.Equal(t, 3, q.Len())

	for i := int64(1); i <= 3; i++ {
		task, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, i, task.BookID)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestQueueClose(t *testing.T) {
	q := newQueue()
	require.True(t, q.Enqueue(Task{BookID: 1}))
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(Task{BookID: 2}), "enqueue after close")
	assert.False(t, q.Drained(), "queued task survives close")

	_, ok := q.TryDequeue()
	require.True(t, ok)
	assert.True(t, q.Drained())

	select {
	case <-q.Wait():
	default:
		t.Fatal("Wait() channel should be closed")
	}
}

func TestFixedGenerator(t *testing.T) {
	g := &FixedGenerator{}
	assert.Equal(t, "task-1", g.NewID())
	assert.Equal(t, "task-2", g.NewID())
}

func TestUUIDv7GeneratorOrdered(t *testing.T) {
	g := UUIDv7Generator{}
	a := g.NewID()
	time.Sleep(2 * time.Millisecond)
	b := g.NewID()
	assert.Len(t, a, 36)
	assert.Less(t, a, b)
}

func TestDispatcherRunsEveryTask(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []int64
	)
	h := HandlerFunc(func(_ context.Context, task Task) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, task.BookID)
		return nil
	})
	d := NewDispatcher(h, WithWorkers(4), WithIDGenerator(&FixedGenerator{}), WithLogger(quietLogger()))

	before := testutil.ToFloat64(metrics.TasksEnqueued.WithLabelValues(KindPreviewImage))
	for i := int64(1); i <= 20; i++ {
		_, ok := d.Enqueue(KindPreviewImage, i, []string{"title"})
		require.True(t, ok)
	}
	assert.Equal(t, float64(20), testutil.ToFloat64(metrics.TasksEnqueued.WithLabelValues(KindPreviewImage))-before)

	d.Stop()
	require.NoError(t, d.Run(context.Background()))

	assert.Len(t, seen, 20)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, seen)
	assert.Zero(t, d.Pending())
}

func TestDispatcherEnqueueCopiesFields(t *testing.T) {
	d := NewDispatcher(HandlerFunc(func(context.Context, Task) error { return nil }),
		WithIDGenerator(&FixedGenerator{}))
	fields := []string{"title"}
	task, ok := d.Enqueue(KindPreviewImage, 7, fields)
	require.True(t, ok)
	fields[0] = "cover"

	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, []string{"title"}, task.Fields)
	assert.False(t, task.EnqueuedAt.IsZero())
	assert.Equal(t, 1, d.Pending())
}

func TestDispatcherFailuresAreCounted(t *testing.T) {
	const kind = "failing_kind"
	h := HandlerFunc(func(context.Context, Task) error { return errors.New("boom") })
	d := NewDispatcher(h, WithLogger(quietLogger()))

	before := testutil.ToFloat64(metrics.TasksFailed.WithLabelValues(kind))
	d.Enqueue(kind, 1, nil)
	d.Enqueue(kind, 2, nil)
	d.Stop()
	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.TasksFailed.WithLabelValues(kind))-before)
}

func TestDispatcherEnqueueAfterStop(t *testing.T) {
	d := NewDispatcher(HandlerFunc(func(context.Context, Task) error { return nil }))
	d.Stop()
	_, ok := d.Enqueue(KindPreviewImage, 1, nil)
	assert.False(t, ok)
	assert.ErrorIs(t, d.Run(context.Background()), ErrDispatcherStopped)
}

func TestDispatcherContextCancel(t *testing.T) {
	d := NewDispatcher(HandlerFunc(func(context.Context, Task) error { return nil }))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDispatcherRunTwice(t *testing.T) {
	d := NewDispatcher(HandlerFunc(func(context.Context, Task) error { return nil }))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Wait for the first Run to claim the dispatcher.
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.started
	}, time.Second, time.Millisecond)

	assert.Error(t, d.Run(ctx))
	d.Stop()
	assert.NoError(t, <-done)
}
