package tasks

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces task identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDv7Generator issues time-ordered UUIDs, so task IDs sort by enqueue time.
type UUIDv7Generator struct{}

func (UUIDv7Generator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does.
		return uuid.NewString()
	}
	return id.String()
}

// FixedGenerator issues "task-1", "task-2", ... for deterministic tests.
type FixedGenerator struct {
	seq atomic.Int64
}

func (g *FixedGenerator) NewID() string {
	return fmt.Sprintf("task-%d", g.seq.Add(1))
}
