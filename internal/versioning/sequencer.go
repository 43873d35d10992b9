// Package versioning assigns version labels to newly registered models.
//
// Version numbers come from a per-model-name counter. The counter lives in
// the metadata database or in Redis so that numbering survives restarts
// and is shared by every process; ProcessCounter keeps a single in-memory
// counter and restarts from one with the process.
package versioning

import (
	"context"
	"strconv"
	"sync"
)

// Sequencer hands out increasing version numbers per model name.
type Sequencer interface {
	Next(ctx context.Context, modelName string) (int64, error)
}

// Format renders a version number as a label, e.g. "v3".
func Format(n int64) string {
	return "v" + strconv.FormatInt(n, 10)
}

// ProcessCounter is one counter shared by all model names for the life of
// the process. Numbers restart at one after a restart and are not
// coordinated between processes.
type ProcessCounter struct {
	mu sync.Mutex
	n  int64
}

// NewProcessCounter creates a counter whose first value is one.
func NewProcessCounter() *ProcessCounter {
	return &ProcessCounter{}
}

func (c *ProcessCounter) Next(ctx context.Context, modelName string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n, nil
}
