// Package record serializes generated storm events: CSV files with a YAML run
// header, Kafka topics, and in-memory buffers for tests and validation.
package record

import (
	"context"
	"errors"
	"sync"

	"github.com/coastal-risk/stormgen/sim"
)

// MemorySink buffers every event it receives. Safe for concurrent use.
type MemorySink struct {
	mu      sync.Mutex
	events  []sim.Event
	batches int
}

// Write appends a copy of events.
func (m *MemorySink) Write(_ context.Context, events []sim.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	m.batches++
	return nil
}

// Events returns a copy of all buffered events in arrival order.
func (m *MemorySink) Events() []sim.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sim.Event, len(m.events))
	copy(out, m.events)
	return out
}

// Batches returns the number of Write calls received.
func (m *MemorySink) Batches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

// Writer is the per-lifecycle contract shared by all sinks.
type Writer interface {
	Write(ctx context.Context, events []sim.Event) error
}

// MultiSink fans each batch out to every writer in order. It stops at the
// first failing writer.
type MultiSink []Writer

// Write forwards events to each writer.
func (ms MultiSink) Write(ctx context.Context, events []sim.Event) error {
	for _, w := range ms {
		if err := w.Write(ctx, events); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer that implements Close and joins their errors.
func (ms MultiSink) Close() error {
	var errs []error
	for _, w := range ms {
		if c, ok := w.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
