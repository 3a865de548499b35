package engine

import (
	"sync"

	"github.com/spektr-org/myriad/schema"
)

// ============================================================================
// EVENTS — Explicit message queue for the UI shell
// ============================================================================
// The engine keeps no subscriber list. It appends discrete events; the shell
// drains them by polling or from its own callback loop.
// ============================================================================

// EventKind classifies an Event.
type EventKind string

const (
	EventSelectionChanged  EventKind = "selection_changed"
	EventMeasureProposed   EventKind = "measure_proposed"
	EventQueryCompleted    EventKind = "query_completed"
	EventQueryFailed       EventKind = "query_failed"
	EventRowRejected       EventKind = "row_rejected"
	EventMetadataRefreshed EventKind = "metadata_refreshed"
)

// Event is one notification for the shell.
type Event struct {
	Kind      EventKind       `json:"kind"`
	Dimension string          `json:"dimension,omitempty"`
	Values    []string        `json:"values,omitempty"`
	Measure   *schema.Measure `json:"measure,omitempty"`
	Rows      int             `json:"rows,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// EventQueue is a bounded FIFO. Safe for concurrent use.
type EventQueue struct {
	mu      sync.Mutex
	events  []Event
	limit   int
	dropped int
}

// NewEventQueue creates a queue holding at most limit events (0 = unbounded).
func NewEventQueue(limit int) *EventQueue {
	return &EventQueue{limit: limit}
}

// Push appends e, dropping the oldest event when full.
func (q *EventQueue) Push(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && len(q.events) >= q.limit {
		q.events = q.events[1:]
		q.dropped++
	}
	q.events = append(q.events, e)
}

// Drain returns and removes every queued event.
func (q *EventQueue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Dropped returns how many events were discarded because the queue was full.
func (q *EventQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
