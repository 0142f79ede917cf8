// Package ledger defines the shared event model: the Event record every
// flow's sequence is built from, its status lifecycle, and the display
// humanization transform.
package ledger

import (
	"time"

	"github.com/BetoIII/docledger/id"
)

// Status represents the lifecycle state of a ledger event.
// The success path is strictly pending → processing → completed.
type Status string

const (
	// StatusPending means the event has not started yet.
	StatusPending Status = "pending"
	// StatusProcessing means the event is currently being worked.
	StatusProcessing Status = "processing"
	// StatusCompleted means the event finished successfully.
	StatusCompleted Status = "completed"
	// StatusError means the event failed. Terminal for the event and
	// for the rest of its sequence.
	StatusError Status = "error"
)

// Valid reports whether s is one of the closed set of statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal status for an event.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Event is one discrete, named step in a flow's simulated process.
type Event struct {
	ID id.EventID `json:"id"`

	// Name is the PascalCase machine key (e.g. "DocumentHashGenerated").
	// Display labels are derived via Humanize, never stored.
	Name string `json:"name"`

	Status Status `json:"status"`

	// Timestamp is set on the first transition away from pending.
	// Within one sequence timestamps are non-decreasing.
	Timestamp *time.Time `json:"timestamp,omitempty"`

	// Details carries the message string plus flow-specific fields
	// (identifiers, monetary amounts, counts, hashes).
	Details map[string]any `json:"details,omitempty"`
}

// NewPending creates a pending event with the given name and details.
// The details map is copied so builders can reuse scratch maps.
func NewPending(name string, details map[string]any) Event {
	d := make(map[string]any, len(details))
	for k, v := range details {
		d[k] = v
	}
	return Event{
		ID:      id.NewEventID(),
		Name:    name,
		Status:  StatusPending,
		Details: d,
	}
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	cp := e
	if e.Timestamp != nil {
		ts := *e.Timestamp
		cp.Timestamp = &ts
	}
	if e.Details != nil {
		cp.Details = make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			cp.Details[k] = v
		}
	}
	return cp
}

// MergeDetails copies the given key/value pairs into the event's details,
// allocating the map if needed.
func (e *Event) MergeDetails(details map[string]any) {
	if len(details) == 0 {
		return
	}
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
}
