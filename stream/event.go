// Package stream provides a real-time event broker for docledger run
// lifecycle events. It bridges the ext.Extension system to connected
// observers via topic-based pub/sub, so a progress surface can render
// each ledger event transition as it happens.
package stream

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	EventWorkflowStarted   EventType = "workflow.started"
	EventProcessing        EventType = "event.processing"
	EventCompleted         EventType = "event.completed"
	EventFailed            EventType = "event.failed"
	EventMilestone         EventType = "milestone"
	EventWorkflowCompleted EventType = "workflow.completed"
	EventWorkflowFailed    EventType = "workflow.failed"
	EventWorkflowReset     EventType = "workflow.reset"
	EventSettled           EventType = "settled"
)

// Event is the envelope sent to subscribers on a topic channel.
type Event struct {
	// Type identifies the lifecycle event.
	Type EventType `json:"type"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"ts"`

	// Topic is the run-specific channel this event was published on.
	Topic string `json:"topic"`

	// Kind is the flow kind, used for kind-scoped topic fan-out.
	Kind string `json:"kind"`

	// Data is the event-specific payload.
	Data json.RawMessage `json:"data"`
}

// RunEventData is the payload for run lifecycle events.
type RunEventData struct {
	RunID       string `json:"run_id"`
	Kind        string `json:"kind"`
	DocumentID  string `json:"document_id"`
	State       string `json:"state"`
	CurrentStep int    `json:"current_step"`
	EventName   string `json:"event_name,omitempty"`
	EventStatus string `json:"event_status,omitempty"`
	ElapsedMs   int64  `json:"elapsed_ms,omitempty"`
	Error       string `json:"error,omitempty"`
}

// MilestoneEventData is the payload for milestone notices.
type MilestoneEventData struct {
	RunID       string `json:"run_id"`
	Kind        string `json:"kind"`
	EventName   string `json:"event_name"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
