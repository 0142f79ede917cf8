// Package workflow defines flow configurations, runs, the ledger event
// driver, and the workflow store interface.
package workflow

import (
	"context"

	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/latency"
	"github.com/BetoIII/docledger/ledger"
)

// Notice is the user-visible notification emitted when a milestone event
// completes. Consumed by a toast/notification surface.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// StepAction is a real backend call substituted for an event's simulated
// delay. A failed action marks the event status error, halts the
// sequence, and leaves the run in a distinguishable failed state. The
// driver bounds every action with the configured step timeout.
type StepAction func(ctx context.Context, run *Run, evt *ledger.Event) error

// Flow is a typed flow configuration: one generic driver, five of these.
// P is the invocation parameter type (must be JSON-serializable).
type Flow[P any] struct {
	// Kind is the tagged variant this flow runs under.
	Kind Kind

	// Validate checks invocation preconditions. A non-nil error prevents
	// the run from starting; no state is published.
	Validate func(params P) error

	// DocumentID extracts the subject document from the parameters.
	// When nil (or when it returns the nil ID) the driver mints a fresh
	// document ID, as registration does.
	DocumentID func(params P) id.DocumentID

	// Facts generates the randomized domain payload that seeds the event
	// list. Pure: no external calls, same key set on every invocation.
	Facts func(params P) map[string]any

	// Sequence builds the ordered pending event list from parameters and
	// generated facts. Deterministic given the same facts.
	Sequence func(params P, facts map[string]any) []ledger.Event

	// Seed optionally pre-populates the run's accumulated fields from
	// the invocation parameters (prices, recipient lists).
	Seed func(params P, facts map[string]any) map[string]any

	// Milestones maps event names to notice builders. A completed event
	// whose name appears here emits a user-visible notification.
	Milestones map[string]func(params P, evt *ledger.Event) Notice

	// Accumulate merges a completed event's results into the run's
	// accumulated fields. May be nil.
	Accumulate func(run *Run, evt *ledger.Event)

	// Finalize runs once after the last event completes, before the run
	// is marked complete. Appends derived instance records. May be nil.
	Finalize func(run *Run)

	// Latency overrides the driver's default simulated latency profile.
	Latency latency.Profile

	// Actions substitutes real backend calls for specific events'
	// simulated delays.
	Actions map[string]StepAction
}
