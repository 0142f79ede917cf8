// Package ext defines the extension system for docledger.
// Extensions are notified of run lifecycle events (started, event
// completed, milestone reached, etc.) and can react to them — streaming,
// notifications, metrics, sharing aggregation.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Run lifecycle hooks
// ──────────────────────────────────────────────────

// WorkflowStarted is called when a flow run begins.
type WorkflowStarted interface {
	OnWorkflowStarted(ctx context.Context, r *workflow.Run) error
}

// EventProcessing is called when a ledger event enters processing.
type EventProcessing interface {
	OnEventProcessing(ctx context.Context, r *workflow.Run, evt *ledger.Event) error
}

// EventCompleted is called after a ledger event completes.
type EventCompleted interface {
	OnEventCompleted(ctx context.Context, r *workflow.Run, evt *ledger.Event, elapsed time.Duration) error
}

// EventFailed is called when a ledger event's step action fails.
type EventFailed interface {
	OnEventFailed(ctx context.Context, r *workflow.Run, evt *ledger.Event, err error) error
}

// Milestone is called when a completed event carries a user-visible
// notice.
type Milestone interface {
	OnMilestone(ctx context.Context, r *workflow.Run, evt *ledger.Event, notice workflow.Notice) error
}

// WorkflowCompleted is called after every event in a run completes.
type WorkflowCompleted interface {
	OnWorkflowCompleted(ctx context.Context, r *workflow.Run, elapsed time.Duration) error
}

// WorkflowFailed is called when a run fails terminally.
type WorkflowFailed interface {
	OnWorkflowFailed(ctx context.Context, r *workflow.Run, err error) error
}

// WorkflowReset is called when a run is reset (cancelled and discarded).
type WorkflowReset interface {
	OnWorkflowReset(ctx context.Context, r *workflow.Run) error
}

// Settled is called once after the completion linger elapses: the
// presentation hint to move from progress to completion view.
type Settled interface {
	OnSettled(ctx context.Context, r *workflow.Run) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
