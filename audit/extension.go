package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BetoIII/docledger/ext"
	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// Compile-time interface checks.
var (
	_ ext.Extension         = (*Extension)(nil)
	_ ext.WorkflowStarted   = (*Extension)(nil)
	_ ext.EventCompleted    = (*Extension)(nil)
	_ ext.EventFailed       = (*Extension)(nil)
	_ ext.Milestone         = (*Extension)(nil)
	_ ext.WorkflowCompleted = (*Extension)(nil)
	_ ext.WorkflowFailed    = (*Extension)(nil)
	_ ext.WorkflowReset     = (*Extension)(nil)
	_ ext.Settled           = (*Extension)(nil)
)

// Recorder is the interface audit backends must implement. It is
// defined locally so this package carries no backend dependency —
// callers inject the concrete trail at wiring time.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *Event) error
}

// Event is the audit record emitted for a run lifecycle transition.
type Event struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *Event) error

func (f RecorderFunc) Record(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges run lifecycle events to an audit trail backend.
// Each hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided
// Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit" }

// ── Run lifecycle hooks ─────────────────────────────

// OnWorkflowStarted implements ext.WorkflowStarted.
func (e *Extension) OnWorkflowStarted(ctx context.Context, r *workflow.Run) error {
	return e.record(ctx, ActionRunStarted, SeverityInfo, OutcomeSuccess, r.ID.String(), nil,
		"kind", string(r.Kind),
		"document_id", r.DocumentID.String(),
	)
}

// OnEventCompleted implements ext.EventCompleted.
func (e *Extension) OnEventCompleted(ctx context.Context, r *workflow.Run, evt *ledger.Event, elapsed time.Duration) error {
	return e.record(ctx, ActionEventCompleted, SeverityInfo, OutcomeSuccess, r.ID.String(), nil,
		"kind", string(r.Kind),
		"event_name", evt.Name,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnEventFailed implements ext.EventFailed.
func (e *Extension) OnEventFailed(ctx context.Context, r *workflow.Run, evt *ledger.Event, evtErr error) error {
	return e.record(ctx, ActionEventFailed, SeverityWarning, OutcomeFailure, r.ID.String(), evtErr,
		"kind", string(r.Kind),
		"event_name", evt.Name,
		"current_step", r.CurrentStep,
	)
}

// OnMilestone implements ext.Milestone.
func (e *Extension) OnMilestone(ctx context.Context, r *workflow.Run, evt *ledger.Event, notice workflow.Notice) error {
	return e.record(ctx, ActionMilestone, SeverityInfo, OutcomeSuccess, r.ID.String(), nil,
		"kind", string(r.Kind),
		"event_name", evt.Name,
		"notice_title", notice.Title,
	)
}

// OnWorkflowCompleted implements ext.WorkflowCompleted.
func (e *Extension) OnWorkflowCompleted(ctx context.Context, r *workflow.Run, elapsed time.Duration) error {
	return e.record(ctx, ActionRunCompleted, SeverityInfo, OutcomeSuccess, r.ID.String(), nil,
		"kind", string(r.Kind),
		"document_id", r.DocumentID.String(),
		"event_count", len(r.Events),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnWorkflowFailed implements ext.WorkflowFailed.
func (e *Extension) OnWorkflowFailed(ctx context.Context, r *workflow.Run, runErr error) error {
	return e.record(ctx, ActionRunFailed, SeverityCritical, OutcomeFailure, r.ID.String(), runErr,
		"kind", string(r.Kind),
		"document_id", r.DocumentID.String(),
		"current_step", r.CurrentStep,
	)
}

// OnWorkflowReset implements ext.WorkflowReset.
func (e *Extension) OnWorkflowReset(ctx context.Context, r *workflow.Run) error {
	return e.record(ctx, ActionRunReset, SeverityInfo, OutcomeSuccess, r.ID.String(), nil,
		"kind", string(r.Kind),
		"current_step", r.CurrentStep,
	)
}

// OnSettled implements ext.Settled.
func (e *Extension) OnSettled(ctx context.Context, r *workflow.Run) error {
	return e.record(ctx, ActionRunSettled, SeverityInfo, OutcomeSuccess, r.ID.String(), nil,
		"kind", string(r.Kind),
	)
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome, resourceID string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &Event{
		Action:     action,
		Resource:   ResourceRun,
		Category:   CategoryRun,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit: failed to record event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
