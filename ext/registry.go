package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// Registry satisfies workflow.RunEmitter, so the driver can publish
// straight into the extension system.
var _ workflow.RunEmitter = (*Registry)(nil)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type workflowStartedEntry struct {
	name string
	hook WorkflowStarted
}

type eventProcessingEntry struct {
	name string
	hook EventProcessing
}

type eventCompletedEntry struct {
	name string
	hook EventCompleted
}

type eventFailedEntry struct {
	name string
	hook EventFailed
}

type milestoneEntry struct {
	name string
	hook Milestone
}

type workflowCompletedEntry struct {
	name string
	hook WorkflowCompleted
}

type workflowFailedEntry struct {
	name string
	hook WorkflowFailed
}

type workflowResetEntry struct {
	name string
	hook WorkflowReset
}

type settledEntry struct {
	name string
	hook Settled
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	workflowStarted   []workflowStartedEntry
	eventProcessing   []eventProcessingEntry
	eventCompleted    []eventCompletedEntry
	eventFailed       []eventFailedEntry
	milestone         []milestoneEntry
	workflowCompleted []workflowCompletedEntry
	workflowFailed    []workflowFailedEntry
	workflowReset     []workflowResetEntry
	settled           []settledEntry
	shutdown          []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(WorkflowStarted); ok {
		r.workflowStarted = append(r.workflowStarted, workflowStartedEntry{name, h})
	}
	if h, ok := e.(EventProcessing); ok {
		r.eventProcessing = append(r.eventProcessing, eventProcessingEntry{name, h})
	}
	if h, ok := e.(EventCompleted); ok {
		r.eventCompleted = append(r.eventCompleted, eventCompletedEntry{name, h})
	}
	if h, ok := e.(EventFailed); ok {
		r.eventFailed = append(r.eventFailed, eventFailedEntry{name, h})
	}
	if h, ok := e.(Milestone); ok {
		r.milestone = append(r.milestone, milestoneEntry{name, h})
	}
	if h, ok := e.(WorkflowCompleted); ok {
		r.workflowCompleted = append(r.workflowCompleted, workflowCompletedEntry{name, h})
	}
	if h, ok := e.(WorkflowFailed); ok {
		r.workflowFailed = append(r.workflowFailed, workflowFailedEntry{name, h})
	}
	if h, ok := e.(WorkflowReset); ok {
		r.workflowReset = append(r.workflowReset, workflowResetEntry{name, h})
	}
	if h, ok := e.(Settled); ok {
		r.settled = append(r.settled, settledEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Run event emitters
// ──────────────────────────────────────────────────

// EmitWorkflowStarted notifies all extensions that implement WorkflowStarted.
func (r *Registry) EmitWorkflowStarted(ctx context.Context, run *workflow.Run) {
	for _, e := range r.workflowStarted {
		if err := e.hook.OnWorkflowStarted(ctx, run); err != nil {
			r.logHookError("OnWorkflowStarted", e.name, err)
		}
	}
}

// EmitEventProcessing notifies all extensions that implement EventProcessing.
func (r *Registry) EmitEventProcessing(ctx context.Context, run *workflow.Run, evt *ledger.Event) {
	for _, e := range r.eventProcessing {
		if err := e.hook.OnEventProcessing(ctx, run, evt); err != nil {
			r.logHookError("OnEventProcessing", e.name, err)
		}
	}
}

// EmitEventCompleted notifies all extensions that implement EventCompleted.
func (r *Registry) EmitEventCompleted(ctx context.Context, run *workflow.Run, evt *ledger.Event, elapsed time.Duration) {
	for _, e := range r.eventCompleted {
		if err := e.hook.OnEventCompleted(ctx, run, evt, elapsed); err != nil {
			r.logHookError("OnEventCompleted", e.name, err)
		}
	}
}

// EmitEventFailed notifies all extensions that implement EventFailed.
func (r *Registry) EmitEventFailed(ctx context.Context, run *workflow.Run, evt *ledger.Event, evtErr error) {
	for _, e := range r.eventFailed {
		if err := e.hook.OnEventFailed(ctx, run, evt, evtErr); err != nil {
			r.logHookError("OnEventFailed", e.name, err)
		}
	}
}

// EmitMilestone notifies all extensions that implement Milestone.
func (r *Registry) EmitMilestone(ctx context.Context, run *workflow.Run, evt *ledger.Event, notice workflow.Notice) {
	for _, e := range r.milestone {
		if err := e.hook.OnMilestone(ctx, run, evt, notice); err != nil {
			r.logHookError("OnMilestone", e.name, err)
		}
	}
}

// EmitWorkflowCompleted notifies all extensions that implement WorkflowCompleted.
func (r *Registry) EmitWorkflowCompleted(ctx context.Context, run *workflow.Run, elapsed time.Duration) {
	for _, e := range r.workflowCompleted {
		if err := e.hook.OnWorkflowCompleted(ctx, run, elapsed); err != nil {
			r.logHookError("OnWorkflowCompleted", e.name, err)
		}
	}
}

// EmitWorkflowFailed notifies all extensions that implement WorkflowFailed.
func (r *Registry) EmitWorkflowFailed(ctx context.Context, run *workflow.Run, runErr error) {
	for _, e := range r.workflowFailed {
		if err := e.hook.OnWorkflowFailed(ctx, run, runErr); err != nil {
			r.logHookError("OnWorkflowFailed", e.name, err)
		}
	}
}

// EmitWorkflowReset notifies all extensions that implement WorkflowReset.
func (r *Registry) EmitWorkflowReset(ctx context.Context, run *workflow.Run) {
	for _, e := range r.workflowReset {
		if err := e.hook.OnWorkflowReset(ctx, run); err != nil {
			r.logHookError("OnWorkflowReset", e.name, err)
		}
	}
}

// EmitSettled notifies all extensions that implement Settled.
func (r *Registry) EmitSettled(ctx context.Context, run *workflow.Run) {
	for _, e := range r.settled {
		if err := e.hook.OnSettled(ctx, run); err != nil {
			r.logHookError("OnSettled", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block the run.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
