// Package ext defines the extension system for docledger.
//
// Extensions are notified of run lifecycle events and can react to
// them — streaming progress, posting notifications, recording metrics,
// maintaining the sharing aggregate. Each lifecycle hook is a separate
// interface so extensions opt in only to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnEventCompleted(ctx context.Context, r *workflow.Run, evt *ledger.Event, elapsed time.Duration) error {
//	    log.Printf("event %s completed in %s", evt.Name, elapsed)
//	    return nil
//	}
//
// # Run Lifecycle Hooks
//
//   - [WorkflowStarted] — a flow run began
//   - [EventProcessing] — a ledger event entered processing
//   - [EventCompleted] — a ledger event completed
//   - [EventFailed] — a ledger event's step action failed
//   - [Milestone] — a completed event carries a user-visible notice
//   - [WorkflowCompleted] — every event in the run completed
//   - [WorkflowFailed] — the run failed terminally
//   - [WorkflowReset] — the run was cancelled and discarded
//   - [Settled] — the completion linger elapsed
//
// # Other Hooks
//
//   - [Shutdown] — the ledger is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface, and itself satisfies
// workflow.RunEmitter so the driver publishes straight into it.
package ext
