// Package audit is a docledger extension that bridges run lifecycle
// events to an immutable audit trail backend.
//
// Every run and ledger-event hook emits a structured audit event
// through the [Recorder] interface. The extension assigns severity
// levels (info for normal transitions, warning for failed events,
// critical for terminal run failures) and metadata (flow kind, event
// name, elapsed time, errors).
//
// # Usage
//
//	audit.New(audit.RecorderFunc(func(ctx context.Context, evt *audit.Event) error {
//	    return trail.Append(ctx, evt.Action, evt.ResourceID, evt.Metadata)
//	}))
//
// # Selective filtering
//
//	audit.New(recorder,
//	    audit.WithActions(
//	        audit.ActionRunFailed,
//	        audit.ActionEventFailed,
//	    ),
//	)
package audit
