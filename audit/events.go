package audit

// Audit event actions. Each constant corresponds to one ext lifecycle
// hook and becomes the Action field of the audit event.
const (
	ActionRunStarted     = "run.started"
	ActionEventCompleted = "run.event_completed"
	ActionEventFailed    = "run.event_failed"
	ActionMilestone      = "run.milestone"
	ActionRunCompleted   = "run.completed"
	ActionRunFailed      = "run.failed"
	ActionRunReset       = "run.reset"
	ActionRunSettled     = "run.settled"
)

// CategoryRun groups every run lifecycle action.
const CategoryRun = "docledger.run"

// ResourceRun is the Resource field for run audit events.
const ResourceRun = "workflow_run"

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionRunStarted,
		ActionEventCompleted,
		ActionEventFailed,
		ActionMilestone,
		ActionRunCompleted,
		ActionRunFailed,
		ActionRunReset,
		ActionRunSettled,
	}
}
