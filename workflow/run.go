package workflow

import (
	"time"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/ledger"
)

// RunState represents the lifecycle state of a flow run.
type RunState string

const (
	// RunStateActive means the driver is currently stepping through events.
	RunStateActive RunState = "active"
	// RunStateCompleted means every event reached completed.
	RunStateCompleted RunState = "completed"
	// RunStateFailed means a step errored; the run is terminal and
	// distinguishable from success.
	RunStateFailed RunState = "failed"
)

// Run represents a single execution of a flow: the ordered ledger event
// sequence plus the accumulated domain results. The driver exclusively
// mutates a Run during its lifetime; readers receive clones via Snapshot.
type Run struct {
	docledger.Entity

	ID         id.RunID      `json:"id"`
	Kind       Kind          `json:"kind"`
	DocumentID id.DocumentID `json:"document_id"`
	State      RunState      `json:"state"`

	// CurrentStep is the index of the event being processed, or the
	// event count once the run completes.
	CurrentStep int `json:"current_step"`

	Events []ledger.Event `json:"events"`

	// Fields holds flow-specific accumulated results (record ids, member
	// counts, prices). Populated incrementally as events complete and
	// frozen once the run is complete.
	Fields map[string]any `json:"fields,omitempty"`

	// Generation is the epoch token captured by every scheduled
	// continuation of this run. Stale continuations whose generation no
	// longer matches the driver's current generation perform no mutation.
	Generation uint64 `json:"generation"`

	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Active reports whether the driver is still stepping through events.
func (r *Run) Active() bool { return r.State == RunStateActive }

// Complete reports whether every event reached completed.
func (r *Run) Complete() bool { return r.State == RunStateCompleted }

// Failed reports whether the run terminated on a step error.
func (r *Run) Failed() bool { return r.State == RunStateFailed }

// Clone returns a deep copy of the run, safe to hand to readers while
// the driver keeps mutating the original.
func (r *Run) Clone() *Run {
	cp := *r
	cp.Events = make([]ledger.Event, len(r.Events))
	for i, e := range r.Events {
		cp.Events[i] = e.Clone()
	}
	if r.Fields != nil {
		cp.Fields = make(map[string]any, len(r.Fields))
		for k, v := range r.Fields {
			cp.Fields[k] = v
		}
	}
	if r.CompletedAt != nil {
		ts := *r.CompletedAt
		cp.CompletedAt = &ts
	}
	return &cp
}

// SetField records an accumulated domain result on the run.
func (r *Run) SetField(key string, value any) {
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	r.Fields[key] = value
}

// AppendField appends value to the named slice field, creating it if
// absent. Used for history-style results such as past share instances.
func (r *Run) AppendField(key string, value any) {
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	existing, _ := r.Fields[key].([]any)
	r.Fields[key] = append(existing, value)
}
