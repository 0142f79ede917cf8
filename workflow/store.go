package workflow

import (
	"context"

	"github.com/BetoIII/docledger/id"
)

// ListOpts filters and paginates run listings.
type ListOpts struct {
	Kind   Kind
	State  RunState
	Limit  int
	Offset int
}

// Store defines the persistence contract for flow runs. The driver
// writes a fresh snapshot after every event transition so observers
// reading through the store see live progress.
type Store interface {
	// CreateRun persists a new run.
	CreateRun(ctx context.Context, run *Run) error

	// UpdateRun persists changes to an existing run.
	UpdateRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, runID id.RunID) (*Run, error)

	// ListRuns returns runs matching the given options.
	ListRuns(ctx context.Context, opts ListOpts) ([]*Run, error)
}
