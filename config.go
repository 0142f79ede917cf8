package docledger

import "time"

// Config holds configuration for the Ledger.
type Config struct {
	// CompletionLinger is how long after the last event completes before
	// the settled presentation hint is emitted. This gives observers time
	// to render the final completed event before switching views.
	CompletionLinger time.Duration

	// StepTimeout bounds every real backend step action. Simulated delays
	// are not subject to it.
	StepTimeout time.Duration

	// PendingTTL is how long a stashed pending document survives before
	// the janitor sweeps it.
	PendingTTL time.Duration

	// ShutdownTimeout is the maximum time to wait for in-flight flows to
	// settle during Stop.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CompletionLinger: 1500 * time.Millisecond,
		StepTimeout:      30 * time.Second,
		PendingTTL:       24 * time.Hour,
		ShutdownTimeout:  10 * time.Second,
	}
}
