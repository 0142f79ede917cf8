// Package latency provides pluggable simulated-latency profiles for ledger
// event steps. All profiles are safe for concurrent use (they are stateless).
package latency

import (
	"math/rand/v2"
	"time"
)

// Profile computes the simulated delay for a named ledger event.
type Profile interface {
	// Delay returns how long the driver suspends while the named event
	// is processing.
	Delay(eventName string) time.Duration
}

// ──────────────────────────────────────────────────
// Fixed
// ──────────────────────────────────────────────────

// Fixed always returns the same delay regardless of event name.
type Fixed struct {
	Interval time.Duration
}

// NewFixed creates a fixed latency profile.
func NewFixed(interval time.Duration) *Fixed {
	return &Fixed{Interval: interval}
}

// Delay returns the fixed interval.
func (f *Fixed) Delay(_ string) time.Duration {
	return f.Interval
}

// ──────────────────────────────────────────────────
// Jittered
// ──────────────────────────────────────────────────

// Jittered returns Base plus a random duration in [0, Jitter).
// This models external latency without a real backend.
type Jittered struct {
	Base   time.Duration
	Jitter time.Duration
}

// NewJittered creates a jittered latency profile.
func NewJittered(base, jitter time.Duration) *Jittered {
	return &Jittered{Base: base, Jitter: jitter}
}

// Delay returns Base + rand[0, Jitter).
func (j *Jittered) Delay(_ string) time.Duration {
	if j.Jitter <= 0 {
		return j.Base
	}
	return j.Base + time.Duration(rand.Int64N(int64(j.Jitter))) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// ──────────────────────────────────────────────────
// PerEvent
// ──────────────────────────────────────────────────

// PerEvent selects a profile by event name, falling back to Default.
// Bulk/batch-style events typically carry longer overrides.
type PerEvent struct {
	Default   Profile
	Overrides map[string]Profile
}

// NewPerEvent creates a per-event latency profile.
func NewPerEvent(def Profile, overrides map[string]Profile) *PerEvent {
	return &PerEvent{Default: def, Overrides: overrides}
}

// Delay returns the override delay for the event, or the default.
func (p *PerEvent) Delay(eventName string) time.Duration {
	if o, ok := p.Overrides[eventName]; ok {
		return o.Delay(eventName)
	}
	if p.Default == nil {
		return 0
	}
	return p.Default.Delay(eventName)
}

// ──────────────────────────────────────────────────
// Zero
// ──────────────────────────────────────────────────

// Zero returns a profile with no delay. Use in tests.
func Zero() Profile {
	return &Fixed{}
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultProfile returns the default simulated latency used by the driver:
// 700ms base with up to 900ms of jitter per event.
func DefaultProfile() Profile {
	return NewJittered(700*time.Millisecond, 900*time.Millisecond)
}
