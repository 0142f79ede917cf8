// Package janitor prunes expired pending documents on a cron schedule.
// Anonymous actors stash one document each; stashes that outlive the
// configured TTL without being resumed are swept away.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/BetoIII/docledger/session"
)

// DefaultSchedule sweeps once per hour.
const DefaultSchedule = "@every 1h"

// Option configures a Janitor.
type Option func(*Janitor)

// WithSchedule sets the sweep schedule. Standard 5-field cron
// expressions and descriptors like "@every 30m" are accepted.
func WithSchedule(expr string) Option {
	return func(j *Janitor) { j.schedule = expr }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Janitor) { j.logger = logger }
}

// Janitor owns the sweep loop. Create one with New, then Start it;
// Stop waits for any in-flight sweep to finish.
type Janitor struct {
	pendings session.PendingStore
	ttl      time.Duration
	schedule string
	logger   *slog.Logger

	cron    *cronlib.Cron
	entryID cronlib.EntryID
}

// New creates a Janitor sweeping the given store with the given TTL.
func New(pendings session.PendingStore, ttl time.Duration, opts ...Option) *Janitor {
	j := &Janitor{
		pendings: pendings,
		ttl:      ttl,
		schedule: DefaultSchedule,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start schedules the sweep and begins running it.
func (j *Janitor) Start() error {
	if j.cron != nil {
		return nil // already started
	}

	c := cronlib.New()
	entryID, err := c.AddFunc(j.schedule, func() {
		if _, err := j.Sweep(context.Background()); err != nil {
			j.logger.Error("pending sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("janitor: invalid schedule %q: %w", j.schedule, err)
	}

	j.cron = c
	j.entryID = entryID
	c.Start()
	j.logger.Info("janitor started", "schedule", j.schedule, "ttl", j.ttl)
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
	j.cron = nil
	j.logger.Info("janitor stopped")
}

// Sweep runs one pass immediately, independent of the schedule.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	removed, err := j.pendings.SweepPending(ctx, j.ttl)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		j.logger.Info("swept expired pending documents", "removed", removed)
	}
	return removed, nil
}
