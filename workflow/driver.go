package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/latency"
	"github.com/BetoIII/docledger/ledger"
)

// RunEmitter emits run-level lifecycle events. This interface is
// satisfied by ext.Registry (via an adapter in the engine package) to
// break the import cycle between workflow and ext.
type RunEmitter interface {
	EmitWorkflowStarted(ctx context.Context, run *Run)
	EmitEventProcessing(ctx context.Context, run *Run, evt *ledger.Event)
	EmitEventCompleted(ctx context.Context, run *Run, evt *ledger.Event, elapsed time.Duration)
	EmitEventFailed(ctx context.Context, run *Run, evt *ledger.Event, err error)
	EmitMilestone(ctx context.Context, run *Run, evt *ledger.Event, notice Notice)
	EmitWorkflowCompleted(ctx context.Context, run *Run, elapsed time.Duration)
	EmitWorkflowFailed(ctx context.Context, run *Run, err error)
	EmitWorkflowReset(ctx context.Context, run *Run)
	EmitSettled(ctx context.Context, run *Run)
}

// ActionWrapper wraps a StepAction with cross-cutting logic (logging,
// recovery, timeout, tracing). Installed by the engine package from the
// middleware chain.
type ActionWrapper func(ctx context.Context, run *Run, evt *ledger.Event, action StepAction) error

// handle tracks one live (or most recently finished) run of a kind.
type handle struct {
	run    *Run
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	// settled guards the one-shot settled presentation hint.
	settled bool
}

// finish closes the done channel exactly once.
func (h *handle) finish() {
	h.once.Do(func() { close(h.done) })
}

// Handle is the caller-facing view of a started run. Start does not
// block until completion; callers observe progress via Snapshot (or the
// stream broker) and can wait on Done.
type Handle struct {
	driver *Driver
	inner  *handle
}

// RunID returns the run's identifier.
func (h *Handle) RunID() id.RunID { return h.inner.run.ID }

// Kind returns the run's flow kind.
func (h *Handle) Kind() Kind { return h.inner.run.Kind }

// Done is closed when the run settles, fails, or is reset.
func (h *Handle) Done() <-chan struct{} { return h.inner.done }

// Snapshot returns a deep copy of the run's current state.
func (h *Handle) Snapshot() *Run {
	return h.driver.snapshotHandle(h.inner)
}

// Driver orchestrates flow execution: compiling programs, stepping
// event sequences through their status lifecycle with simulated latency,
// accumulating results, and publishing progress after every transition.
//
// One run per kind is live at a time. Invoking a kind while its run is
// still active restarts the flow: the in-flight run is cancelled via a
// generation bump and a fresh run begins. This is a deliberate policy,
// not an accident — callers that need rejection instead can check
// Snapshot before starting.
type Driver struct {
	registry    *Registry
	store       Store
	emitter     RunEmitter
	logger      *slog.Logger
	latency     latency.Profile
	linger      time.Duration
	stepTimeout time.Duration
	wrap        ActionWrapper

	mu     sync.Mutex
	gens   map[Kind]uint64
	active map[Kind]*handle
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithDefaultLatency sets the simulated latency profile used by flows
// that carry none of their own.
func WithDefaultLatency(p latency.Profile) DriverOption {
	return func(d *Driver) { d.latency = p }
}

// WithCompletionLinger sets the delay between the last event completing
// and the settled presentation hint.
func WithCompletionLinger(linger time.Duration) DriverOption {
	return func(d *Driver) { d.linger = linger }
}

// WithStepTimeout bounds real backend step actions.
func WithStepTimeout(timeout time.Duration) DriverOption {
	return func(d *Driver) { d.stepTimeout = timeout }
}

// WithActionWrapper installs the middleware chain around step actions.
func WithActionWrapper(wrap ActionWrapper) DriverOption {
	return func(d *Driver) { d.wrap = wrap }
}

// NewDriver creates a flow driver.
func NewDriver(registry *Registry, store Store, emitter RunEmitter, logger *slog.Logger, opts ...DriverOption) *Driver {
	d := &Driver{
		registry:    registry,
		store:       store,
		emitter:     emitter,
		logger:      logger,
		latency:     latency.DefaultProfile(),
		linger:      1500 * time.Millisecond,
		stepTimeout: 30 * time.Second,
		gens:        make(map[Kind]uint64),
		active:      make(map[Kind]*handle),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the flow registry.
func (d *Driver) Registry() *Registry { return d.registry }

// Start starts a flow run with typed parameters. The parameters are
// JSON-marshaled for the registry's compiler.
func Start[P any](ctx context.Context, d *Driver, kind Kind, params P) (*Handle, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params for flow %q: %w", kind, err)
	}
	return d.StartRaw(ctx, kind, raw)
}

// StartRaw starts a flow run with pre-serialized JSON parameters.
// Precondition failures are returned synchronously before any state is
// created or published.
func (d *Driver) StartRaw(ctx context.Context, kind Kind, raw []byte) (*Handle, error) {
	prog, err := d.registry.compile(kind, raw)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	run := &Run{
		Entity:     docledger.NewEntity(),
		ID:         id.NewRunID(),
		Kind:       kind,
		DocumentID: prog.documentID,
		State:      RunStateActive,
		Events:     prog.events,
		Fields:     prog.fields,
		StartedAt:  now,
	}

	// Detach from the caller's cancellation: a page navigation must not
	// kill the flow. Reset is the only cancellation path.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	d.mu.Lock()
	if prev, ok := d.active[kind]; ok {
		// Restart policy: discard the in-flight run.
		prev.cancel()
		if prev.run.Active() {
			d.logger.Info("restarting active flow",
				slog.String("kind", string(kind)),
				slog.String("discarded_run_id", prev.run.ID.String()),
			)
		}
	}
	d.gens[kind]++
	gen := d.gens[kind]
	run.Generation = gen
	h := &handle{run: run, gen: gen, cancel: cancel, done: make(chan struct{})}
	d.active[kind] = h
	d.mu.Unlock()

	if err := d.store.CreateRun(ctx, run.Clone()); err != nil {
		cancel()
		d.mu.Lock()
		if d.active[kind] == h {
			delete(d.active, kind)
		}
		d.mu.Unlock()
		return nil, fmt.Errorf("create run for flow %q: %w", kind, err)
	}

	d.emitter.EmitWorkflowStarted(runCtx, run.Clone())

	go d.stepLoop(runCtx, h, prog)

	return &Handle{driver: d, inner: h}, nil
}

// Snapshot returns a deep copy of the current (or most recently
// finished) run for the given kind.
func (d *Driver) Snapshot(kind Kind) (*Run, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.active[kind]
	if !ok {
		return nil, false
	}
	return h.run.Clone(), true
}

// snapshotHandle clones a specific handle's run under the driver lock.
func (d *Driver) snapshotHandle(h *handle) *Run {
	d.mu.Lock()
	defer d.mu.Unlock()
	return h.run.Clone()
}

// Reset returns the kind to its pre-invocation shape. Safe to call at
// any time, including mid-run: the generation bump invalidates every
// scheduled continuation of the discarded run, so a stale timer cannot
// resurrect it.
func (d *Driver) Reset(ctx context.Context, kind Kind) {
	d.mu.Lock()
	h, ok := d.active[kind]
	if ok {
		d.gens[kind]++
		h.cancel()
		delete(d.active, kind)
	}
	d.mu.Unlock()

	if ok {
		d.emitter.EmitWorkflowReset(ctx, h.run.Clone())
		h.finish()
	}
}

// ResetAll resets every kind with live state. Used during shutdown.
func (d *Driver) ResetAll(ctx context.Context) {
	for _, kind := range Kinds() {
		d.Reset(ctx, kind)
	}
}

// ActiveKinds returns the kinds that currently have an active run.
func (d *Driver) ActiveKinds() []Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	var kinds []Kind
	for k, h := range d.active {
		if h.run.Active() {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// mutate applies fn to the handle's run iff the handle's generation is
// still current, returning the post-mutation clone. This is the
// generation-token check every scheduled continuation goes through: a
// reset (or restart) bumps the generation, so late timer fires observe a
// mismatch and leave the discarded state untouched.
func (d *Driver) mutate(h *handle, fn func(run *Run)) (*Run, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gens[h.run.Kind] != h.gen {
		return nil, false
	}
	fn(h.run)
	h.run.Touch()
	return h.run.Clone(), true
}

// persist writes a run snapshot; store failures are logged, not fatal —
// the in-memory state remains authoritative for observers.
func (d *Driver) persist(ctx context.Context, snap *Run) {
	if err := d.store.UpdateRun(ctx, snap); err != nil {
		d.logger.Error("failed to persist run",
			slog.String("run_id", snap.ID.String()),
			slog.String("kind", string(snap.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

// stepLoop advances the run through its event sequence. It is the only
// goroutine that mutates the run, so event transitions are strictly
// sequential and at most one event is processing at any instant.
func (d *Driver) stepLoop(ctx context.Context, h *handle, prog *program) {
	defer h.finish()

	start := time.Now()

	profile := prog.latency
	if profile == nil {
		profile = d.latency
	}

	for i := range len(prog.events) {
		snap, ok := d.mutate(h, func(run *Run) {
			now := time.Now().UTC()
			run.CurrentStep = i
			run.Events[i].Status = ledger.StatusProcessing
			run.Events[i].Timestamp = &now
		})
		if !ok {
			return
		}
		d.persist(ctx, snap)
		d.emitter.EmitEventProcessing(ctx, snap, &snap.Events[i])

		name := snap.Events[i].Name
		stepStart := time.Now()

		if action, exists := prog.actions[name]; exists {
			if err := d.runAction(ctx, h, i, action); err != nil {
				if ctx.Err() != nil {
					return
				}
				d.failStep(ctx, h, i, err)
				return
			}
		} else {
			select {
			case <-ctx.Done():
				return
			case <-time.After(profile.Delay(name)):
			}
		}

		snap, ok = d.mutate(h, func(run *Run) {
			now := time.Now().UTC()
			run.Events[i].Status = ledger.StatusCompleted
			run.Events[i].Timestamp = &now
			if prog.accumulate != nil {
				prog.accumulate(run, &run.Events[i])
			}
		})
		if !ok {
			return
		}
		d.persist(ctx, snap)
		d.emitter.EmitEventCompleted(ctx, snap, &snap.Events[i], time.Since(stepStart))

		if prog.milestone != nil {
			if notice, hit := prog.milestone(&snap.Events[i]); hit {
				// Milestone emission must not block progression; the
				// toast extension buffers and drops, never stalls.
				d.emitter.EmitMilestone(ctx, snap, &snap.Events[i], notice)
			}
		}
	}

	snap, ok := d.mutate(h, func(run *Run) {
		if prog.finalize != nil {
			prog.finalize(run)
		}
		now := time.Now().UTC()
		run.State = RunStateCompleted
		run.CurrentStep = len(run.Events)
		run.CompletedAt = &now
	})
	if !ok {
		return
	}
	d.persist(ctx, snap)
	d.emitter.EmitWorkflowCompleted(ctx, snap, time.Since(start))

	// Presentation hint: after a short linger, tell observers to move
	// from the progress view to the completion view. One-shot even if
	// the driver is invoked again.
	select {
	case <-ctx.Done():
		return
	case <-time.After(d.linger):
	}
	if settled, ok := d.settle(h); ok {
		d.emitter.EmitSettled(ctx, settled)
	}
}

// settle marks the handle settled exactly once under the generation guard.
func (d *Driver) settle(h *handle) (*Run, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gens[h.run.Kind] != h.gen || h.settled {
		return nil, false
	}
	h.settled = true
	return h.run.Clone(), true
}

// runAction executes a real backend step action through the middleware
// chain with the mandatory timeout bound.
func (d *Driver) runAction(ctx context.Context, h *handle, i int, action StepAction) error {
	actx, cancel := context.WithTimeout(ctx, d.stepTimeout)
	defer cancel()

	snap := d.snapshotHandle(h)
	evt := &snap.Events[i]

	if d.wrap != nil {
		return d.wrap(actx, snap, evt, action)
	}
	return action(actx, snap, evt)
}

// failStep marks event i as errored and the run as failed. Prior
// completed events remain completed; unexecuted events stay pending.
func (d *Driver) failStep(ctx context.Context, h *handle, i int, stepErr error) {
	snap, ok := d.mutate(h, func(run *Run) {
		now := time.Now().UTC()
		run.Events[i].Status = ledger.StatusError
		run.Events[i].Timestamp = &now
		run.Events[i].MergeDetails(map[string]any{"error": stepErr.Error()})
		run.State = RunStateFailed
		run.Error = stepErr.Error()
		run.CompletedAt = &now
	})
	if !ok {
		return
	}
	d.persist(ctx, snap)
	d.emitter.EmitEventFailed(ctx, snap, &snap.Events[i], stepErr)
	d.emitter.EmitWorkflowFailed(ctx, snap, stepErr)
}
