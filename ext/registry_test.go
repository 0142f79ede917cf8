package ext_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/BetoIII/docledger/ext"
	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// ──────────────────────────────────────────────────
// Test extensions
// ──────────────────────────────────────────────────

// allHooksExt implements every lifecycle hook for testing.
type allHooksExt struct {
	calls []string
}

func (e *allHooksExt) Name() string { return "all-hooks" }

func (e *allHooksExt) OnWorkflowStarted(_ context.Context, _ *workflow.Run) error {
	e.calls = append(e.calls, "OnWorkflowStarted")
	return nil
}

func (e *allHooksExt) OnEventProcessing(_ context.Context, _ *workflow.Run, _ *ledger.Event) error {
	e.calls = append(e.calls, "OnEventProcessing")
	return nil
}

func (e *allHooksExt) OnEventCompleted(_ context.Context, _ *workflow.Run, _ *ledger.Event, _ time.Duration) error {
	e.calls = append(e.calls, "OnEventCompleted")
	return nil
}

func (e *allHooksExt) OnEventFailed(_ context.Context, _ *workflow.Run, _ *ledger.Event, _ error) error {
	e.calls = append(e.calls, "OnEventFailed")
	return nil
}

func (e *allHooksExt) OnMilestone(_ context.Context, _ *workflow.Run, _ *ledger.Event, _ workflow.Notice) error {
	e.calls = append(e.calls, "OnMilestone")
	return nil
}

func (e *allHooksExt) OnWorkflowCompleted(_ context.Context, _ *workflow.Run, _ time.Duration) error {
	e.calls = append(e.calls, "OnWorkflowCompleted")
	return nil
}

func (e *allHooksExt) OnWorkflowFailed(_ context.Context, _ *workflow.Run, _ error) error {
	e.calls = append(e.calls, "OnWorkflowFailed")
	return nil
}

func (e *allHooksExt) OnWorkflowReset(_ context.Context, _ *workflow.Run) error {
	e.calls = append(e.calls, "OnWorkflowReset")
	return nil
}

func (e *allHooksExt) OnSettled(_ context.Context, _ *workflow.Run) error {
	e.calls = append(e.calls, "OnSettled")
	return nil
}

func (e *allHooksExt) OnShutdown(_ context.Context) error {
	e.calls = append(e.calls, "OnShutdown")
	return nil
}

// milestoneOnlyExt only implements the milestone hook.
type milestoneOnlyExt struct {
	calls []string
}

func (e *milestoneOnlyExt) Name() string { return "milestone-only" }

func (e *milestoneOnlyExt) OnMilestone(_ context.Context, _ *workflow.Run, _ *ledger.Event, _ workflow.Notice) error {
	e.calls = append(e.calls, "OnMilestone")
	return nil
}

// failingExt returns errors from hooks.
type failingExt struct{}

func (e *failingExt) Name() string { return "failing" }

func (e *failingExt) OnWorkflowStarted(_ context.Context, _ *workflow.Run) error {
	return errors.New("boom")
}

func (e *failingExt) OnShutdown(_ context.Context) error {
	return errors.New("shutdown boom")
}

// ──────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────

func TestRegistry_RegisterDiscoversInterfaces(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	if got := len(r.Extensions()); got != 1 {
		t.Fatalf("expected 1 extension, got %d", got)
	}
	if got := r.Extensions()[0].Name(); got != "all-hooks" {
		t.Fatalf("expected name 'all-hooks', got %q", got)
	}
}

func TestRegistry_EmitFiresOnlyImplementors(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	mo := &milestoneOnlyExt{}
	r.Register(all)
	r.Register(mo)

	ctx := context.Background()
	run := &workflow.Run{Kind: workflow.KindRegistration}
	evt := ledger.NewPending("OwnershipTokenMinted", nil)

	// Both implement OnMilestone → both called.
	r.EmitMilestone(ctx, run, &evt, workflow.Notice{Title: "minted"})
	if len(all.calls) != 1 || all.calls[0] != "OnMilestone" {
		t.Fatalf("all: expected [OnMilestone], got %v", all.calls)
	}
	if len(mo.calls) != 1 || mo.calls[0] != "OnMilestone" {
		t.Fatalf("mo: expected [OnMilestone], got %v", mo.calls)
	}

	// Only all implements OnWorkflowStarted → mo not called.
	r.EmitWorkflowStarted(ctx, run)
	if len(all.calls) != 2 || all.calls[1] != "OnWorkflowStarted" {
		t.Fatalf("all: expected OnWorkflowStarted as 2nd, got %v", all.calls)
	}
	if len(mo.calls) != 1 {
		t.Fatalf("mo: should still have 1 call, got %v", mo.calls)
	}
}

func TestRegistry_AllRunHooksFire(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	ctx := context.Background()
	run := &workflow.Run{Kind: workflow.KindExternalShare}
	evt := ledger.NewPending("ShareInvitationCreated", nil)

	r.EmitWorkflowStarted(ctx, run)
	r.EmitEventProcessing(ctx, run, &evt)
	r.EmitEventCompleted(ctx, run, &evt, time.Second)
	r.EmitEventFailed(ctx, run, &evt, errors.New("step fail"))
	r.EmitMilestone(ctx, run, &evt, workflow.Notice{})
	r.EmitWorkflowCompleted(ctx, run, 2*time.Second)
	r.EmitWorkflowFailed(ctx, run, errors.New("run fail"))
	r.EmitWorkflowReset(ctx, run)
	r.EmitSettled(ctx, run)
	r.EmitShutdown(ctx)

	expected := []string{
		"OnWorkflowStarted", "OnEventProcessing", "OnEventCompleted",
		"OnEventFailed", "OnMilestone", "OnWorkflowCompleted",
		"OnWorkflowFailed", "OnWorkflowReset", "OnSettled", "OnShutdown",
	}
	if len(all.calls) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(all.calls), all.calls)
	}
	for i, want := range expected {
		if all.calls[i] != want {
			t.Errorf("call[%d] = %q, want %q", i, all.calls[i], want)
		}
	}
}

func TestRegistry_HookErrorsLoggedNotPropagated(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	failing := &failingExt{}
	all := &allHooksExt{}

	// Register failing first, then all-hooks. Both should be called.
	r.Register(failing)
	r.Register(all)

	ctx := context.Background()
	run := &workflow.Run{Kind: workflow.KindLicensing}

	// No panic, no error propagation. allHooksExt should still fire.
	r.EmitWorkflowStarted(ctx, run)

	if len(all.calls) != 1 || all.calls[0] != "OnWorkflowStarted" {
		t.Fatalf("all: expected [OnWorkflowStarted] despite failing ext, got %v", all.calls)
	}
}

func TestRegistry_EmptyRegistryNoOp(_ *testing.T) {
	r := ext.NewRegistry(slog.Default())
	ctx := context.Background()
	run := &workflow.Run{}
	evt := ledger.NewPending("x", nil)

	// None of these should panic or error.
	r.EmitWorkflowStarted(ctx, run)
	r.EmitEventProcessing(ctx, run, &evt)
	r.EmitEventCompleted(ctx, run, &evt, time.Second)
	r.EmitEventFailed(ctx, run, &evt, errors.New("x"))
	r.EmitMilestone(ctx, run, &evt, workflow.Notice{})
	r.EmitWorkflowCompleted(ctx, run, time.Second)
	r.EmitWorkflowFailed(ctx, run, errors.New("x"))
	r.EmitWorkflowReset(ctx, run)
	r.EmitSettled(ctx, run)
	r.EmitShutdown(ctx)
}

func TestRegistry_MultipleExtensionsOrderPreserved(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	ext1 := &allHooksExt{}
	ext2 := &allHooksExt{}
	r.Register(ext1)
	r.Register(ext2)

	ctx := context.Background()
	r.EmitWorkflowStarted(ctx, &workflow.Run{})

	// Both should be called.
	if len(ext1.calls) != 1 {
		t.Errorf("ext1: expected 1 call, got %d", len(ext1.calls))
	}
	if len(ext2.calls) != 1 {
		t.Errorf("ext2: expected 1 call, got %d", len(ext2.calls))
	}
}
