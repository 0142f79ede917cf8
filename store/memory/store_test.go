package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/session"
	"github.com/BetoIII/docledger/sharing"
	"github.com/BetoIII/docledger/workflow"
)

// ──────────────────────────────────────────────────
// Lifecycle tests
// ──────────────────────────────────────────────────

func TestLifecycle(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"Migrate", func() error { return s.Migrate(ctx) }},
		{"Ping", func() error { return s.Ping(ctx) }},
		{"Close", func() error { return s.Close() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); err != nil {
				t.Fatalf("%s returned error: %v", tt.name, err)
			}
		})
	}
}

// ──────────────────────────────────────────────────
// Workflow Store tests
// ──────────────────────────────────────────────────

func newRun(kind workflow.Kind, state workflow.RunState, startedAt time.Time) *workflow.Run {
	return &workflow.Run{
		Entity:     docledger.NewEntity(),
		ID:         id.NewRunID(),
		Kind:       kind,
		DocumentID: id.NewDocumentID(),
		State:      state,
		Events: []ledger.Event{
			ledger.NewPending("FirstStep", nil),
			ledger.NewPending("SecondStep", nil),
		},
		StartedAt: startedAt,
	}
}

func TestRunCreateAndGet(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	run := newRun(workflow.KindRegistration, workflow.RunStateActive, time.Now().UTC())

	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := s.CreateRun(ctx, run); !errors.Is(err, docledger.ErrRunAlreadyExists) {
		t.Fatalf("duplicate CreateRun: got %v, want %v", err, docledger.ErrRunAlreadyExists)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.ID != run.ID || got.Kind != run.Kind || len(got.Events) != 2 {
		t.Fatalf("GetRun returned %+v", got)
	}

	// The store must hand back copies, not the live object.
	got.Events[0].Status = ledger.StatusCompleted
	again, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if again.Events[0].Status != ledger.StatusPending {
		t.Fatal("mutating a returned run leaked into the store")
	}

	if _, err := s.GetRun(ctx, id.NewRunID()); !errors.Is(err, docledger.ErrRunNotFound) {
		t.Fatalf("missing run: got %v, want %v", err, docledger.ErrRunNotFound)
	}
}

func TestRunUpdate(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	run := newRun(workflow.KindLicensing, workflow.RunStateActive, time.Now().UTC())
	if err := s.UpdateRun(ctx, run); !errors.Is(err, docledger.ErrRunNotFound) {
		t.Fatalf("update before create: got %v, want %v", err, docledger.ErrRunNotFound)
	}

	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	run.State = workflow.RunStateCompleted
	run.CurrentStep = len(run.Events)
	if err := s.UpdateRun(ctx, run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.State != workflow.RunStateCompleted || got.CurrentStep != 2 {
		t.Fatalf("updated run = %+v", got)
	}
}

func TestRunList(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	base := time.Now().UTC()
	runs := []*workflow.Run{
		newRun(workflow.KindRegistration, workflow.RunStateCompleted, base.Add(-3*time.Minute)),
		newRun(workflow.KindRegistration, workflow.RunStateActive, base.Add(-2*time.Minute)),
		newRun(workflow.KindCoopShare, workflow.RunStateActive, base.Add(-time.Minute)),
	}
	for _, r := range runs {
		if err := s.CreateRun(ctx, r); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
	}

	all, err := s.ListRuns(ctx, workflow.ListOpts{})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d runs, want 3", len(all))
	}
	if !all[0].StartedAt.After(all[1].StartedAt) {
		t.Fatal("runs not sorted newest first")
	}

	reg, err := s.ListRuns(ctx, workflow.ListOpts{Kind: workflow.KindRegistration})
	if err != nil {
		t.Fatalf("ListRuns by kind: %v", err)
	}
	if len(reg) != 2 {
		t.Fatalf("got %d registration runs, want 2", len(reg))
	}

	active, err := s.ListRuns(ctx, workflow.ListOpts{State: workflow.RunStateActive, Limit: 1})
	if err != nil {
		t.Fatalf("ListRuns by state: %v", err)
	}
	if len(active) != 1 || active[0].Kind != workflow.KindCoopShare {
		t.Fatalf("limited active runs = %+v", active)
	}
}

// ──────────────────────────────────────────────────
// Sharing Store tests
// ──────────────────────────────────────────────────

func TestSharingAdditiveMerge(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()
	docID := id.NewDocumentID()

	if _, err := s.Get(ctx, docID); !errors.Is(err, docledger.ErrAggregateNotFound) {
		t.Fatalf("empty aggregate: got %v, want %v", err, docledger.ErrAggregateNotFound)
	}

	if err := s.SetRegistration(ctx, docID, sharing.RegistrationRecord{Title: "Q3 Report"}); err != nil {
		t.Fatalf("SetRegistration: %v", err)
	}
	if err := s.AppendExternal(ctx, docID, sharing.ExternalGrant{GrantID: "g1", Emails: []string{"a@example.com"}}); err != nil {
		t.Fatalf("AppendExternal: %v", err)
	}
	if err := s.AppendExternal(ctx, docID, sharing.ExternalGrant{GrantID: "g2", Emails: []string{"b@example.com"}}); err != nil {
		t.Fatalf("AppendExternal: %v", err)
	}
	if err := s.MergeFirm(ctx, docID, sharing.FirmGrant{MemberCount: 24, TokenID: "tok1"}); err != nil {
		t.Fatalf("MergeFirm: %v", err)
	}
	if err := s.AppendLicense(ctx, docID, sharing.LicenseOffer{OfferID: "o1", MonthlyFee: 49.99}); err != nil {
		t.Fatalf("AppendLicense: %v", err)
	}
	if err := s.SetCoop(ctx, docID, sharing.CoopListing{ListingID: "l1", Price: 100, YourShare: 95}); err != nil {
		t.Fatalf("SetCoop: %v", err)
	}

	agg, err := s.Get(ctx, docID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if agg.Registration == nil || agg.Registration.Title != "Q3 Report" {
		t.Fatalf("registration = %+v", agg.Registration)
	}
	if len(agg.External) != 2 || agg.External[0].GrantID != "g1" || agg.External[1].GrantID != "g2" {
		t.Fatalf("external grants = %+v", agg.External)
	}
	if agg.Firm == nil || agg.Firm.MemberCount != 24 {
		t.Fatalf("firm grant = %+v", agg.Firm)
	}
	if len(agg.Licenses) != 1 || agg.Licenses[0].MonthlyFee != 49.99 {
		t.Fatalf("licenses = %+v", agg.Licenses)
	}
	if agg.Coop == nil || agg.Coop.YourShare != 95 {
		t.Fatalf("coop listing = %+v", agg.Coop)
	}

	// A later firm merge replaces the token but never clears the other
	// field groups.
	if err := s.MergeFirm(ctx, docID, sharing.FirmGrant{MemberCount: 31, TokenID: "tok2"}); err != nil {
		t.Fatalf("MergeFirm: %v", err)
	}
	agg, err = s.Get(ctx, docID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if agg.Firm.TokenID != "tok2" {
		t.Fatalf("firm token = %q, want tok2", agg.Firm.TokenID)
	}
	if len(agg.External) != 2 || agg.Registration == nil || agg.Coop == nil {
		t.Fatal("firm merge clobbered unrelated field groups")
	}
}

// ──────────────────────────────────────────────────
// Pending Document Store tests
// ──────────────────────────────────────────────────

func TestPendingStashTakeSweep(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	actor := session.NewAnonymousActor()
	if _, err := s.TakePending(ctx, actor.TempID); !errors.Is(err, docledger.ErrNoPendingDocument) {
		t.Fatalf("empty take: got %v, want %v", err, docledger.ErrNoPendingDocument)
	}

	first := session.NewPendingDocument("Draft A", "/tmp/a.pdf", actor)
	if err := s.StashPending(ctx, first); err != nil {
		t.Fatalf("StashPending: %v", err)
	}

	// Stashing again replaces the slot, never adds a second one.
	second := session.NewPendingDocument("Draft B", "/tmp/b.pdf", actor)
	if err := s.StashPending(ctx, second); err != nil {
		t.Fatalf("StashPending: %v", err)
	}

	got, err := s.TakePending(ctx, actor.TempID)
	if err != nil {
		t.Fatalf("TakePending: %v", err)
	}
	if got.Title != "Draft B" {
		t.Fatalf("took %q, want the replacement stash", got.Title)
	}
	if _, err := s.TakePending(ctx, actor.TempID); !errors.Is(err, docledger.ErrNoPendingDocument) {
		t.Fatalf("second take: got %v, want %v", err, docledger.ErrNoPendingDocument)
	}

	stale := session.NewPendingDocument("Old", "/tmp/old.pdf", session.NewAnonymousActor())
	stale.StashedAt = time.Now().UTC().Add(-48 * time.Hour)
	fresh := session.NewPendingDocument("New", "/tmp/new.pdf", session.NewAnonymousActor())
	if err := s.StashPending(ctx, stale); err != nil {
		t.Fatalf("StashPending: %v", err)
	}
	if err := s.StashPending(ctx, fresh); err != nil {
		t.Fatalf("StashPending: %v", err)
	}

	removed, err := s.SweepPending(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("SweepPending: %v", err)
	}
	if removed != 1 {
		t.Fatalf("swept %d stashes, want 1", removed)
	}
	if _, err := s.TakePending(ctx, fresh.TempActorID); err != nil {
		t.Fatalf("fresh stash swept too: %v", err)
	}
}
