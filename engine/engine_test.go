package engine_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/engine"
	"github.com/BetoIII/docledger/export"
	"github.com/BetoIII/docledger/flows"
	"github.com/BetoIII/docledger/latency"
	"github.com/BetoIII/docledger/notify"
	"github.com/BetoIII/docledger/session"
	"github.com/BetoIII/docledger/store/memory"
	"github.com/BetoIII/docledger/workflow"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memWriter captures clipboard writes so tests run headless.
type memWriter struct {
	mu   sync.Mutex
	text string
}

func (w *memWriter) write(text string) error {
	w.mu.Lock()
	w.text = text
	w.mu.Unlock()
	return nil
}

func (w *memWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.text
}

func newEngine(t *testing.T, opts ...engine.Option) *engine.Engine {
	t.Helper()
	l, err := docledger.New(
		docledger.WithStore(memory.New()),
		docledger.WithLogger(quietLogger()),
		docledger.WithCompletionLinger(5*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("docledger.New: %v", err)
	}

	opts = append([]engine.Option{
		engine.WithDefaultLatency(latency.NewFixed(0)),
	}, opts...)

	eng, err := engine.Build(l, opts...)
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}
	t.Cleanup(func() {
		if err := eng.Stop(context.Background()); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return eng
}

func waitDone(t *testing.T, h *workflow.Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not settle in time")
	}
}

func TestBuildRequiresStore(t *testing.T) {
	l, err := docledger.New(docledger.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("docledger.New: %v", err)
	}
	if _, err := engine.Build(l); err != docledger.ErrNoStore {
		t.Fatalf("Build without store: got %v, want ErrNoStore", err)
	}
}

func TestRegistrationEndToEnd(t *testing.T) {
	clip := &memWriter{}
	sink := notify.NewChannelSink(16, nil)
	eng := newEngine(t,
		engine.WithClipboardOptions(export.WithWriter(clip.write), export.WithFeedbackWindow(30*time.Millisecond)),
		engine.WithNotificationSink(sink),
	)
	ctx := context.Background()

	h, err := eng.StartRegistration(ctx, flows.RegistrationParams{
		Title:      "Deed of Trust",
		FilePath:   "/docs/deed.pdf",
		OwnerEmail: "owner@example.com",
	})
	if err != nil {
		t.Fatalf("StartRegistration: %v", err)
	}
	waitDone(t, h)

	run := h.Snapshot()
	if !run.Complete() {
		t.Fatalf("run state = %q, want completed", run.State)
	}
	if len(run.Events) != 6 {
		t.Fatalf("registration events = %d, want 6", len(run.Events))
	}

	out, err := eng.ExportJSON(workflow.KindRegistration)
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	if !strings.Contains(out, `"registered"`) {
		t.Errorf("export missing registered status: %s", out)
	}

	if err := eng.Copy(workflow.KindRegistration); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if clip.String() != out {
		t.Error("clipboard content does not match export")
	}
	if !eng.Copied(workflow.KindRegistration) {
		t.Error("copied tag not set after Copy")
	}
	time.Sleep(60 * time.Millisecond)
	if eng.Copied(workflow.KindRegistration) {
		t.Error("copied tag did not self-clear")
	}

	// The mint milestone produced a toast.
	select {
	case n := <-sink.Notifications():
		if n.Level != notify.LevelSuccess {
			t.Errorf("notification level = %q, want success", n.Level)
		}
	default:
		t.Error("no milestone notification delivered")
	}

	// The recorder folded the run into the sharing aggregate.
	agg, err := eng.Aggregate(ctx, run.DocumentID)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.Registration == nil {
		t.Error("aggregate missing registration record")
	}
}

func TestLicensingValidationFailsSynchronously(t *testing.T) {
	eng := newEngine(t)

	_, err := eng.StartLicensing(context.Background(), flows.LicensingParams{
		MonthlyFee: 49.99,
	})
	if err != docledger.ErrNoRecipients {
		t.Fatalf("StartLicensing without emails: got %v, want ErrNoRecipients", err)
	}

	if _, ok := eng.Snapshot(workflow.KindLicensing); ok {
		t.Error("failed validation left a live run behind")
	}
}

func TestResetDiscardsRun(t *testing.T) {
	l, err := docledger.New(
		docledger.WithStore(memory.New()),
		docledger.WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("docledger.New: %v", err)
	}
	eng, err := engine.Build(l, engine.WithDefaultLatency(latency.NewFixed(50*time.Millisecond)))
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}
	defer eng.Stop(context.Background()) //nolint:errcheck

	ctx := context.Background()
	h, err := eng.StartFirmShare(ctx, flows.FirmShareParams{FirmName: "Acme Legal"})
	if err != nil {
		t.Fatalf("StartFirmShare: %v", err)
	}

	eng.Reset(ctx, workflow.KindFirmShare)
	waitDone(t, h)

	if _, ok := eng.Snapshot(workflow.KindFirmShare); ok {
		t.Error("snapshot still live after reset")
	}
}

func TestAdditiveAggregateAcrossFlows(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	h, err := eng.StartRegistration(ctx, flows.RegistrationParams{
		Title:    "Operating Agreement",
		FilePath: "/docs/oa.pdf",
	})
	if err != nil {
		t.Fatalf("StartRegistration: %v", err)
	}
	waitDone(t, h)
	docID := h.Snapshot().DocumentID

	h, err = eng.StartFirmShare(ctx, flows.FirmShareParams{DocumentID: docID, FirmName: "Acme Legal"})
	if err != nil {
		t.Fatalf("StartFirmShare: %v", err)
	}
	waitDone(t, h)

	h, err = eng.StartExternalShare(ctx, flows.ExternalShareParams{
		DocumentID: docID,
		Emails:     []string{"alice@example.com"},
	})
	if err != nil {
		t.Fatalf("StartExternalShare: %v", err)
	}
	waitDone(t, h)

	agg, err := eng.Aggregate(ctx, docID)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.Registration == nil {
		t.Error("registration group missing")
	}
	if agg.Firm == nil {
		t.Error("firm group missing")
	}
	if len(agg.External) != 1 {
		t.Errorf("external grants = %d, want 1", len(agg.External))
	}
}

func TestStashAndResumePending(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	actor := session.NewAnonymousActor()

	doc, err := eng.StashPending(ctx, "Lease Agreement", "/docs/lease.pdf", actor)
	if err != nil {
		t.Fatalf("StashPending: %v", err)
	}
	if doc.TempActorID != actor.TempID {
		t.Fatalf("stash actor = %s, want %s", doc.TempActorID, actor.TempID)
	}

	h, err := eng.ResumePending(ctx, actor.TempID, "owner@example.com")
	if err != nil {
		t.Fatalf("ResumePending: %v", err)
	}
	waitDone(t, h)

	run := h.Snapshot()
	if !run.Complete() {
		t.Fatalf("resumed run state = %q, want completed", run.State)
	}
	if got := run.Fields["title"]; got != "Lease Agreement" {
		t.Errorf("resumed title = %v", got)
	}

	// The stash is consumed.
	if _, err := eng.ResumePending(ctx, actor.TempID, "owner@example.com"); err != docledger.ErrNoPendingDocument {
		t.Errorf("second resume: got %v, want ErrNoPendingDocument", err)
	}
}

func TestStashPendingValidation(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	if _, err := eng.StashPending(ctx, "", "/docs/x.pdf", session.NewAnonymousActor()); err != docledger.ErrMissingTitle {
		t.Errorf("missing title: got %v", err)
	}
	if _, err := eng.StashPending(ctx, "Deed", "", session.NewAnonymousActor()); err != docledger.ErrMissingFilePath {
		t.Errorf("missing file path: got %v", err)
	}
}
