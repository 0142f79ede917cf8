package export_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/BetoIII/docledger/export"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

func completedRun(kind workflow.Kind, fields map[string]any, eventNames ...string) *workflow.Run {
	now := time.Now().UTC()
	events := make([]ledger.Event, len(eventNames))
	for i, name := range eventNames {
		events[i] = ledger.NewPending(name, nil)
		events[i].Status = ledger.StatusCompleted
		ts := now
		events[i].Timestamp = &ts
	}
	return &workflow.Run{
		ID:          id.NewRunID(),
		Kind:        kind,
		DocumentID:  id.NewDocumentID(),
		State:       workflow.RunStateCompleted,
		CurrentStep: len(events),
		Events:      events,
		Fields:      fields,
		StartedAt:   now,
		CompletedAt: &now,
	}
}

func TestJSONEmptyUntilComplete(t *testing.T) {
	run := completedRun(workflow.KindRegistration, nil, "DocumentHashGenerated")
	run.State = workflow.RunStateActive

	out, err := export.JSON(run)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if out != "" {
		t.Fatalf("active run exported %q, want empty", out)
	}

	run.State = workflow.RunStateFailed
	out, err = export.JSON(run)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if out != "" {
		t.Fatalf("failed run exported %q, want empty", out)
	}
}

func TestJSONRegistration(t *testing.T) {
	run := completedRun(workflow.KindRegistration, map[string]any{
		"title":  "Q3 Report",
		"txHash": "0xabc",
	}, "DocumentHashGenerated", "RegistrationAnchored")

	out, err := export.JSON(run)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var summary export.RegistrationSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if summary.Status != "registered" {
		t.Fatalf("status = %q, want registered", summary.Status)
	}
	if summary.Title != "Q3 Report" || summary.TxHash != "0xabc" {
		t.Fatalf("summary = %+v", summary)
	}
	if len(summary.Events) != 2 || summary.Events[0].Name != "DocumentHashGenerated" {
		t.Fatalf("events = %+v", summary.Events)
	}
}

func TestJSONLicensingTerms(t *testing.T) {
	run := completedRun(workflow.KindLicensing, map[string]any{
		"offerId":        "lic_123",
		"licensedEmails": []any{"buyer@example.com"},
		"monthlyFee":     49.99,
	}, "LicenseOfferCreated", "OfferEmailSent")

	out, err := export.JSON(run)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var summary export.LicensingSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if summary.Terms.Price != 49.99 {
		t.Fatalf("terms price = %v, want the monthly fee", summary.Terms.Price)
	}
	if summary.Terms.Period != "monthly" {
		t.Fatalf("terms period = %q", summary.Terms.Period)
	}
	if len(summary.Licensees) != 1 || summary.Licensees[0] != "buyer@example.com" {
		t.Fatalf("licensees = %v", summary.Licensees)
	}
}

func TestJSONCoopShare(t *testing.T) {
	run := completedRun(workflow.KindCoopShare, map[string]any{
		"listingId": "coop_1",
		"price":     100.0,
		"yourShare": 95.0,
		"category":  "finance",
	}, "CoopListingDrafted", "RevenueSplitConfigured")

	out, err := export.JSON(run)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !strings.Contains(out, `"your_share": 95`) {
		t.Fatalf("export missing revenue share: %s", out)
	}
}

func TestClipboardCopyAndTag(t *testing.T) {
	var copied string
	cb := export.NewClipboard(
		export.WithWriter(func(text string) error { copied = text; return nil }),
		export.WithFeedbackWindow(30*time.Millisecond),
	)

	run := completedRun(workflow.KindFirmShare, map[string]any{
		"memberCount": 24,
	}, "FirmDirectoryQueried", "FirmAccessTokenMinted")

	if err := cb.Copy(run); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if copied == "" {
		t.Fatal("nothing written to the clipboard")
	}
	if !cb.Copied(workflow.KindFirmShare) {
		t.Fatal("copied tag should be set right after copy")
	}
	if cb.Copied(workflow.KindRegistration) {
		t.Fatal("copied tag leaked to another kind")
	}

	// The tag clears itself after the feedback window.
	time.Sleep(80 * time.Millisecond)
	if cb.Copied(workflow.KindFirmShare) {
		t.Fatal("copied tag should have cleared")
	}
}

func TestClipboardRejectsIncompleteRun(t *testing.T) {
	cb := export.NewClipboard(
		export.WithWriter(func(string) error { t.Fatal("should not write"); return nil }),
	)

	run := completedRun(workflow.KindRegistration, nil, "DocumentHashGenerated")
	run.State = workflow.RunStateActive

	if err := cb.Copy(run); err == nil {
		t.Fatal("copying an active run should fail")
	}
	if cb.Copied(workflow.KindRegistration) {
		t.Fatal("failed copy must not set the tag")
	}
}
