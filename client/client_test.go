package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/client"
	"github.com/BetoIII/docledger/feed"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/store/memory"
	"github.com/BetoIII/docledger/stream"
	"github.com/BetoIII/docledger/workflow"
)

// ── Test Helpers ──────────────────────────────────────

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupClientTest mounts a feed server over a memory store on an
// httptest server, then dials a Go client.
func setupClientTest(t *testing.T, opts ...client.Option) (*client.Client, *memory.Store, *stream.Broker) {
	t.Helper()

	logger := testLogger()
	s := memory.New()
	broker := stream.NewBroker(logger)
	handler := feed.NewHandler(s, broker, logger)
	srv := feed.NewServer(broker, handler, feed.WithLogger(logger))

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	opts = append([]client.Option{client.WithLogger(logger)}, opts...)
	c, err := client.DialContext(context.Background(), wsURL, opts...)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	return c, s, broker
}

func seedRun(t *testing.T, s *memory.Store, kind workflow.Kind) *workflow.Run {
	t.Helper()
	run := &workflow.Run{
		Entity:     docledger.NewEntity(),
		ID:         id.NewRunID(),
		Kind:       kind,
		DocumentID: id.NewDocumentID(),
		State:      workflow.RunStateActive,
		Events: []ledger.Event{
			ledger.NewPending("FirstStep", nil),
			ledger.NewPending("SecondStep", nil),
		},
		StartedAt: time.Now().UTC(),
	}
	if err := s.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	return run
}

// ── Connection Tests ──────────────────────────────────

func TestClient_DialAndClose(t *testing.T) {
	c, _, _ := setupClientTest(t)

	if c.SessionID() == "" {
		t.Error("expected non-empty session ID after dial")
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	// Second close is a no-op.
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestClient_MsgpackFormat(t *testing.T) {
	c, s, _ := setupClientTest(t, client.WithFormat("msgpack"))

	run := seedRun(t, s, workflow.KindRegistration)

	got, err := c.GetRun(context.Background(), run.ID.String())
	if err != nil {
		t.Fatalf("GetRun over msgpack: %v", err)
	}
	if got.ID != run.ID {
		t.Errorf("run ID = %s, want %s", got.ID, run.ID)
	}
}

// ── Run Tests ─────────────────────────────────────────

func TestClient_GetRun(t *testing.T) {
	c, s, _ := setupClientTest(t)

	run := seedRun(t, s, workflow.KindFirmShare)

	got, err := c.GetRun(context.Background(), run.ID.String())
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Kind != workflow.KindFirmShare {
		t.Errorf("kind = %s, want %s", got.Kind, workflow.KindFirmShare)
	}
	if len(got.Events) != 2 {
		t.Errorf("events = %d, want 2", len(got.Events))
	}
}

func TestClient_GetRunNotFound(t *testing.T) {
	c, _, _ := setupClientTest(t)

	_, err := c.GetRun(context.Background(), id.NewRunID().String())
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %q, want to contain 'not found'", err.Error())
	}
}

func TestClient_ListRuns(t *testing.T) {
	c, s, _ := setupClientTest(t)

	seedRun(t, s, workflow.KindRegistration)
	seedRun(t, s, workflow.KindRegistration)
	seedRun(t, s, workflow.KindLicensing)

	all, err := c.ListRuns(context.Background(), "", "", 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len(all) = %d, want 3", len(all))
	}

	reg, err := c.ListRuns(context.Background(), string(workflow.KindRegistration), "", 0)
	if err != nil {
		t.Fatalf("ListRuns filtered: %v", err)
	}
	if len(reg) != 2 {
		t.Errorf("len(reg) = %d, want 2", len(reg))
	}
}

// ── Subscription Tests ────────────────────────────────

func TestClient_SubscribeReceivesEvents(t *testing.T) {
	c, s, broker := setupClientTest(t)

	ch, err := c.Subscribe(context.Background(), stream.TopicFirehose)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	run := seedRun(t, s, workflow.KindExternalShare)
	if err := broker.OnWorkflowStarted(context.Background(), run); err != nil {
		t.Fatalf("OnWorkflowStarted: %v", err)
	}

	select {
	case evt := <-ch:
		if evt.Type != stream.EventWorkflowStarted {
			t.Errorf("event type = %s, want %s", evt.Type, stream.EventWorkflowStarted)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestClient_UnsubscribeClosesChannel(t *testing.T) {
	c, _, _ := setupClientTest(t)

	ch, err := c.Subscribe(context.Background(), stream.TopicWorkflows)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := c.Unsubscribe(context.Background(), stream.TopicWorkflows); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	select {
	case _, open := <-ch:
		if open {
			t.Error("expected channel to be closed after Unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Unsubscribe")
	}
}

func TestClient_SubscribeRejectsBadTopic(t *testing.T) {
	c, _, _ := setupClientTest(t)

	_, err := c.Subscribe(context.Background(), "bogus:topic:shape")
	if err == nil {
		t.Fatal("expected error for invalid topic")
	}
}

func TestClient_Stats(t *testing.T) {
	c, _, _ := setupClientTest(t)

	raw, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(raw) == 0 {
		t.Error("expected non-empty stats payload")
	}
}
