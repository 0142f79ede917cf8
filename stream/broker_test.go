package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestBrokerSubscribeAndPublish(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())

	sub := b.Subscribe("sub-1", TopicWorkflows)

	evt := &Event{
		Type:      EventWorkflowStarted,
		Timestamp: time.Now().UTC(),
		Topic:     WorkflowTopic("run-123"),
		Kind:      "registration",
		Data:      json.RawMessage(`{"run_id":"run-123"}`),
	}
	b.publish(evt)

	// Event should arrive on the subscriber channel.
	select {
	case received := <-sub.C():
		if received.Type != EventWorkflowStarted {
			t.Errorf("Type = %q, want %q", received.Type, EventWorkflowStarted)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBrokerMultipleTopics(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())

	// Subscribe to firehose — should get everything.
	firehose := b.Subscribe("firehose-sub", TopicFirehose)

	// Subscribe to just one kind.
	kindSub := b.Subscribe("kind-sub", KindTopic("coop_share"))

	evt := &Event{
		Type:      EventCompleted,
		Timestamp: time.Now().UTC(),
		Topic:     WorkflowTopic("run-456"),
		Kind:      "coop_share",
		Data:      json.RawMessage(`{}`),
	}
	b.publish(evt)

	// Both should receive the event.
	for _, sub := range []*Subscriber{firehose, kindSub} {
		select {
		case <-sub.C():
			// ok
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s timed out", sub.ID())
		}
	}
}

func TestBrokerRunTopicIsolation(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())

	// Subscribe to a specific run.
	sub := b.Subscribe("run-sub", WorkflowTopic("run-abc"))

	evt := &Event{
		Type:      EventProcessing,
		Timestamp: time.Now().UTC(),
		Topic:     WorkflowTopic("run-abc"),
		Kind:      "licensing",
		Data:      json.RawMessage(`{"event_name":"LicenseOfferCreated"}`),
	}
	b.publish(evt)

	select {
	case received := <-sub.C():
		if received.Type != EventProcessing {
			t.Errorf("Type = %q, want %q", received.Type, EventProcessing)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for run event")
	}

	// Publish event to different run — should NOT arrive.
	evt2 := &Event{
		Type:      EventWorkflowStarted,
		Timestamp: time.Now().UTC(),
		Topic:     WorkflowTopic("run-other"),
		Kind:      "licensing",
		Data:      json.RawMessage(`{}`),
	}
	b.publish(evt2)

	select {
	case <-sub.C():
		t.Fatal("should not receive event for different run")
	case <-time.After(50 * time.Millisecond):
		// ok — no event
	}
}

func TestBrokerHooksPublishTransitions(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())
	run := &workflow.Run{
		ID:         id.NewRunID(),
		Kind:       workflow.KindExternalShare,
		DocumentID: id.NewDocumentID(),
		State:      workflow.RunStateActive,
	}
	sub := b.Subscribe("hook-sub", WorkflowTopic(run.ID.String()))

	evt := ledger.NewPending("ShareInvitationCreated", nil)
	ctx := context.Background()

	if err := b.OnWorkflowStarted(ctx, run); err != nil {
		t.Fatalf("OnWorkflowStarted: %v", err)
	}
	evt.Status = ledger.StatusProcessing
	if err := b.OnEventProcessing(ctx, run, &evt); err != nil {
		t.Fatalf("OnEventProcessing: %v", err)
	}
	evt.Status = ledger.StatusCompleted
	if err := b.OnEventCompleted(ctx, run, &evt, 100*time.Millisecond); err != nil {
		t.Fatalf("OnEventCompleted: %v", err)
	}

	wantTypes := []EventType{EventWorkflowStarted, EventProcessing, EventCompleted}
	for _, want := range wantTypes {
		select {
		case received := <-sub.C():
			if received.Type != want {
				t.Fatalf("Type = %q, want %q", received.Type, want)
			}
			var data RunEventData
			if err := json.Unmarshal(received.Data, &data); err != nil {
				t.Fatalf("unmarshal payload: %v", err)
			}
			if data.RunID != run.ID.String() {
				t.Fatalf("payload run id = %q", data.RunID)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())

	sub := b.Subscribe("sub-rm", TopicFirehose)

	// Remove subscriber.
	b.RemoveSubscriber("sub-rm")

	evt := &Event{
		Type:      EventSettled,
		Timestamp: time.Now().UTC(),
		Topic:     WorkflowTopic("r1"),
		Data:      json.RawMessage(`{}`),
	}
	b.publish(evt)

	// Channel should be closed.
	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("channel should be closed after RemoveSubscriber")
		}
	case <-time.After(100 * time.Millisecond):
		// ok
	}
}

func TestBrokerStats(t *testing.T) {
	t.Parallel()

	b := NewBroker(testLogger())

	_ = b.Subscribe("s1", TopicWorkflows)
	_ = b.Subscribe("s2", KindTopic("registration"), TopicFirehose)

	stats := b.Stats()
	if stats.SubscriberCount != 2 {
		t.Errorf("SubscriberCount = %d, want 2", stats.SubscriberCount)
	}
	if stats.TopicCount < 2 {
		t.Errorf("TopicCount = %d, want >= 2", stats.TopicCount)
	}
}

func TestSubscriberCredits(t *testing.T) {
	t.Parallel()

	sub := NewSubscriber("credit-sub", 10, 2)

	evt := &Event{Type: EventProcessing, Timestamp: time.Now().UTC(), Data: json.RawMessage(`{}`)}

	// Should accept 2 events (initial credits).
	if !sub.send(evt) {
		t.Fatal("first send should succeed")
	}
	if !sub.send(evt) {
		t.Fatal("second send should succeed")
	}

	// Third should fail — no credits.
	if sub.send(evt) {
		t.Fatal("third send should fail (no credits)")
	}

	// Replenish credits.
	sub.AddCredits(5)
	if sub.Credits() != 5 {
		t.Errorf("Credits = %d, want 5", sub.Credits())
	}

	if !sub.send(evt) {
		t.Fatal("send after credit replenishment should succeed")
	}
}

func TestSubscriberFilter(t *testing.T) {
	t.Parallel()

	sub := NewSubscriber("filter-sub", 10, 100)
	sub.SetFilter(func(e *Event) bool {
		return e.Type == EventMilestone
	})

	// Should be rejected by filter.
	if sub.send(&Event{Type: EventCompleted, Timestamp: time.Now().UTC(), Data: json.RawMessage(`{}`)}) {
		t.Fatal("completed event should be filtered out")
	}

	// Should pass filter.
	if !sub.send(&Event{Type: EventMilestone, Timestamp: time.Now().UTC(), Data: json.RawMessage(`{}`)}) {
		t.Fatal("milestone event should pass filter")
	}
}

func TestTopicValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		topic string
		valid bool
	}{
		{TopicWorkflows, true},
		{TopicFirehose, true},
		{"workflow:run-abc", true},
		{"kind:registration", true},
		{"invalid", false},
		{"unknown:entity", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			err := ValidateTopic(tt.topic)
			if tt.valid && err != nil {
				t.Errorf("ValidateTopic(%q) returned error: %v", tt.topic, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("ValidateTopic(%q) should return error", tt.topic)
			}
		})
	}
}

func TestTopicRegistry(t *testing.T) {
	t.Parallel()

	tr := NewTopicRegistry()

	sub1 := NewSubscriber("s1", 10, 100)
	sub2 := NewSubscriber("s2", 10, 100)

	tr.Subscribe("topic-a", sub1)
	tr.Subscribe("topic-a", sub2)
	tr.Subscribe("topic-b", sub1)

	if tr.TopicCount() != 2 {
		t.Errorf("TopicCount = %d, want 2", tr.TopicCount())
	}
	if tr.SubscriberCount("topic-a") != 2 {
		t.Errorf("SubscriberCount(topic-a) = %d, want 2", tr.SubscriberCount("topic-a"))
	}

	// Unsubscribe s2 from topic-a.
	tr.Unsubscribe("topic-a", "s2")
	if tr.SubscriberCount("topic-a") != 1 {
		t.Errorf("SubscriberCount(topic-a) = %d, want 1", tr.SubscriberCount("topic-a"))
	}

	// UnsubscribeAll for s1.
	tr.UnsubscribeAll("s1")
	if tr.TopicCount() != 0 {
		t.Errorf("TopicCount after UnsubscribeAll = %d, want 0", tr.TopicCount())
	}
}

func TestBroadcastDeduplication(t *testing.T) {
	t.Parallel()

	tr := NewTopicRegistry()
	sub := NewSubscriber("dedup-sub", 10, 100)

	// Subscribe to multiple topics.
	tr.Subscribe("topic-x", sub)
	tr.Subscribe("topic-y", sub)

	evt := &Event{Type: EventProcessing, Timestamp: time.Now().UTC(), Data: json.RawMessage(`{}`)}

	delivered := tr.Broadcast([]string{"topic-x", "topic-y"}, evt)
	if delivered != 1 {
		t.Errorf("Broadcast delivered to %d subscribers, want 1 (deduplicated)", delivered)
	}
}

func TestResolveTopics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		evt      *Event
		expected []string
	}{
		{
			name:     "run event with kind",
			evt:      &Event{Type: EventProcessing, Topic: "workflow:r1", Kind: "registration"},
			expected: []string{TopicFirehose, TopicWorkflows, "kind:registration", "workflow:r1"},
		},
		{
			name:     "run event without kind",
			evt:      &Event{Type: EventWorkflowStarted, Topic: "workflow:r2"},
			expected: []string{TopicFirehose, TopicWorkflows, "workflow:r2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topics := resolveTopics(tt.evt)
			if len(topics) != len(tt.expected) {
				t.Errorf("got %d topics, want %d: %v", len(topics), len(tt.expected), topics)
				return
			}
			for i, topic := range topics {
				if topic != tt.expected[i] {
					t.Errorf("topic[%d] = %q, want %q", i, topic, tt.expected[i])
				}
			}
		})
	}
}
