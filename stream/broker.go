package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BetoIII/docledger/ext"
	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// Compile-time interface checks.
var (
	_ ext.Extension         = (*Broker)(nil)
	_ ext.WorkflowStarted   = (*Broker)(nil)
	_ ext.EventProcessing   = (*Broker)(nil)
	_ ext.EventCompleted    = (*Broker)(nil)
	_ ext.EventFailed       = (*Broker)(nil)
	_ ext.Milestone         = (*Broker)(nil)
	_ ext.WorkflowCompleted = (*Broker)(nil)
	_ ext.WorkflowFailed    = (*Broker)(nil)
	_ ext.WorkflowReset     = (*Broker)(nil)
	_ ext.Settled           = (*Broker)(nil)
	_ ext.Shutdown          = (*Broker)(nil)
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 256

// DefaultCredits is the default initial credits for new subscribers.
const DefaultCredits int64 = 1000

// Broker is the real-time stream broker. It implements the ext
// extension hooks to receive run lifecycle events and fans them out to
// subscribers via topic-based pub/sub. A progress surface subscribes to
// workflow:<runID> (or kind:<kind>) and re-renders on every transition.
type Broker struct {
	topics *TopicRegistry
	logger *slog.Logger

	// Subscriber management.
	subscribers sync.Map // subscriberID → *Subscriber

	// Metrics.
	totalPublished atomic.Int64

	// Config.
	bufferSize     int
	defaultCredits int64
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBufferSize sets the per-subscriber event buffer size.
func WithBufferSize(size int) BrokerOption {
	return func(b *Broker) { b.bufferSize = size }
}

// WithDefaultCredits sets the initial credits for new subscribers.
func WithDefaultCredits(credits int64) BrokerOption {
	return func(b *Broker) { b.defaultCredits = credits }
}

// NewBroker creates a new stream broker.
func NewBroker(logger *slog.Logger, opts ...BrokerOption) *Broker {
	b := &Broker{
		topics:         NewTopicRegistry(),
		logger:         logger,
		bufferSize:     DefaultBufferSize,
		defaultCredits: DefaultCredits,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements ext.Extension.
func (b *Broker) Name() string { return "stream-broker" }

// Topics returns the topic registry for external use (e.g., feed server).
func (b *Broker) Topics() *TopicRegistry { return b.topics }

// Subscribe creates a new subscriber on the given topics.
func (b *Broker) Subscribe(subscriberID string, topics ...string) *Subscriber {
	sub := NewSubscriber(subscriberID, b.bufferSize, b.defaultCredits)
	b.subscribers.Store(subscriberID, sub)
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
	return sub
}

// SubscribeTo adds an existing subscriber to additional topics.
func (b *Broker) SubscribeTo(subscriberID string, topics ...string) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return
	}
	sub := val.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
}

// Unsubscribe removes a subscriber from specific topics.
func (b *Broker) Unsubscribe(subscriberID string, topics ...string) {
	for _, topic := range topics {
		b.topics.Unsubscribe(topic, subscriberID)
	}
}

// RemoveSubscriber removes a subscriber from all topics and closes it.
func (b *Broker) RemoveSubscriber(subscriberID string) {
	b.topics.UnsubscribeAll(subscriberID)
	if val, ok := b.subscribers.LoadAndDelete(subscriberID); ok {
		val.(*Subscriber).Close() //nolint:errcheck // sync.Map always stores *Subscriber
	}
}

// GetSubscriber returns a subscriber by ID.
func (b *Broker) GetSubscriber(subscriberID string) (*Subscriber, bool) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return nil, false
	}
	return val.(*Subscriber), true //nolint:errcheck // sync.Map always stores *Subscriber
}

// Stats returns broker statistics.
func (b *Broker) Stats() BrokerStats {
	count := 0
	b.subscribers.Range(func(_, _ any) bool {
		count++
		return true
	})
	return BrokerStats{
		TopicCount:      b.topics.TopicCount(),
		SubscriberCount: count,
		TotalPublished:  b.totalPublished.Load(),
	}
}

// BrokerStats contains broker metrics.
type BrokerStats struct {
	TopicCount      int   `json:"topic_count"`
	SubscriberCount int   `json:"subscriber_count"`
	TotalPublished  int64 `json:"total_published"`
}

// publish creates an event and broadcasts it to all matching topics.
func (b *Broker) publish(evt *Event) {
	topics := resolveTopics(evt)
	delivered := b.topics.Broadcast(topics, evt)
	b.totalPublished.Add(int64(delivered))
}

// mustMarshal marshals data to JSON, panicking on error (programming error).
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("stream: marshal event data: " + err.Error())
	}
	return data
}

// runData builds the common run payload.
func runData(r *workflow.Run) RunEventData {
	return RunEventData{
		RunID:       r.ID.String(),
		Kind:        string(r.Kind),
		DocumentID:  r.DocumentID.String(),
		State:       string(r.State),
		CurrentStep: r.CurrentStep,
	}
}

// envelope builds the common event envelope.
func envelope(t EventType, r *workflow.Run, data any) *Event {
	return &Event{
		Type:      t,
		Timestamp: time.Now().UTC(),
		Topic:     WorkflowTopic(r.ID.String()),
		Kind:      string(r.Kind),
		Data:      mustMarshal(data),
	}
}

// ── Run lifecycle hooks ─────────────────────────────

func (b *Broker) OnWorkflowStarted(_ context.Context, r *workflow.Run) error {
	b.publish(envelope(EventWorkflowStarted, r, runData(r)))
	return nil
}

func (b *Broker) OnEventProcessing(_ context.Context, r *workflow.Run, evt *ledger.Event) error {
	data := runData(r)
	data.EventName = evt.Name
	data.EventStatus = string(evt.Status)
	b.publish(envelope(EventProcessing, r, data))
	return nil
}

func (b *Broker) OnEventCompleted(_ context.Context, r *workflow.Run, evt *ledger.Event, elapsed time.Duration) error {
	data := runData(r)
	data.EventName = evt.Name
	data.EventStatus = string(evt.Status)
	data.ElapsedMs = elapsed.Milliseconds()
	b.publish(envelope(EventCompleted, r, data))
	return nil
}

func (b *Broker) OnEventFailed(_ context.Context, r *workflow.Run, evt *ledger.Event, evtErr error) error {
	data := runData(r)
	data.EventName = evt.Name
	data.EventStatus = string(evt.Status)
	data.Error = evtErr.Error()
	b.publish(envelope(EventFailed, r, data))
	return nil
}

func (b *Broker) OnMilestone(_ context.Context, r *workflow.Run, evt *ledger.Event, notice workflow.Notice) error {
	b.publish(envelope(EventMilestone, r, MilestoneEventData{
		RunID:       r.ID.String(),
		Kind:        string(r.Kind),
		EventName:   evt.Name,
		Title:       notice.Title,
		Description: notice.Description,
	}))
	return nil
}

func (b *Broker) OnWorkflowCompleted(_ context.Context, r *workflow.Run, elapsed time.Duration) error {
	data := runData(r)
	data.ElapsedMs = elapsed.Milliseconds()
	b.publish(envelope(EventWorkflowCompleted, r, data))
	return nil
}

func (b *Broker) OnWorkflowFailed(_ context.Context, r *workflow.Run, runErr error) error {
	data := runData(r)
	data.Error = runErr.Error()
	b.publish(envelope(EventWorkflowFailed, r, data))
	return nil
}

func (b *Broker) OnWorkflowReset(_ context.Context, r *workflow.Run) error {
	b.publish(envelope(EventWorkflowReset, r, runData(r)))
	return nil
}

func (b *Broker) OnSettled(_ context.Context, r *workflow.Run) error {
	b.publish(envelope(EventSettled, r, runData(r)))
	return nil
}

// ── Shutdown ────────────────────────────────────────

func (b *Broker) OnShutdown(_ context.Context) error {
	b.subscribers.Range(func(key, value any) bool {
		sub := value.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
		sub.Close()
		b.subscribers.Delete(key)
		return true
	})
	b.logger.Info("stream broker shut down")
	return nil
}
