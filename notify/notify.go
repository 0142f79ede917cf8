// Package notify delivers milestone notifications to user-facing
// surfaces (toasts, status bars). Delivery is best-effort and never
// blocks the run driver: slow or full sinks drop instead of stalling.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/workflow"
)

// Level classifies a notification for presentation.
type Level string

const (
	// LevelSuccess is a milestone or completion toast.
	LevelSuccess Level = "success"
	// LevelError is a failed-run toast.
	LevelError Level = "error"
)

// Notification is one user-visible message.
type Notification struct {
	ID          uuid.UUID     `json:"id"`
	Level       Level         `json:"level"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Kind        workflow.Kind `json:"kind"`
	RunID       id.RunID      `json:"run_id"`
	At          time.Time     `json:"at"`
}

// Sink receives notifications. Implementations must return quickly;
// the toaster treats a slow sink the same as a failed one.
type Sink interface {
	// Deliver hands one notification to the surface.
	Deliver(ctx context.Context, n Notification) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, n Notification) error

// Deliver calls f.
func (f SinkFunc) Deliver(ctx context.Context, n Notification) error { return f(ctx, n) }

// ChannelSink buffers notifications on a channel for a UI loop to
// drain. When the buffer is full the notification is dropped; a toast
// that arrives late is worse than one that never arrives.
type ChannelSink struct {
	ch      chan Notification
	dropped func(Notification)
}

// NewChannelSink creates a channel sink with the given buffer size.
// onDropped, if non-nil, observes dropped notifications.
func NewChannelSink(buffer int, onDropped func(Notification)) *ChannelSink {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelSink{ch: make(chan Notification, buffer), dropped: onDropped}
}

// Deliver enqueues without blocking.
func (s *ChannelSink) Deliver(_ context.Context, n Notification) error {
	select {
	case s.ch <- n:
	default:
		if s.dropped != nil {
			s.dropped(n)
		}
	}
	return nil
}

// Notifications returns the drain channel.
func (s *ChannelSink) Notifications() <-chan Notification { return s.ch }
