package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/BetoIII/docledger/ext"
	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// Compile-time interface checks.
var (
	_ ext.Extension      = (*Toaster)(nil)
	_ ext.Milestone      = (*Toaster)(nil)
	_ ext.WorkflowFailed = (*Toaster)(nil)
)

// Toaster is the extension that turns milestone notices and run
// failures into notifications. It rate-limits globally so a burst of
// completions cannot flood the surface, and fans out to all sinks in
// parallel. Anything over the rate is dropped, never queued.
type Toaster struct {
	sinks   []Sink
	limiter *rate.Limiter
	timeout time.Duration
}

// ToasterOption configures a Toaster.
type ToasterOption func(*Toaster)

// WithRateLimit caps notification throughput. Defaults to 5/s with a
// burst of 10.
func WithRateLimit(r rate.Limit, burst int) ToasterOption {
	return func(t *Toaster) { t.limiter = rate.NewLimiter(r, burst) }
}

// WithDeliveryTimeout bounds the parallel sink fan-out. Defaults to
// 250ms.
func WithDeliveryTimeout(d time.Duration) ToasterOption {
	return func(t *Toaster) { t.timeout = d }
}

// NewToaster creates a toaster delivering to the given sinks.
func NewToaster(sinks []Sink, opts ...ToasterOption) *Toaster {
	t := &Toaster{
		sinks:   sinks,
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		timeout: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name identifies the extension.
func (t *Toaster) Name() string { return "toaster" }

// OnMilestone turns the notice into a success notification.
func (t *Toaster) OnMilestone(ctx context.Context, run *workflow.Run, _ *ledger.Event, notice workflow.Notice) error {
	return t.post(ctx, Notification{
		ID:          uuid.New(),
		Level:       LevelSuccess,
		Title:       notice.Title,
		Description: notice.Description,
		Kind:        run.Kind,
		RunID:       run.ID,
		At:          time.Now().UTC(),
	})
}

// OnWorkflowFailed posts an error notification.
func (t *Toaster) OnWorkflowFailed(ctx context.Context, run *workflow.Run, runErr error) error {
	return t.post(ctx, Notification{
		ID:          uuid.New(),
		Level:       LevelError,
		Title:       "Workflow failed",
		Description: runErr.Error(),
		Kind:        run.Kind,
		RunID:       run.ID,
		At:          time.Now().UTC(),
	})
}

// post fans the notification out to every sink in parallel, bounded by
// the delivery timeout. Rate-limited notifications are silently dropped.
func (t *Toaster) post(ctx context.Context, n Notification) error {
	if !t.limiter.Allow() {
		return nil
	}

	dctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(dctx)
	for _, sink := range t.sinks {
		g.Go(func() error {
			return sink.Deliver(gctx, n)
		})
	}
	return g.Wait()
}
