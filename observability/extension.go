package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/BetoIII/docledger/ext"
	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// meterName is the instrumentation scope name for docledger metrics.
const meterName = "github.com/BetoIII/docledger/observability"

// Compile-time interface checks.
var (
	_ ext.Extension         = (*MetricsExtension)(nil)
	_ ext.WorkflowStarted   = (*MetricsExtension)(nil)
	_ ext.EventCompleted    = (*MetricsExtension)(nil)
	_ ext.Milestone         = (*MetricsExtension)(nil)
	_ ext.WorkflowCompleted = (*MetricsExtension)(nil)
	_ ext.WorkflowFailed    = (*MetricsExtension)(nil)
	_ ext.WorkflowReset     = (*MetricsExtension)(nil)
	_ ext.Settled           = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle metrics via OTel.
// Register it as an extension to automatically track run starts,
// completion counts and durations, failure rates, milestone counts,
// and resets, all tagged with the flow kind.
type MetricsExtension struct {
	runsStarted     metric.Int64Counter
	runsCompleted   metric.Int64Counter
	runsFailed      metric.Int64Counter
	runsReset       metric.Int64Counter
	runsSettled     metric.Int64Counter
	eventsCompleted metric.Int64Counter
	milestones      metric.Int64Counter
	runDuration     metric.Float64Histogram
}

// NewMetricsExtension creates a MetricsExtension using the global
// MeterProvider. If none is configured, all instruments are noops.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the
// provided meter. Tests inject an sdkmetric meter here.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	m := &MetricsExtension{}

	// Instrument creation errors yield noop instruments; the extension
	// degrades gracefully rather than failing wiring.
	m.runsStarted, _ = meter.Int64Counter("docledger.runs.started",
		metric.WithDescription("Total flow runs started"))
	m.runsCompleted, _ = meter.Int64Counter("docledger.runs.completed",
		metric.WithDescription("Total flow runs completed"))
	m.runsFailed, _ = meter.Int64Counter("docledger.runs.failed",
		metric.WithDescription("Total flow runs failed"))
	m.runsReset, _ = meter.Int64Counter("docledger.runs.reset",
		metric.WithDescription("Total flow runs reset"))
	m.runsSettled, _ = meter.Int64Counter("docledger.runs.settled",
		metric.WithDescription("Total flow runs settled"))
	m.eventsCompleted, _ = meter.Int64Counter("docledger.events.completed",
		metric.WithDescription("Total ledger events completed"))
	m.milestones, _ = meter.Int64Counter("docledger.milestones",
		metric.WithDescription("Total milestone notices emitted"))
	m.runDuration, _ = meter.Float64Histogram("docledger.run.duration",
		metric.WithDescription("Flow run duration in seconds"),
		metric.WithUnit("s"))

	return m
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

func kindAttr(r *workflow.Run) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("kind", string(r.Kind)))
}

// OnWorkflowStarted implements ext.WorkflowStarted.
func (m *MetricsExtension) OnWorkflowStarted(ctx context.Context, r *workflow.Run) error {
	m.runsStarted.Add(ctx, 1, kindAttr(r))
	return nil
}

// OnEventCompleted implements ext.EventCompleted.
func (m *MetricsExtension) OnEventCompleted(ctx context.Context, r *workflow.Run, evt *ledger.Event, _ time.Duration) error {
	m.eventsCompleted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(r.Kind)),
		attribute.String("event_name", evt.Name),
	))
	return nil
}

// OnMilestone implements ext.Milestone.
func (m *MetricsExtension) OnMilestone(ctx context.Context, r *workflow.Run, _ *ledger.Event, _ workflow.Notice) error {
	m.milestones.Add(ctx, 1, kindAttr(r))
	return nil
}

// OnWorkflowCompleted implements ext.WorkflowCompleted.
func (m *MetricsExtension) OnWorkflowCompleted(ctx context.Context, r *workflow.Run, elapsed time.Duration) error {
	m.runsCompleted.Add(ctx, 1, kindAttr(r))
	m.runDuration.Record(ctx, elapsed.Seconds(), kindAttr(r))
	return nil
}

// OnWorkflowFailed implements ext.WorkflowFailed.
func (m *MetricsExtension) OnWorkflowFailed(ctx context.Context, r *workflow.Run, _ error) error {
	m.runsFailed.Add(ctx, 1, kindAttr(r))
	return nil
}

// OnWorkflowReset implements ext.WorkflowReset.
func (m *MetricsExtension) OnWorkflowReset(ctx context.Context, r *workflow.Run) error {
	m.runsReset.Add(ctx, 1, kindAttr(r))
	return nil
}

// OnSettled implements ext.Settled.
func (m *MetricsExtension) OnSettled(ctx context.Context, r *workflow.Run) error {
	m.runsSettled.Add(ctx, 1, kindAttr(r))
	return nil
}
