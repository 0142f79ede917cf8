package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/export"
	"github.com/BetoIII/docledger/ext"
	"github.com/BetoIII/docledger/flows"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/janitor"
	"github.com/BetoIII/docledger/latency"
	mw "github.com/BetoIII/docledger/middleware"
	"github.com/BetoIII/docledger/notify"
	"github.com/BetoIII/docledger/observability"
	"github.com/BetoIII/docledger/session"
	"github.com/BetoIII/docledger/sharing"
	"github.com/BetoIII/docledger/stream"
	"github.com/BetoIII/docledger/workflow"
)

// Engine wraps a Ledger with fully wired subsystems and typed flow
// operations. Use Build() to create one.
type Engine struct {
	ledger     *docledger.Ledger
	extensions *ext.Registry
	driver     *workflow.Driver
	broker     *stream.Broker
	toaster    *notify.Toaster
	clipboard  *export.Clipboard
	janitor    *janitor.Janitor
	logger     *slog.Logger

	// Subsystem store views.
	runs     workflow.Store
	shares   sharing.Store
	pendings session.PendingStore

	mws         []mw.Middleware
	sinks       []notify.Sink
	defLatency  latency.Profile
	clipOptions []export.ClipboardOption

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.extensions.Register(e)
	}
}

// WithMiddleware appends middleware to the engine's step chain, after
// the default stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m)
	}
}

// WithNotificationSink adds a delivery sink for milestone and failure
// toasts.
func WithNotificationSink(sink notify.Sink) Option {
	return func(eng *Engine) {
		eng.sinks = append(eng.sinks, sink)
	}
}

// WithDefaultLatency overrides the driver's default simulated latency
// profile. Tests pass latency.NewFixed(0) to run flows instantly.
func WithDefaultLatency(p latency.Profile) Option {
	return func(eng *Engine) {
		eng.defLatency = p
	}
}

// WithClipboardOptions forwards options to the export clipboard, such
// as export.WithWriter for headless environments.
func WithClipboardOptions(opts ...export.ClipboardOption) Option {
	return func(eng *Engine) {
		eng.clipOptions = append(eng.clipOptions, opts...)
	}
}

// WithTracerProvider sets a custom OTel TracerProvider. When set, the
// tracing middleware uses it instead of the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider. When set, both the
// metrics middleware and the observability extension use it instead of
// the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) {
		eng.meterProvider = mp
	}
}

// Build creates an Engine from a Ledger. The Ledger's store must
// implement the workflow, sharing, and pending-document store
// interfaces; store.Store backends satisfy all three.
func Build(l *docledger.Ledger, opts ...Option) (*Engine, error) {
	logger := l.Logger()
	st := l.Store()

	if st == nil {
		return nil, docledger.ErrNoStore
	}

	runs, ok := st.(workflow.Store)
	if !ok {
		return nil, fmt.Errorf("docledger: store does not implement workflow.Store")
	}
	shares, ok := st.(sharing.Store)
	if !ok {
		return nil, fmt.Errorf("docledger: store does not implement sharing.Store")
	}
	pendings, ok := st.(session.PendingStore)
	if !ok {
		return nil, fmt.Errorf("docledger: store does not implement session.PendingStore")
	}

	eng := &Engine{
		ledger:     l,
		extensions: ext.NewRegistry(logger),
		logger:     logger,
		runs:       runs,
		shares:     shares,
		pendings:   pendings,
	}

	for _, opt := range opts {
		opt(eng)
	}

	// Stream broker: publishes every run transition to topic subscribers.
	eng.broker = stream.NewBroker(logger)
	eng.extensions.Register(eng.broker)

	// Toaster: milestone and failure notifications.
	eng.toaster = notify.NewToaster(eng.sinks)
	eng.extensions.Register(eng.toaster)

	// Sharing recorder: folds completed runs into the per-document
	// aggregate.
	eng.extensions.Register(sharing.NewRecorder(shares))

	// Observability metrics extension (custom provider or global).
	var obsExt *observability.MetricsExtension
	if eng.meterProvider != nil {
		meter := eng.meterProvider.Meter("github.com/BetoIII/docledger/observability")
		obsExt = observability.NewMetricsExtensionWithMeter(meter)
	} else {
		obsExt = observability.NewMetricsExtension()
	}
	eng.extensions.Register(obsExt)

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracer := eng.tracerProvider.Tracer("github.com/BetoIII/docledger")
		tracingMw = mw.TracingWithTracer(tracer)
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		meter := eng.meterProvider.Meter("github.com/BetoIII/docledger")
		metricsMw = mw.MetricsWithMeter(meter)
	} else {
		metricsMw = mw.Metrics()
	}

	config := l.Config()

	// Default middleware stack: recover → tracing → metrics → logging →
	// timeout, then caller-provided middleware.
	allMws := []mw.Middleware{
		mw.Recover(logger),
		tracingMw,
		metricsMw,
		mw.Logging(logger),
		mw.Timeout(config.StepTimeout),
	}
	allMws = append(allMws, eng.mws...)

	// Flow registry with all five document flows.
	registry := workflow.NewRegistry()
	workflow.RegisterFlow(registry, flows.Registration())
	workflow.RegisterFlow(registry, flows.ExternalShare())
	workflow.RegisterFlow(registry, flows.FirmShare())
	workflow.RegisterFlow(registry, flows.Licensing())
	workflow.RegisterFlow(registry, flows.CoopShare())

	driverOpts := []workflow.DriverOption{
		workflow.WithCompletionLinger(config.CompletionLinger),
		workflow.WithStepTimeout(config.StepTimeout),
		workflow.WithActionWrapper(mw.Wrapper(mw.Chain(allMws...))),
	}
	if eng.defLatency != nil {
		driverOpts = append(driverOpts, workflow.WithDefaultLatency(eng.defLatency))
	}
	eng.driver = workflow.NewDriver(registry, runs, eng.extensions, logger, driverOpts...)

	eng.clipboard = export.NewClipboard(eng.clipOptions...)
	eng.janitor = janitor.New(pendings, config.PendingTTL, janitor.WithLogger(logger))

	// Wire back into the Ledger for Stop().
	l.SetDriver(eng.driver)
	l.SetExtensions(eng.extensions)

	return eng, nil
}

// ── Accessors ─────────────────────────────────────────────────────

// Driver returns the workflow driver.
func (eng *Engine) Driver() *workflow.Driver { return eng.driver }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Broker returns the stream broker.
func (eng *Engine) Broker() *stream.Broker { return eng.broker }

// Janitor returns the pending-document sweeper, configured with the
// ledger's TTL. The engine does not start it; call Start yourself.
func (eng *Engine) Janitor() *janitor.Janitor { return eng.janitor }

// Runs returns the run store view.
func (eng *Engine) Runs() workflow.Store { return eng.runs }

// ── Flow operations ───────────────────────────────────────────────

// StartRegistration begins the document registration flow.
func (eng *Engine) StartRegistration(ctx context.Context, p flows.RegistrationParams) (*workflow.Handle, error) {
	return workflow.Start(ctx, eng.driver, workflow.KindRegistration, p)
}

// StartExternalShare begins the external sharing flow.
func (eng *Engine) StartExternalShare(ctx context.Context, p flows.ExternalShareParams) (*workflow.Handle, error) {
	return workflow.Start(ctx, eng.driver, workflow.KindExternalShare, p)
}

// StartFirmShare begins the firm-wide sharing flow.
func (eng *Engine) StartFirmShare(ctx context.Context, p flows.FirmShareParams) (*workflow.Handle, error) {
	return workflow.Start(ctx, eng.driver, workflow.KindFirmShare, p)
}

// StartLicensing begins the licensing flow.
func (eng *Engine) StartLicensing(ctx context.Context, p flows.LicensingParams) (*workflow.Handle, error) {
	return workflow.Start(ctx, eng.driver, workflow.KindLicensing, p)
}

// StartCoopShare begins the cooperative publishing flow.
func (eng *Engine) StartCoopShare(ctx context.Context, p flows.CoopShareParams) (*workflow.Handle, error) {
	return workflow.Start(ctx, eng.driver, workflow.KindCoopShare, p)
}

// Reset returns the kind to its pre-invocation shape, cancelling any
// in-flight run.
func (eng *Engine) Reset(ctx context.Context, kind workflow.Kind) {
	eng.driver.Reset(ctx, kind)
}

// Snapshot returns a clone of the kind's live run, if any.
func (eng *Engine) Snapshot(kind workflow.Kind) (*workflow.Run, bool) {
	return eng.driver.Snapshot(kind)
}

// ── Export and clipboard ──────────────────────────────────────────

// ExportJSON renders the kind's run as indented JSON. It returns ""
// until the run is complete.
func (eng *Engine) ExportJSON(kind workflow.Kind) (string, error) {
	run, ok := eng.driver.Snapshot(kind)
	if !ok {
		return "", nil
	}
	return export.JSON(run)
}

// Copy writes the kind's completed run to the clipboard and arms the
// self-clearing copied tag.
func (eng *Engine) Copy(kind workflow.Kind) error {
	run, ok := eng.driver.Snapshot(kind)
	if !ok {
		return docledger.ErrRunNotFound
	}
	return eng.clipboard.Copy(run)
}

// Copied reports whether the kind's copied tag is still showing.
func (eng *Engine) Copied(kind workflow.Kind) bool {
	return eng.clipboard.Copied(kind)
}

// ── Sharing state ─────────────────────────────────────────────────

// Aggregate returns the accumulated sharing state for a document.
func (eng *Engine) Aggregate(ctx context.Context, docID id.DocumentID) (*sharing.Aggregate, error) {
	return eng.shares.Get(ctx, docID)
}

// ── Pending documents ─────────────────────────────────────────────

// StashPending saves registration inputs for an anonymous actor so the
// flow can resume once they authenticate.
func (eng *Engine) StashPending(ctx context.Context, title, filePath string, actor session.Actor) (*session.PendingDocument, error) {
	if title == "" {
		return nil, docledger.ErrMissingTitle
	}
	if filePath == "" {
		return nil, docledger.ErrMissingFilePath
	}

	doc := session.NewPendingDocument(title, filePath, actor)
	if err := eng.pendings.StashPending(ctx, doc); err != nil {
		return nil, err
	}
	eng.logger.Info("stashed pending document",
		"pending_id", doc.ID.String(),
		"temp_actor_id", doc.TempActorID.String(),
	)
	return doc, nil
}

// ResumePending takes the actor's stashed document and starts the
// registration flow with the now-authenticated owner email. The stash
// is consumed even if the flow fails validation.
func (eng *Engine) ResumePending(ctx context.Context, tempActorID uuid.UUID, ownerEmail string) (*workflow.Handle, error) {
	doc, err := eng.pendings.TakePending(ctx, tempActorID)
	if err != nil {
		return nil, err
	}

	eng.logger.Info("resuming pending registration",
		"pending_id", doc.ID.String(),
		"title", doc.Title,
	)
	return eng.StartRegistration(ctx, flows.RegistrationParams{
		Title:      doc.Title,
		FilePath:   doc.FilePath,
		OwnerEmail: ownerEmail,
	})
}

// Stop delegates to the Ledger: active flows are reset, extensions are
// notified, and the store is closed.
func (eng *Engine) Stop(ctx context.Context) error {
	eng.janitor.Stop()
	return eng.ledger.Stop(ctx)
}
