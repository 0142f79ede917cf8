package docledger

import (
	"context"
	"log/slog"
	"time"
)

// Option configures a Ledger.
type Option func(*Ledger) error

// Storer is the minimal store interface held by the Ledger.
// It covers lifecycle operations only. The full composite interface
// (store.Store) is used in subsystem layers that don't create import
// cycles. Implementations satisfy store.Store which embeds all
// subsystem stores.
type Storer interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// driverStopper is an internal interface for driver lifecycle.
type driverStopper interface {
	ResetAll(ctx context.Context)
}

// extensionEmitter is an internal interface for extension lifecycle events.
type extensionEmitter interface {
	EmitShutdown(ctx context.Context)
}

// Ledger is the central coordinator for the workflow ledger engine.
//
// Create one with New() and functional options. The Ledger holds
// references to subsystem components via internal interfaces to avoid
// import cycles. Use engine.Build to wire everything together.
type Ledger struct {
	config     Config
	logger     *slog.Logger
	store      Storer
	extensions extensionEmitter
	driver     driverStopper
}

// New creates a new Ledger with the given options.
func New(opts ...Option) (*Ledger, error) {
	l := &Ledger{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Logger returns the ledger's logger.
func (l *Ledger) Logger() *slog.Logger { return l.logger }

// Store returns the ledger's store.
func (l *Ledger) Store() Storer { return l.store }

// Config returns a copy of the ledger's configuration.
func (l *Ledger) Config() Config { return l.config }

// SetDriver sets the workflow driver (called by the engine package).
func (l *Ledger) SetDriver(d driverStopper) { l.driver = d }

// SetExtensions sets the extension emitter (called by the engine package).
func (l *Ledger) SetExtensions(e extensionEmitter) { l.extensions = e }

// Stop gracefully shuts down the ledger: active flows are reset so no
// scheduled continuation outlives the store, extensions are notified,
// and the store is closed.
func (l *Ledger) Stop(ctx context.Context) error {
	if l.driver != nil {
		l.driver.ResetAll(ctx)
	}
	if l.extensions != nil {
		l.extensions.EmitShutdown(ctx)
	}
	if l.store != nil {
		return l.store.Close()
	}
	return nil
}

// WithStore sets the persistence backend for the ledger.
// The store must implement Storer at minimum; typically it will be a
// store.Store which embeds all subsystem store interfaces.
func WithStore(s Storer) Option {
	return func(l *Ledger) error {
		l.store = s
		return nil
	}
}

// WithLogger sets the structured logger for the ledger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) error {
		l.logger = logger
		return nil
	}
}

// WithCompletionLinger sets the delay between the last event completing
// and the settled presentation hint.
func WithCompletionLinger(d time.Duration) Option {
	return func(l *Ledger) error {
		l.config.CompletionLinger = d
		return nil
	}
}

// WithStepTimeout bounds real backend step actions.
func WithStepTimeout(d time.Duration) Option {
	return func(l *Ledger) error {
		l.config.StepTimeout = d
		return nil
	}
}

// WithPendingTTL sets how long stashed pending documents survive.
func WithPendingTTL(d time.Duration) Option {
	return func(l *Ledger) error {
		l.config.PendingTTL = d
		return nil
	}
}
