package store

import (
	"context"

	"github.com/BetoIII/docledger/session"
	"github.com/BetoIII/docledger/sharing"
	"github.com/BetoIII/docledger/workflow"
)

// Store is the aggregate persistence interface. A single backend
// implements every subsystem store plus the lifecycle methods.
type Store interface {
	workflow.Store
	sharing.Store
	session.PendingStore

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
