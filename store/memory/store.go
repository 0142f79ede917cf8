package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/session"
	"github.com/BetoIII/docledger/sharing"
	"github.com/BetoIII/docledger/workflow"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ workflow.Store       = (*Store)(nil)
	_ sharing.Store        = (*Store)(nil)
	_ session.PendingStore = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	runs       map[string]*workflow.Run
	aggregates map[string]*sharing.Aggregate
	pendings   map[uuid.UUID]*session.PendingDocument
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		runs:       make(map[string]*workflow.Run),
		aggregates: make(map[string]*sharing.Aggregate),
		pendings:   make(map[uuid.UUID]*session.PendingDocument),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Workflow Store
// ──────────────────────────────────────────────────

// CreateRun persists a new run.
func (m *Store) CreateRun(_ context.Context, run *workflow.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := run.ID.String()
	if _, exists := m.runs[key]; exists {
		return docledger.ErrRunAlreadyExists
	}
	m.runs[key] = run.Clone()
	return nil
}

// UpdateRun persists changes to an existing run.
func (m *Store) UpdateRun(_ context.Context, run *workflow.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := run.ID.String()
	if _, ok := m.runs[key]; !ok {
		return docledger.ErrRunNotFound
	}
	m.runs[key] = run.Clone()
	return nil
}

// GetRun retrieves a run by ID.
func (m *Store) GetRun(_ context.Context, runID id.RunID) (*workflow.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[runID.String()]
	if !ok {
		return nil, docledger.ErrRunNotFound
	}
	return run.Clone(), nil
}

// ListRuns returns runs matching the given options, newest first.
func (m *Store) ListRuns(_ context.Context, opts workflow.ListOpts) ([]*workflow.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]*workflow.Run, 0, len(m.runs))
	for _, run := range m.runs {
		if opts.Kind != "" && run.Kind != opts.Kind {
			continue
		}
		if opts.State != "" && run.State != opts.State {
			continue
		}
		matches = append(matches, run)
	}

	sort.Slice(matches, func(i, k int) bool {
		return matches[i].StartedAt.After(matches[k].StartedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(matches) {
			return nil, nil
		}
		matches = matches[opts.Offset:]
	}
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	result := make([]*workflow.Run, len(matches))
	for i, run := range matches {
		result[i] = run.Clone()
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Sharing Store
// ──────────────────────────────────────────────────

// aggregateLocked returns the document's aggregate, creating it on
// first touch. Caller must hold m.mu.
func (m *Store) aggregateLocked(docID id.DocumentID) *sharing.Aggregate {
	key := docID.String()
	agg, ok := m.aggregates[key]
	if !ok {
		agg = &sharing.Aggregate{DocumentID: docID}
		m.aggregates[key] = agg
	}
	return agg
}

// SetRegistration records the document's registration outcome.
func (m *Store) SetRegistration(_ context.Context, docID id.DocumentID, rec sharing.RegistrationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg := m.aggregateLocked(docID)
	agg.Registration = &rec
	agg.UpdatedAt = time.Now().UTC()
	return nil
}

// AppendExternal adds an external share instance to the history.
func (m *Store) AppendExternal(_ context.Context, docID id.DocumentID, grant sharing.ExternalGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg := m.aggregateLocked(docID)
	agg.External = append(agg.External, grant)
	agg.UpdatedAt = time.Now().UTC()
	return nil
}

// MergeFirm updates the firm-wide grant without touching other groups.
func (m *Store) MergeFirm(_ context.Context, docID id.DocumentID, grant sharing.FirmGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg := m.aggregateLocked(docID)
	agg.Firm = &grant
	agg.UpdatedAt = time.Now().UTC()
	return nil
}

// AppendLicense adds a license offer to the history.
func (m *Store) AppendLicense(_ context.Context, docID id.DocumentID, offer sharing.LicenseOffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg := m.aggregateLocked(docID)
	agg.Licenses = append(agg.Licenses, offer)
	agg.UpdatedAt = time.Now().UTC()
	return nil
}

// SetCoop records the document's marketplace listing.
func (m *Store) SetCoop(_ context.Context, docID id.DocumentID, listing sharing.CoopListing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg := m.aggregateLocked(docID)
	agg.Coop = &listing
	agg.UpdatedAt = time.Now().UTC()
	return nil
}

// Get retrieves the document's sharing aggregate.
func (m *Store) Get(_ context.Context, docID id.DocumentID) (*sharing.Aggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agg, ok := m.aggregates[docID.String()]
	if !ok {
		return nil, docledger.ErrAggregateNotFound
	}
	return agg.Clone(), nil
}

// ──────────────────────────────────────────────────
// Pending Document Store
// ──────────────────────────────────────────────────

// StashPending saves the document, replacing any existing stash for the
// same temporary actor.
func (m *Store) StashPending(_ context.Context, doc *session.PendingDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *doc
	m.pendings[doc.TempActorID] = &cp
	return nil
}

// TakePending removes and returns the actor's stash.
func (m *Store) TakePending(_ context.Context, tempActorID uuid.UUID) (*session.PendingDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.pendings[tempActorID]
	if !ok {
		return nil, docledger.ErrNoPendingDocument
	}
	delete(m.pendings, tempActorID)
	return doc, nil
}

// SweepPending deletes stashes older than ttl.
func (m *Store) SweepPending(_ context.Context, ttl time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, doc := range m.pendings {
		if doc.Expired(ttl) {
			delete(m.pendings, key)
			removed++
		}
	}
	return removed, nil
}
