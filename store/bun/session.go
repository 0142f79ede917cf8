package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/session"
)

// StashPending saves the document, replacing any existing stash for the
// same temporary actor.
func (s *Store) StashPending(ctx context.Context, doc *session.PendingDocument) error {
	m, err := toPendingModel(doc)
	if err != nil {
		return err
	}

	_, err = s.db.NewInsert().Model(m).
		On("CONFLICT (temp_actor_id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("stashed_at = EXCLUDED.stashed_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("docledger/bun: stash pending document: %w", err)
	}
	return nil
}

// TakePending removes and returns the actor's stash.
func (s *Store) TakePending(ctx context.Context, tempActorID uuid.UUID) (*session.PendingDocument, error) {
	m := new(pendingModel)
	err := s.db.NewSelect().Model(m).
		Where("temp_actor_id = ?", tempActorID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, docledger.ErrNoPendingDocument
		}
		return nil, fmt.Errorf("docledger/bun: take pending document: %w", err)
	}

	_, err = s.db.NewDelete().Model((*pendingModel)(nil)).
		Where("temp_actor_id = ?", tempActorID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("docledger/bun: delete pending document: %w", err)
	}
	return fromPendingModel(m)
}

// SweepPending deletes stashes older than ttl and reports how many were
// removed.
func (s *Store) SweepPending(ctx context.Context, ttl time.Duration) (int, error) {
	res, err := s.db.NewDelete().Model((*pendingModel)(nil)).
		Where("stashed_at < ?", time.Now().UTC().Add(-ttl)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("docledger/bun: sweep pending documents: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	return int(rows), nil
}
