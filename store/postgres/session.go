package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/session"
)

// StashPending saves the document, replacing any existing stash for the
// same temporary actor.
func (s *Store) StashPending(ctx context.Context, doc *session.PendingDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docledger/postgres: marshal pending document: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO docledger_pendings (temp_actor_id, data, stashed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (temp_actor_id)
		DO UPDATE SET data = EXCLUDED.data, stashed_at = EXCLUDED.stashed_at`,
		doc.TempActorID, data, doc.StashedAt,
	)
	if err != nil {
		return fmt.Errorf("docledger/postgres: stash pending document: %w", err)
	}
	return nil
}

// TakePending removes and returns the actor's stash.
func (s *Store) TakePending(ctx context.Context, tempActorID uuid.UUID) (*session.PendingDocument, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
		DELETE FROM docledger_pendings WHERE temp_actor_id = $1
		RETURNING data`,
		tempActorID,
	).Scan(&data)
	if err != nil {
		if isNoRows(err) {
			return nil, docledger.ErrNoPendingDocument
		}
		return nil, fmt.Errorf("docledger/postgres: take pending document: %w", err)
	}

	var doc session.PendingDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("docledger/postgres: unmarshal pending document: %w", err)
	}
	return &doc, nil
}

// SweepPending deletes stashes older than ttl and reports how many were
// removed.
func (s *Store) SweepPending(ctx context.Context, ttl time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM docledger_pendings WHERE stashed_at < $1`,
		time.Now().UTC().Add(-ttl),
	)
	if err != nil {
		return 0, fmt.Errorf("docledger/postgres: sweep pending documents: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
