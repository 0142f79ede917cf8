package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/session"
)

// StashPending saves the document, replacing any existing stash for the
// same temporary actor.
func (s *Store) StashPending(ctx context.Context, doc *session.PendingDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal pending document: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, pendingKey(doc.TempActorID), data, 0)
	pipe.SAdd(ctx, pendingSet, doc.TempActorID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stash pending document: %w", err)
	}
	return nil
}

// TakePending removes and returns the actor's stash.
func (s *Store) TakePending(ctx context.Context, tempActorID uuid.UUID) (*session.PendingDocument, error) {
	key := pendingKey(tempActorID)

	data, err := s.client.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return nil, docledger.ErrNoPendingDocument
	}
	if err != nil {
		return nil, fmt.Errorf("take pending document: %w", err)
	}
	s.client.SRem(ctx, pendingSet, tempActorID.String())

	var doc session.PendingDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal pending document: %w", err)
	}
	return &doc, nil
}

// SweepPending deletes stashes older than ttl and reports how many were
// removed.
func (s *Store) SweepPending(ctx context.Context, ttl time.Duration) (int, error) {
	members, err := s.client.SMembers(ctx, pendingSet).Result()
	if err != nil {
		return 0, fmt.Errorf("list pending stashes: %w", err)
	}

	removed := 0
	for _, raw := range members {
		actorID, err := uuid.Parse(raw)
		if err != nil {
			s.client.SRem(ctx, pendingSet, raw)
			continue
		}

		data, err := s.client.Get(ctx, pendingKey(actorID)).Result()
		if err == redis.Nil {
			s.client.SRem(ctx, pendingSet, raw)
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("read pending stash: %w", err)
		}

		var doc session.PendingDocument
		if err := json.Unmarshal([]byte(data), &doc); err != nil || doc.Expired(ttl) {
			pipe := s.client.TxPipeline()
			pipe.Del(ctx, pendingKey(actorID))
			pipe.SRem(ctx, pendingSet, raw)
			if _, err := pipe.Exec(ctx); err != nil {
				return removed, fmt.Errorf("sweep pending stash: %w", err)
			}
			removed++
		}
	}
	return removed, nil
}
