package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/workflow"
)

// CreateRun persists a new run.
func (s *Store) CreateRun(ctx context.Context, run *workflow.Run) error {
	key := runKey(run.ID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check run existence: %w", err)
	}
	if exists > 0 {
		return docledger.ErrRunAlreadyExists
	}
	return s.writeRun(ctx, run)
}

// UpdateRun persists changes to an existing run.
func (s *Store) UpdateRun(ctx context.Context, run *workflow.Run) error {
	exists, err := s.client.Exists(ctx, runKey(run.ID)).Result()
	if err != nil {
		return fmt.Errorf("check run existence: %w", err)
	}
	if exists == 0 {
		return docledger.ErrRunNotFound
	}
	return s.writeRun(ctx, run)
}

func (s *Store) writeRun(ctx context.Context, run *workflow.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, runKey(run.ID), map[string]any{
		"data":       data,
		"kind":       string(run.Kind),
		"state":      string(run.State),
		"started_at": run.StartedAt.UnixNano(),
	})
	pipe.SAdd(ctx, runIDsKey, run.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID id.RunID) (*workflow.Run, error) {
	data, err := s.client.HGet(ctx, runKey(runID), "data").Result()
	if err == redis.Nil {
		return nil, docledger.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	var run workflow.Run
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &run, nil
}

// ListRuns returns runs matching the given options, newest first.
func (s *Store) ListRuns(ctx context.Context, opts workflow.ListOpts) ([]*workflow.Run, error) {
	ids, err := s.client.SMembers(ctx, runIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list run ids: %w", err)
	}

	runs := make([]*workflow.Run, 0, len(ids))
	for _, raw := range ids {
		runID, err := id.Parse(raw)
		if err != nil {
			s.logger.Warn("skipping malformed run id", "id", raw, "error", err)
			continue
		}
		run, err := s.GetRun(ctx, runID)
		if err == docledger.ErrRunNotFound {
			// Index member outlived its hash; drop it from the set.
			s.client.SRem(ctx, runIDsKey, raw)
			continue
		}
		if err != nil {
			return nil, err
		}
		if opts.Kind != "" && run.Kind != opts.Kind {
			continue
		}
		if opts.State != "" && run.State != opts.State {
			continue
		}
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(runs) {
			return []*workflow.Run{}, nil
		}
		runs = runs[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(runs) {
		runs = runs[:opts.Limit]
	}
	return runs, nil
}
