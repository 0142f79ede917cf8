package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/workflow"
)

// CreateRun persists a new run.
func (s *Store) CreateRun(ctx context.Context, run *workflow.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("docledger/postgres: marshal run: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO docledger_runs (id, kind, document_id, state, data, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID.String(), string(run.Kind), run.DocumentID.String(),
		string(run.State), data, run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return docledger.ErrRunAlreadyExists
		}
		return fmt.Errorf("docledger/postgres: create run: %w", err)
	}
	return nil
}

// UpdateRun persists changes to an existing run.
func (s *Store) UpdateRun(ctx context.Context, run *workflow.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("docledger/postgres: marshal run: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE docledger_runs
		SET state = $2, data = $3, completed_at = $4, updated_at = NOW()
		WHERE id = $1`,
		run.ID.String(), string(run.State), data, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("docledger/postgres: update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return docledger.ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID id.RunID) (*workflow.Run, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM docledger_runs WHERE id = $1`, runID.String(),
	).Scan(&data)
	if err != nil {
		if isNoRows(err) {
			return nil, docledger.ErrRunNotFound
		}
		return nil, fmt.Errorf("docledger/postgres: get run: %w", err)
	}

	var run workflow.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("docledger/postgres: unmarshal run: %w", err)
	}
	return &run, nil
}

// ListRuns returns runs matching the given options, newest first.
func (s *Store) ListRuns(ctx context.Context, opts workflow.ListOpts) ([]*workflow.Run, error) {
	var (
		conds []string
		args  []any
	)
	if opts.Kind != "" {
		args = append(args, string(opts.Kind))
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if opts.State != "" {
		args = append(args, string(opts.State))
		conds = append(conds, fmt.Sprintf("state = $%d", len(args)))
	}

	query := `SELECT data FROM docledger_runs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("docledger/postgres: list runs: %w", err)
	}
	defer rows.Close()

	var runs []*workflow.Run
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("docledger/postgres: scan run: %w", err)
		}
		var run workflow.Run
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("docledger/postgres: unmarshal run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docledger/postgres: list runs: %w", err)
	}
	return runs, nil
}
