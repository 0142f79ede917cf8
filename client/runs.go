package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BetoIII/docledger/feed"
	"github.com/BetoIII/docledger/workflow"
)

// GetRun retrieves a run snapshot by ID.
func (c *Client) GetRun(ctx context.Context, runID string) (*workflow.Run, error) {
	resp, err := c.request(ctx, feed.MethodRunGet, feed.RunGetRequest{
		RunID: runID,
	})
	if err != nil {
		return nil, err
	}

	var run workflow.Run
	if err := json.Unmarshal(resp.Data, &run); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &run, nil
}

// ListRuns lists runs on the server, optionally filtered by flow kind
// and state. Zero values mean no filter.
func (c *Client) ListRuns(ctx context.Context, kind, state string, limit int) ([]*workflow.Run, error) {
	resp, err := c.request(ctx, feed.MethodRunList, feed.RunListRequest{
		Kind:  kind,
		State: state,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	var runs []*workflow.Run
	if err := json.Unmarshal(resp.Data, &runs); err != nil {
		return nil, fmt.Errorf("unmarshal runs: %w", err)
	}
	return runs, nil
}
