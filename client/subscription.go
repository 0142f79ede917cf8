package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BetoIII/docledger/feed"
	"github.com/BetoIII/docledger/stream"
)

// Subscribe subscribes to a stream topic and returns a channel of
// events. The channel is closed when the client disconnects or
// Unsubscribe is called.
//
// Topics follow the docledger stream convention:
//   - "workflow:<runID>" — Events for a specific run
//   - "kind:<kind>"      — Events for every run of a flow kind
//   - "workflows"        — All run lifecycle events
//   - "firehose"         — Everything
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *stream.Event, error) {
	_, err := c.request(ctx, feed.MethodSubscribe, feed.SubscribeRequest{
		Topic: topic,
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %q: %w", topic, err)
	}

	ch := make(chan *stream.Event, 64)
	c.subs.Store(topic, ch)

	return ch, nil
}

// resubscribe re-sends a subscribe request after a reconnect, keeping
// the existing local channel.
func (c *Client) resubscribe(topic string) error {
	_, err := c.request(context.Background(), feed.MethodSubscribe, feed.SubscribeRequest{
		Topic: topic,
	})
	return err
}

// Unsubscribe removes a subscription.
func (c *Client) Unsubscribe(ctx context.Context, topic string) error {
	_, err := c.request(ctx, feed.MethodUnsubscribe, feed.UnsubscribeRequest{
		Topic: topic,
	})

	// Close and remove the local channel regardless.
	if val, ok := c.subs.LoadAndDelete(topic); ok {
		ch := val.(chan *stream.Event) //nolint:errcheck // subs map always stores chan *stream.Event
		close(ch)
	}

	return err
}

// Watch subscribes to events for a specific run. This is a convenience
// method that subscribes to "workflow:<runID>".
func (c *Client) Watch(ctx context.Context, runID string) (<-chan *stream.Event, error) {
	return c.Subscribe(ctx, stream.WorkflowTopic(runID))
}

// Stats retrieves broker statistics from the server.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.request(ctx, feed.MethodStats, nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}
