package client

import (
	"log/slog"

	"github.com/BetoIII/docledger/backoff"
)

// Option configures a Client.
type Option func(*Client)

// WithFormat sets the wire format for frame encoding.
// Supported values: "json" (default), "msgpack".
func WithFormat(format string) Option {
	return func(c *Client) { c.format = format }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithReconnect enables automatic reconnection. The strategy controls
// the delay before each attempt; pass nil for the default jittered
// exponential.
func WithReconnect(maxRetries int, strategy backoff.Strategy) Option {
	return func(c *Client) {
		c.reconnect = true
		c.maxRetries = maxRetries
		if strategy != nil {
			c.strategy = strategy
		}
	}
}
