// Package client provides a Go client for the docledger feed protocol
// over WebSocket.
//
// Usage:
//
//	c, err := client.Dial("ws://localhost:8080/feed")
//	defer c.Close()
//
//	// Watch every workflow transition.
//	ch, err := c.Subscribe(ctx, stream.TopicFirehose)
//	for evt := range ch {
//	    fmt.Printf("%s: %s\n", evt.Type, evt.Topic)
//	}
//
//	// Fetch a run snapshot.
//	run, err := c.GetRun(ctx, runID)
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/BetoIII/docledger/backoff"
	"github.com/BetoIII/docledger/feed"
	"github.com/BetoIII/docledger/stream"
)

// Client is a feed protocol client connected to a remote docledger
// server.
type Client struct {
	url    string
	format string
	logger *slog.Logger
	codec  feed.Codec

	// Reconnection.
	reconnect  bool
	maxRetries int
	strategy   backoff.Strategy

	// Connection state.
	conn      net.Conn
	mu        sync.Mutex
	closed    atomic.Bool
	sessionID string

	// Request-response correlation.
	pending sync.Map // frameID → chan *feed.Frame

	// Subscriptions.
	subs sync.Map // topic → chan *stream.Event
}

// Dial connects to a feed server and performs the hello handshake.
func Dial(url string, opts ...Option) (*Client, error) {
	return DialContext(context.Background(), url, opts...)
}

// DialContext connects to a feed server with a context.
func DialContext(ctx context.Context, url string, opts ...Option) (*Client, error) {
	c := &Client{
		url:        url,
		format:     feed.CodecNameJSON,
		logger:     slog.Default(),
		maxRetries: 5,
		strategy:   backoff.DefaultReconnect(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.codec = feed.GetCodec(c.format)

	if err := c.connect(ctx); err != nil {
		return nil, fmt.Errorf("docledger/client: dial: %w", err)
	}

	go c.readLoop()

	return c, nil
}

// connect establishes the WebSocket connection and performs the hello
// handshake. The hello exchange is read directly since the readLoop
// hasn't started yet.
func (c *Client) connect(ctx context.Context) error {
	conn, _, _, err := ws.Dial(ctx, c.url)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	// The hello frame is always JSON; the negotiated codec applies to
	// everything after it.
	hello, err := feed.NewRequestFrame(feed.GenerateFrameID(), feed.MethodHello, feed.HelloRequest{
		Format: c.format,
	})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("marshal hello frame: %w", err)
	}
	helloData, err := json.Marshal(hello)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("marshal hello frame: %w", err)
	}
	if err := wsutil.WriteClientText(conn, helloData); err != nil {
		_ = conn.Close()
		return fmt.Errorf("write hello frame: %w", err)
	}

	type readResult struct {
		resp *feed.Frame
		err  error
	}
	resultCh := make(chan readResult, 1)

	go func() {
		data, _, readErr := wsutil.ReadServerData(conn)
		if readErr != nil {
			resultCh <- readResult{err: fmt.Errorf("read hello response: %w", readErr)}
			return
		}
		frame, decodeErr := c.decode(data)
		if decodeErr != nil {
			resultCh <- readResult{err: fmt.Errorf("decode hello response: %w", decodeErr)}
			return
		}
		resultCh <- readResult{resp: frame}
	}()

	select {
	case result := <-resultCh:
		if result.err != nil {
			_ = conn.Close()
			return result.err
		}
		resp := result.resp
		if resp.Type == feed.FrameErr {
			_ = conn.Close()
			msg := "unknown error"
			if resp.Error != nil {
				msg = resp.Error.Message
			}
			return fmt.Errorf("hello rejected: %s", msg)
		}
		var helloResp feed.HelloResponse
		if len(resp.Data) > 0 {
			if unmarshalErr := json.Unmarshal(resp.Data, &helloResp); unmarshalErr != nil {
				c.logger.Warn("feed client: bad hello response data", slog.String("error", unmarshalErr.Error()))
			}
		}
		c.sessionID = helloResp.SessionID
		c.logger.Info("feed client connected",
			slog.String("session_id", c.sessionID),
			slog.String("format", helloResp.Format),
		)
		return nil
	case <-ctx.Done():
		_ = conn.Close()
		return ctx.Err()
	case <-time.After(10 * time.Second):
		_ = conn.Close()
		return fmt.Errorf("hello timeout")
	}
}

// decode decodes a frame with the negotiated codec, falling back to
// JSON. The server writes pre-negotiation errors as JSON text frames
// even when the client asked for msgpack.
func (c *Client) decode(data []byte) (*feed.Frame, error) {
	frame, err := c.codec.Decode(data)
	if err != nil && c.codec.Name() != feed.CodecNameJSON {
		return (&feed.JSONCodec{}).Decode(data)
	}
	return frame, err
}

// readLoop reads frames from the WebSocket and dispatches them.
func (c *Client) readLoop() {
	for {
		if c.closed.Load() {
			return
		}

		data, _, err := wsutil.ReadServerData(c.conn)
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.logger.Warn("feed client read error", slog.String("error", err.Error()))
			if c.reconnect {
				c.tryReconnect()
			}
			return
		}

		frame, decodeErr := c.decode(data)
		if decodeErr != nil {
			c.logger.Warn("feed client: invalid frame", slog.String("error", decodeErr.Error()))
			continue
		}

		switch frame.Type {
		case feed.FrameResponse, feed.FrameErr:
			// Correlate with pending request.
			if val, ok := c.pending.Load(frame.CorrelID); ok {
				ch := val.(chan *feed.Frame) //nolint:errcheck // pending map always stores chan *feed.Frame
				select {
				case ch <- frame:
				default:
				}
			}
		case feed.FrameEvent:
			// Event payloads are JSON inside the frame regardless of
			// the wire codec.
			var evt stream.Event
			if json.Unmarshal(frame.Data, &evt) == nil {
				c.dispatchEvent(&evt)
			}
		case feed.FramePong:
			// Ignore pong frames.
		}
	}
}

// dispatchEvent fans an incoming event into every subscription it
// matches. Events carry their run-specific topic, so a firehose or
// kind-scoped subscriber matches through the broader topic names.
func (c *Client) dispatchEvent(evt *stream.Event) {
	seen := make(map[string]bool, 4)
	for _, topic := range []string{
		evt.Topic,
		stream.KindTopic(evt.Kind),
		stream.TopicWorkflows,
		stream.TopicFirehose,
	} {
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		val, ok := c.subs.Load(topic)
		if !ok {
			continue
		}
		ch := val.(chan *stream.Event) //nolint:errcheck // subs map always stores chan *stream.Event
		select {
		case ch <- evt:
		default:
			// Drop if subscriber is slow.
		}
	}
}

// tryReconnect attempts to reconnect and replay subscriptions.
func (c *Client) tryReconnect() {
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		delay := c.strategy.Delay(attempt)
		c.logger.Info("feed client reconnecting",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)
		time.Sleep(delay)

		if err := c.connect(context.Background()); err != nil {
			c.logger.Warn("feed client reconnect failed", slog.String("error", err.Error()))
			continue
		}

		// Re-establish server-side subscriptions for live channels.
		c.subs.Range(func(key, _ any) bool {
			topic := key.(string) //nolint:errcheck // subs map keys are topic strings
			if err := c.resubscribe(topic); err != nil {
				c.logger.Warn("feed client resubscribe failed",
					slog.String("topic", topic),
					slog.String("error", err.Error()),
				)
			}
			return true
		})

		c.logger.Info("feed client reconnected")
		go c.readLoop()
		return
	}
	c.logger.Error("feed client: max reconnection attempts reached")
}

// request sends a request frame and waits for the correlated response.
func (c *Client) request(ctx context.Context, method string, data any) (*feed.Frame, error) {
	frame, err := feed.NewRequestFrame(feed.GenerateFrameID(), method, data)
	if err != nil {
		return nil, fmt.Errorf("marshal request data: %w", err)
	}

	respCh := make(chan *feed.Frame, 1)
	c.pending.Store(frame.ID, respCh)
	defer c.pending.Delete(frame.ID)

	if err := c.writeFrame(frame); err != nil {
		return nil, err
	}

	select {
	case resp := <-respCh:
		if resp.Type == feed.FrameErr {
			msg := "unknown error"
			if resp.Error != nil {
				msg = resp.Error.Message
			}
			return nil, fmt.Errorf("feed error: %s", msg)
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// writeFrame encodes and sends a frame over the WebSocket. JSON frames
// travel as text messages, msgpack frames as binary.
func (c *Client) writeFrame(frame *feed.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.codec.Encode(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if c.codec.Name() == feed.CodecNameMsgpack {
		return wsutil.WriteClientBinary(c.conn, data)
	}
	return wsutil.WriteClientText(c.conn, data)
}

// SessionID returns the session ID assigned by the server.
func (c *Client) SessionID() string { return c.sessionID }

// Close closes the client connection.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}

	// Close all subscription channels.
	c.subs.Range(func(key, val any) bool {
		ch := val.(chan *stream.Event) //nolint:errcheck // subs map always stores chan *stream.Event
		close(ch)
		c.subs.Delete(key)
		return true
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
