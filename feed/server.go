package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"golang.org/x/time/rate"

	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/stream"
)

// Server upgrades HTTP requests to websocket feed connections and
// bridges broker subscriptions to them. It implements http.Handler so it
// can mount directly on a mux.
type Server struct {
	broker       *stream.Broker
	handler      *Handler
	defaultCodec Codec
	conns        *ConnectionManager
	logger       *slog.Logger

	// inbound frame rate limit applied per connection.
	frameRate  rate.Limit
	frameBurst int
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithCodec sets the default codec. Clients can override via the hello
// frame's format field.
func WithCodec(codec Codec) ServerOption {
	return func(s *Server) { s.defaultCodec = codec }
}

// WithLogger sets the logger for the server.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithFrameRate caps inbound frames per connection. The default allows
// 50 frames per second with a burst of 100.
func WithFrameRate(r rate.Limit, burst int) ServerOption {
	return func(s *Server) {
		s.frameRate = r
		s.frameBurst = burst
	}
}

// NewServer creates a feed server bridging the given broker.
func NewServer(broker *stream.Broker, handler *Handler, opts ...ServerOption) *Server {
	s := &Server{
		broker:       broker,
		handler:      handler,
		defaultCodec: &JSONCodec{},
		conns:        NewConnectionManager(),
		logger:       slog.Default(),
		frameRate:    50,
		frameBurst:   100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Broker returns the underlying stream broker.
func (s *Server) Broker() *stream.Broker { return s.broker }

// Connections returns the connection manager.
func (s *Server) Connections() *ConnectionManager { return s.conns }

// ServeHTTP upgrades the request and runs the connection until the
// client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Warn("feed upgrade failed", "error", err)
		return
	}
	go func() {
		defer conn.Close() //nolint:errcheck // nothing to do on close error
		if err := s.serveConn(conn); err != nil {
			s.logger.Debug("feed connection ended", "error", err)
		}
	}()
}

// serveConn runs the frame loop for a single websocket connection.
func (s *Server) serveConn(conn net.Conn) error {
	connID := id.NewSubscriberID().String()
	s.logger.Info("feed connected", "conn_id", connID)

	// Wait for the hello frame. It is always JSON, before codec
	// negotiation.
	data, _, err := wsutil.ReadClientData(conn)
	if err != nil {
		return fmt.Errorf("feed: read hello frame: %w", err)
	}

	var hello Frame
	if err := json.Unmarshal(data, &hello); err != nil {
		s.writeRaw(conn, &JSONCodec{}, NewErrorFrame("", ErrCodeBadRequest, "invalid hello frame"))
		return fmt.Errorf("feed: unmarshal hello frame: %w", err)
	}
	if hello.Method != MethodHello {
		s.writeRaw(conn, &JSONCodec{}, NewErrorFrame(hello.ID, ErrCodeBadRequest, "first frame must be hello"))
		return fmt.Errorf("feed: expected hello frame, got %q", hello.Method)
	}

	var helloReq HelloRequest
	if len(hello.Data) > 0 {
		if err := json.Unmarshal(hello.Data, &helloReq); err != nil {
			s.writeRaw(conn, &JSONCodec{}, NewErrorFrame(hello.ID, ErrCodeBadRequest, "invalid hello data"))
			return err
		}
	}

	codec := s.defaultCodec
	if helloReq.Format != "" {
		codec = GetCodec(helloReq.Format)
	}

	limiter := rate.NewLimiter(s.frameRate, s.frameBurst)
	feedConn := NewConnection(connID, codec, limiter)
	s.conns.Add(feedConn)
	defer func() {
		s.broker.RemoveSubscriber(connID)
		s.conns.Remove(connID)
		s.logger.Info("feed disconnected", "conn_id", connID)
	}()

	resp, err := NewResponseFrame(hello.ID, HelloResponse{
		Format:    codec.Name(),
		SessionID: connID,
	})
	if err != nil {
		return fmt.Errorf("feed: marshal hello response: %w", err)
	}
	if err := s.writeRaw(conn, codec, resp); err != nil {
		return err
	}

	// Forward broker events to the socket until the subscriber closes.
	sub := s.broker.Subscribe(connID)
	go s.forwardEvents(conn, codec, sub)

	for {
		data, _, err := wsutil.ReadClientData(conn)
		if err != nil {
			return nil // connection closed
		}

		feedConn.Touch()

		if !feedConn.Allow() {
			s.writeRaw(conn, codec, NewErrorFrame("", ErrCodeTooManyFrames, "frame rate exceeded"))
			continue
		}

		frame, decErr := codec.Decode(data)
		if decErr != nil {
			s.writeRaw(conn, codec, NewErrorFrame("", ErrCodeBadRequest, "invalid frame: "+decErr.Error()))
			continue
		}

		if frame.Type == FramePing {
			pong := &Frame{
				ID:        generateFrameID(),
				Type:      FramePong,
				CorrelID:  frame.ID,
				Timestamp: frame.Timestamp,
			}
			s.writeRaw(conn, codec, pong)
			continue
		}

		// Credit replenishment frames carry no method.
		if frame.Credits > 0 && frame.Method == "" {
			sub.AddCredits(int64(frame.Credits))
			continue
		}

		respFrame := s.handler.Handle(context.Background(), frame)
		if respFrame == nil {
			continue
		}

		// Apply subscription side effects after a successful response.
		if respFrame.Type == FrameResponse {
			switch frame.Method {
			case MethodSubscribe:
				var req SubscribeRequest
				if json.Unmarshal(frame.Data, &req) == nil {
					s.broker.SubscribeTo(connID, req.Topic)
					feedConn.AddSubscription(req.Topic)
					if req.Credits > 0 {
						sub.AddCredits(int64(req.Credits))
					}
				}
			case MethodUnsubscribe:
				var req UnsubscribeRequest
				if json.Unmarshal(frame.Data, &req) == nil {
					s.broker.Unsubscribe(connID, req.Topic)
					feedConn.RemoveSubscription(req.Topic)
				}
			}
		}

		if err := s.writeRaw(conn, codec, respFrame); err != nil {
			s.logger.Warn("feed write failed", "conn_id", connID, "error", err)
		}
	}
}

// forwardEvents reads from the subscriber channel and writes event
// frames to the websocket.
func (s *Server) forwardEvents(conn net.Conn, codec Codec, sub *stream.Subscriber) {
	for evt := range sub.C() {
		frame, err := NewEventFrame(evt.Topic, evt)
		if err != nil {
			continue
		}
		if err := s.writeRaw(conn, codec, frame); err != nil {
			return // connection gone
		}
	}
}

// writeRaw encodes and writes a frame. JSON frames go as text messages,
// msgpack as binary.
func (s *Server) writeRaw(conn net.Conn, codec Codec, frame *Frame) error {
	data, err := codec.Encode(frame)
	if err != nil {
		return err
	}
	op := ws.OpText
	if codec.Name() == CodecNameMsgpack {
		op = ws.OpBinary
	}
	return wsutil.WriteServerMessage(conn, op, data)
}
