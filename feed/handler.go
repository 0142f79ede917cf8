package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/stream"
	"github.com/BetoIII/docledger/workflow"
)

// Handler dispatches feed request frames to run lookups and broker
// operations. Subscription side effects are applied by the Server, which
// owns the websocket; the handler only validates and answers.
type Handler struct {
	runs   workflow.Store
	broker *stream.Broker
	logger *slog.Logger
}

// NewHandler creates a new feed method handler.
func NewHandler(runs workflow.Store, broker *stream.Broker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{runs: runs, broker: broker, logger: logger}
}

// Handle processes a single request frame and returns a response.
func (h *Handler) Handle(ctx context.Context, frame *Frame) *Frame {
	switch frame.Method {
	case MethodRunGet:
		return h.handleRunGet(ctx, frame)
	case MethodRunList:
		return h.handleRunList(ctx, frame)
	case MethodSubscribe:
		return h.handleSubscribe(frame)
	case MethodUnsubscribe:
		return h.handleUnsubscribe(frame)
	case MethodStats:
		return h.handleStats(frame)
	default:
		return NewErrorFrame(frame.ID, ErrCodeMethodNotFound, "unknown method: "+frame.Method)
	}
}

// mustResponseFrame creates a response frame, returning an error frame on
// marshal failure.
func mustResponseFrame(frameID string, data any) *Frame {
	resp, err := NewResponseFrame(frameID, data)
	if err != nil {
		return NewErrorFrame(frameID, ErrCodeInternal, "marshal response: "+err.Error())
	}
	return resp
}

func (h *Handler) handleRunGet(ctx context.Context, frame *Frame) *Frame {
	var req RunGetRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}

	runID, err := id.ParseRunID(req.RunID)
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid run id: "+err.Error())
	}

	run, err := h.runs.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, docledger.ErrRunNotFound) {
			return NewErrorFrame(frame.ID, ErrCodeNotFound, "run not found")
		}
		return NewErrorFrame(frame.ID, ErrCodeInternal, "get run: "+err.Error())
	}
	return mustResponseFrame(frame.ID, run)
}

func (h *Handler) handleRunList(ctx context.Context, frame *Frame) *Frame {
	var req RunListRequest
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
		}
	}

	runs, err := h.runs.ListRuns(ctx, workflow.ListOpts{
		Kind:  workflow.Kind(req.Kind),
		State: workflow.RunState(req.State),
		Limit: req.Limit,
	})
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeInternal, "list runs: "+err.Error())
	}
	return mustResponseFrame(frame.ID, runs)
}

func (h *Handler) handleSubscribe(frame *Frame) *Frame {
	var req SubscribeRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}
	if err := stream.ValidateTopic(req.Topic); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid topic: "+err.Error())
	}
	return mustResponseFrame(frame.ID, map[string]string{"topic": req.Topic, "status": "subscribed"})
}

func (h *Handler) handleUnsubscribe(frame *Frame) *Frame {
	var req UnsubscribeRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}
	return mustResponseFrame(frame.ID, map[string]string{"topic": req.Topic, "status": "unsubscribed"})
}

func (h *Handler) handleStats(frame *Frame) *Frame {
	return mustResponseFrame(frame.ID, h.broker.Stats())
}
