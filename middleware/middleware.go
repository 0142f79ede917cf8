// Package middleware provides composable middleware for step actions.
// Middleware wraps action calls synchronously and can modify execution
// (recover from panics, log, add tracing, etc.).
package middleware

import (
	"context"

	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// Handler is the terminal function that executes step action logic.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the run and ledger event being
// executed, and the next handler to call. Middleware MUST call next to
// continue the chain (unless short-circuiting on error).
type Middleware func(ctx context.Context, run *workflow.Run, evt *ledger.Event, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, tracing) executes as:
//
//	logging → recover → tracing → action
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, run *workflow.Run, evt *ledger.Event, next Handler) error {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, run, evt, prev)
			}
		}
		return h(ctx)
	}
}

// Wrapper converts the chain into the driver's ActionWrapper form.
func Wrapper(mw Middleware) workflow.ActionWrapper {
	return func(ctx context.Context, run *workflow.Run, evt *ledger.Event, action workflow.StepAction) error {
		return mw(ctx, run, evt, func(ctx context.Context) error {
			return action(ctx, run, evt)
		})
	}
}
