// Package middleware provides composable middleware for step actions.
//
// A [Middleware] is a function that wraps a step action. Middleware are
// composed into a chain using [Chain] and applied around each real
// backend call a flow substitutes for a simulated delay. They are
// applied right-to-left: the first middleware in the slice is the
// outermost wrapper.
//
//	// logging → recover → action
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] — logs event name, run, duration, and outcome
//   - [Recover] — catches panics and converts them to errors
//   - [Timeout] — cancels the action context after a configured duration
//   - [Tracing] — wraps execution in an OpenTelemetry span
//   - [Metrics] — records per-step duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, run *workflow.Run, evt *ledger.Event, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting (e.g., circuit breaker, rate limiting).
package middleware
