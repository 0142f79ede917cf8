package middleware

import (
	"context"
	"time"

	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// Timeout returns middleware that enforces an execution deadline on
// top of whatever bound the driver already applied. When the deadline
// is exceeded the context is cancelled and the action should return
// context.DeadlineExceeded.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, _ *workflow.Run, _ *ledger.Event, next Handler) error {
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return next(ctx)
	}
}
