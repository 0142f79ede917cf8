package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// Logging returns middleware that logs step action start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, run *workflow.Run, evt *ledger.Event, next Handler) error {
		logger.Info("step action started",
			slog.String("event", evt.Name),
			slog.String("run_id", run.ID.String()),
			slog.String("kind", string(run.Kind)),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("step action failed",
				slog.String("event", evt.Name),
				slog.String("run_id", run.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("step action completed",
				slog.String("event", evt.Name),
				slog.String("run_id", run.ID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
