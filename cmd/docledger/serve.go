package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BetoIII/docledger/audit"
	"github.com/BetoIII/docledger/engine"
	"github.com/BetoIII/docledger/feed"
)

// serveOptions holds flags for the serve command.
type serveOptions struct {
	*rootOptions
	Listen string
}

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &serveOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Serve the websocket progress feed",
		Long:         "Start the websocket feed server so UI clients can watch live ledger progress, and run the pending-document janitor.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", ":8456", "listen address")

	return cmd
}

func serve(ctx context.Context, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(opts.rootOptions)
	l, err := openLedger(ctx, opts.rootOptions, logger)
	if err != nil {
		return err
	}

	// Mirror every run transition to the log as an audit trail.
	trail := audit.New(audit.RecorderFunc(func(_ context.Context, evt *audit.Event) error {
		logger.Info("audit",
			"action", evt.Action,
			"resource_id", evt.ResourceID,
			"outcome", evt.Outcome,
			"severity", evt.Severity,
		)
		return nil
	}), audit.WithLogger(logger))

	eng, err := engine.Build(l, engine.WithExtension(trail))
	if err != nil {
		return err
	}
	defer eng.Stop(context.Background()) //nolint:errcheck

	if err := eng.Janitor().Start(); err != nil {
		return err
	}

	handler := feed.NewHandler(eng.Runs(), eng.Broker(), logger)
	srv := feed.NewServer(eng.Broker(), handler, feed.WithLogger(logger))

	mux := http.NewServeMux()
	mux.Handle("/feed", srv)

	httpSrv := &http.Server{
		Addr:              opts.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("feed listening on %s\n", opts.Listen)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
