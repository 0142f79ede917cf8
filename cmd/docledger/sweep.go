package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/engine"
)

// sweepOptions holds flags for the sweep command.
type sweepOptions struct {
	*rootOptions
	TTL time.Duration
}

func newSweepCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &sweepOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:          "sweep",
		Short:        "Sweep expired pending documents once",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sweep(cmd.Context(), opts)
		},
	}

	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "pending document time-to-live")

	return cmd
}

func sweep(ctx context.Context, opts *sweepOptions) error {
	logger := newLogger(opts.rootOptions)
	l, err := openLedger(ctx, opts.rootOptions, logger, docledger.WithPendingTTL(opts.TTL))
	if err != nil {
		return err
	}

	eng, err := engine.Build(l)
	if err != nil {
		return err
	}
	defer eng.Stop(context.Background()) //nolint:errcheck

	removed, err := eng.Janitor().Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("swept %d expired pending document(s)\n", removed)
	return nil
}
