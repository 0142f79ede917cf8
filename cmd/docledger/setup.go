package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/BetoIII/docledger"
	bunstore "github.com/BetoIII/docledger/store/bun"
	"github.com/BetoIII/docledger/store/memory"
	"github.com/BetoIII/docledger/store/postgres"
	"github.com/BetoIII/docledger/store/redis"
)

// newLogger builds the CLI logger honoring --verbose.
func newLogger(opts *rootOptions) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openLedger builds a Ledger backed by the selected store, migrated and
// pinged.
func openLedger(ctx context.Context, opts *rootOptions, logger *slog.Logger, extra ...docledger.Option) (*docledger.Ledger, error) {
	var store docledger.Storer
	switch opts.Store {
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: opts.RedisAddr})
		store = redis.New(client, redis.WithLogger(logger))
	case "postgres":
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("--postgres-dsn is required with --store postgres")
		}
		s, err := postgres.New(ctx, opts.PostgresDSN, postgres.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		store = s
	case "bun":
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("--postgres-dsn is required with --store bun")
		}
		store = bunstore.Open(opts.PostgresDSN, bunstore.WithLogger(logger))
	default:
		store = memory.New()
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	if err := store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping store: %w", err)
	}

	all := append([]docledger.Option{
		docledger.WithStore(store),
		docledger.WithLogger(logger),
	}, extra...)
	return docledger.New(all...)
}
