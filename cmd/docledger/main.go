// Command docledger drives document flows from the terminal: run a flow
// and watch its ledger stream, serve the websocket feed, or sweep
// expired pending documents.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	Verbose     bool
	Store       string // "memory" | "redis" | "postgres" | "bun"
	RedisAddr   string
	PostgresDSN string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "docledger",
		Short: "Document ledger workflow engine",
		Long: `docledger runs simulated document workflows (registration, sharing,
licensing, co-op publishing) and records each one as an ordered ledger
event sequence.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.Store {
			case "memory", "redis", "postgres", "bun":
				return nil
			default:
				return fmt.Errorf("invalid store %q: must be memory, redis, postgres, or bun", opts.Store)
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "memory", "store backend (memory|redis|postgres|bun)")
	cmd.PersistentFlags().StringVar(&opts.RedisAddr, "redis-addr", "localhost:6379", "redis address for --store redis")
	cmd.PersistentFlags().StringVar(&opts.PostgresDSN, "postgres-dsn", "", "connection string for --store postgres/bun")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newSweepCommand(opts))

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "docledger:", err)
		os.Exit(1)
	}
}
