package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BetoIII/docledger/engine"
	"github.com/BetoIII/docledger/flows"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/notify"
	"github.com/BetoIII/docledger/stream"
	"github.com/BetoIII/docledger/workflow"
)

// runOptions holds flags for the run command.
type runOptions struct {
	*rootOptions
	Kind       string
	Title      string
	FilePath   string
	OwnerEmail string
	DocumentID string
	Emails     []string
	Message    string
	FirmName   string
	Fee        float64
	Price      float64
	Category   string
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one document flow and stream its ledger",
		Long: `Run a document flow to completion, printing each ledger event as it
transitions and the JSON export once the run completes.

Examples:
  docledger run --kind registration --title "Deed of Trust" --file ./deed.pdf
  docledger run --kind external_share --doc doc_01h... --emails alice@example.com
  docledger run --kind licensing --doc doc_01h... --emails bob@example.com --fee 49.99
  docledger run --kind coop_share --doc doc_01h... --price 100 --category real-estate`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "registration", "flow kind to run")
	cmd.Flags().StringVar(&opts.Title, "title", "", "document title (registration)")
	cmd.Flags().StringVar(&opts.FilePath, "file", "", "document file path (registration)")
	cmd.Flags().StringVar(&opts.OwnerEmail, "owner", "", "owner email (registration)")
	cmd.Flags().StringVar(&opts.DocumentID, "doc", "", "document ID (sharing flows)")
	cmd.Flags().StringSliceVar(&opts.Emails, "emails", nil, "recipient emails")
	cmd.Flags().StringVar(&opts.Message, "message", "", "share message")
	cmd.Flags().StringVar(&opts.FirmName, "firm", "", "firm name")
	cmd.Flags().Float64Var(&opts.Fee, "fee", 0, "monthly license fee")
	cmd.Flags().Float64Var(&opts.Price, "price", 0, "co-op listing price")
	cmd.Flags().StringVar(&opts.Category, "category", "", "co-op listing category")

	return cmd
}

func runFlow(ctx context.Context, opts *runOptions) error {
	kind := workflow.Kind(opts.Kind)
	if !kind.Valid() {
		return fmt.Errorf("unknown kind %q (one of: %v)", opts.Kind, workflow.Kinds())
	}

	logger := newLogger(opts.rootOptions)
	l, err := openLedger(ctx, opts.rootOptions, logger)
	if err != nil {
		return err
	}

	sink := notify.NewChannelSink(32, nil)
	eng, err := engine.Build(l, engine.WithNotificationSink(sink))
	if err != nil {
		return err
	}
	defer eng.Stop(context.Background()) //nolint:errcheck

	// Stream the run's transitions to stdout.
	sub := eng.Broker().Subscribe("cli", stream.TopicFirehose)
	go func() {
		for evt := range sub.C() {
			var data stream.RunEventData
			if err := json.Unmarshal(evt.Data, &data); err != nil {
				continue
			}
			switch evt.Type {
			case stream.EventProcessing:
				fmt.Printf("  … %s\n", data.EventName)
			case stream.EventCompleted:
				fmt.Printf("  ✓ %s (%dms)\n", data.EventName, data.ElapsedMs)
			case stream.EventFailed:
				fmt.Printf("  ✗ %s: %s\n", data.EventName, data.Error)
			case stream.EventWorkflowCompleted:
				fmt.Printf("run %s completed\n", data.RunID)
			case stream.EventWorkflowFailed:
				fmt.Printf("run %s failed: %s\n", data.RunID, data.Error)
			}
		}
	}()

	h, err := startByKind(ctx, eng, kind, opts)
	if err != nil {
		return err
	}

	fmt.Printf("started %s run %s\n", kind, h.RunID())
	<-h.Done()

	// Drain milestone toasts.
	for {
		select {
		case n := <-sink.Notifications():
			fmt.Printf("» %s — %s\n", n.Title, n.Description)
			continue
		default:
		}
		break
	}

	out, err := eng.ExportJSON(kind)
	if err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintln(os.Stdout, out)
	}
	return nil
}

func startByKind(ctx context.Context, eng *engine.Engine, kind workflow.Kind, opts *runOptions) (*workflow.Handle, error) {
	var docID id.DocumentID
	if opts.DocumentID != "" {
		parsed, err := id.ParseDocumentID(opts.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("invalid --doc: %w", err)
		}
		docID = parsed
	}

	switch kind {
	case workflow.KindRegistration:
		return eng.StartRegistration(ctx, flows.RegistrationParams{
			Title:      opts.Title,
			FilePath:   opts.FilePath,
			OwnerEmail: opts.OwnerEmail,
		})
	case workflow.KindExternalShare:
		return eng.StartExternalShare(ctx, flows.ExternalShareParams{
			DocumentID: docID,
			Emails:     opts.Emails,
			Message:    opts.Message,
		})
	case workflow.KindFirmShare:
		return eng.StartFirmShare(ctx, flows.FirmShareParams{
			DocumentID: docID,
			FirmName:   opts.FirmName,
		})
	case workflow.KindLicensing:
		return eng.StartLicensing(ctx, flows.LicensingParams{
			DocumentID: docID,
			Emails:     opts.Emails,
			MonthlyFee: opts.Fee,
		})
	case workflow.KindCoopShare:
		return eng.StartCoopShare(ctx, flows.CoopShareParams{
			DocumentID: docID,
			Price:      opts.Price,
			Category:   opts.Category,
		})
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}
