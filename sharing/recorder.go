package sharing

import (
	"context"
	"time"

	"github.com/BetoIII/docledger/workflow"
)

// Recorder merges completed workflow runs into the sharing aggregate.
// Register it as an extension; it reacts to workflow completion only.
// Merge failures surface through the registry's hook error logging.
type Recorder struct {
	store Store
}

// NewRecorder returns a recorder writing to the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Name identifies the extension.
func (r *Recorder) Name() string { return "sharing-recorder" }

// OnWorkflowCompleted merges the run's accumulated fields into the
// document's aggregate.
func (r *Recorder) OnWorkflowCompleted(ctx context.Context, run *workflow.Run, _ time.Duration) error {
	return r.record(ctx, run)
}

func (r *Recorder) record(ctx context.Context, run *workflow.Run) error {
	now := time.Now().UTC()
	switch run.Kind {
	case workflow.KindRegistration:
		return r.store.SetRegistration(ctx, run.DocumentID, RegistrationRecord{
			Title:        stringField(run.Fields, "title"),
			FilePath:     stringField(run.Fields, "filePath"),
			Owner:        stringField(run.Fields, "owner"),
			TxHash:       stringField(run.Fields, "txHash"),
			RegisteredAt: now,
		})
	case workflow.KindExternalShare:
		return r.store.AppendExternal(ctx, run.DocumentID, ExternalGrant{
			GrantID:  stringField(run.Fields, "grantId"),
			Emails:   stringsField(run.Fields, "sharedEmails"),
			SharedAt: now,
		})
	case workflow.KindFirmShare:
		return r.store.MergeFirm(ctx, run.DocumentID, FirmGrant{
			FirmName:    stringField(run.Fields, "firmName"),
			MemberCount: intField(run.Fields, "memberCount"),
			TokenID:     stringField(run.Fields, "firmTokenId"),
			GrantedAt:   now,
		})
	case workflow.KindLicensing:
		return r.store.AppendLicense(ctx, run.DocumentID, LicenseOffer{
			OfferID:    stringField(run.Fields, "offerId"),
			Emails:     stringsField(run.Fields, "licensedEmails"),
			MonthlyFee: floatField(run.Fields, "monthlyFee"),
			OfferedAt:  now,
		})
	case workflow.KindCoopShare:
		return r.store.SetCoop(ctx, run.DocumentID, CoopListing{
			ListingID:   stringField(run.Fields, "listingId"),
			Price:       floatField(run.Fields, "price"),
			YourShare:   floatField(run.Fields, "yourShare"),
			Category:    stringField(run.Fields, "category"),
			PublishedAt: now,
		})
	}
	return nil
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// stringsField tolerates both []string and the []any a JSON round trip
// produces.
func stringsField(fields map[string]any, key string) []string {
	switch v := fields[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func intField(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func floatField(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
