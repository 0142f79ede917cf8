// Package export renders completed flow runs as shareable JSON
// summaries and copies them to the system clipboard.
package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BetoIII/docledger/workflow"
)

// Summary field groups, one shape per flow kind. Only completed runs
// export; an active or failed run renders as the empty string so a
// half-built summary can never leak.

// EventRecord is the exported view of one ledger event.
type EventRecord struct {
	Name      string         `json:"name"`
	Status    string         `json:"status"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// RegistrationSummary is the exported shape of a registration run.
type RegistrationSummary struct {
	Status       string        `json:"status"`
	DocumentID   string        `json:"document_id"`
	Title        string        `json:"title,omitempty"`
	TxHash       string        `json:"tx_hash,omitempty"`
	RegisteredAt *time.Time    `json:"registered_at,omitempty"`
	Events       []EventRecord `json:"events"`
}

// ShareInstance is one past external share in the run's history.
type ShareInstance struct {
	GrantID  string   `json:"grant_id,omitempty"`
	Emails   []string `json:"emails,omitempty"`
	SharedAt string   `json:"shared_at,omitempty"`
}

// ExternalShareSummary is the exported shape of an external share run.
type ExternalShareSummary struct {
	Status     string          `json:"status"`
	DocumentID string          `json:"document_id"`
	SharedWith []string        `json:"shared_with"`
	GrantID    string          `json:"grant_id,omitempty"`
	Instances  []ShareInstance `json:"instances,omitempty"`
	Events     []EventRecord   `json:"events"`
}

// FirmShareSummary is the exported shape of a firm share run.
type FirmShareSummary struct {
	Status      string        `json:"status"`
	DocumentID  string        `json:"document_id"`
	FirmName    string        `json:"firm_name,omitempty"`
	MemberCount int           `json:"member_count"`
	TokenID     string        `json:"token_id,omitempty"`
	Events      []EventRecord `json:"events"`
}

// LicenseTerms is the pricing block of a licensing export.
type LicenseTerms struct {
	Price  float64 `json:"price"`
	Period string  `json:"period"`
}

// LicensingSummary is the exported shape of a licensing run.
type LicensingSummary struct {
	Status     string        `json:"status"`
	DocumentID string        `json:"document_id"`
	OfferID    string        `json:"offer_id,omitempty"`
	Licensees  []string      `json:"licensees"`
	Terms      LicenseTerms  `json:"terms"`
	Events     []EventRecord `json:"events"`
}

// CoopShareSummary is the exported shape of a cooperative listing run.
type CoopShareSummary struct {
	Status     string        `json:"status"`
	DocumentID string        `json:"document_id"`
	ListingID  string        `json:"listing_id,omitempty"`
	Category   string        `json:"category,omitempty"`
	Price      float64       `json:"price"`
	YourShare  float64       `json:"your_share"`
	Events     []EventRecord `json:"events"`
}

// Build returns the kind-specific summary for a completed run.
func Build(run *workflow.Run) (any, error) {
	if !run.Complete() {
		return nil, fmt.Errorf("export: run %s is %s, only completed runs export", run.ID, run.State)
	}

	events := make([]EventRecord, len(run.Events))
	for i, e := range run.Events {
		events[i] = EventRecord{
			Name:      e.Name,
			Status:    string(e.Status),
			Timestamp: e.Timestamp,
			Details:   e.Details,
		}
	}

	docID := run.DocumentID.String()

	switch run.Kind {
	case workflow.KindRegistration:
		return RegistrationSummary{
			Status:       "registered",
			DocumentID:   docID,
			Title:        stringField(run.Fields, "title"),
			TxHash:       stringField(run.Fields, "txHash"),
			RegisteredAt: run.CompletedAt,
			Events:       events,
		}, nil
	case workflow.KindExternalShare:
		return ExternalShareSummary{
			Status:     "shared",
			DocumentID: docID,
			SharedWith: stringsField(run.Fields, "sharedEmails"),
			GrantID:    stringField(run.Fields, "grantId"),
			Instances:  instancesField(run.Fields, "instances"),
			Events:     events,
		}, nil
	case workflow.KindFirmShare:
		return FirmShareSummary{
			Status:      "shared_firm",
			DocumentID:  docID,
			FirmName:    stringField(run.Fields, "firmName"),
			MemberCount: intField(run.Fields, "memberCount"),
			TokenID:     stringField(run.Fields, "firmTokenId"),
			Events:      events,
		}, nil
	case workflow.KindLicensing:
		return LicensingSummary{
			Status:     "license_offered",
			DocumentID: docID,
			OfferID:    stringField(run.Fields, "offerId"),
			Licensees:  stringsField(run.Fields, "licensedEmails"),
			Terms: LicenseTerms{
				Price:  floatField(run.Fields, "monthlyFee"),
				Period: "monthly",
			},
			Events: events,
		}, nil
	case workflow.KindCoopShare:
		return CoopShareSummary{
			Status:     "listed",
			DocumentID: docID,
			ListingID:  stringField(run.Fields, "listingId"),
			Category:   stringField(run.Fields, "category"),
			Price:      floatField(run.Fields, "price"),
			YourShare:  floatField(run.Fields, "yourShare"),
			Events:     events,
		}, nil
	default:
		return nil, fmt.Errorf("export: unknown flow kind %q", run.Kind)
	}
}

// JSON renders the run's summary as indented JSON. Runs that are not
// complete render as the empty string with no error: callers treat an
// empty export as "nothing to share yet".
func JSON(run *workflow.Run) (string, error) {
	if run == nil || !run.Complete() {
		return "", nil
	}
	summary, err := Build(run)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: marshal summary: %w", err)
	}
	return string(data), nil
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

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

func instancesField(fields map[string]any, key string) []ShareInstance {
	raw, _ := fields[key].([]any)
	if len(raw) == 0 {
		return nil
	}
	out := make([]ShareInstance, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, ShareInstance{
			GrantID:  stringField(m, "grantId"),
			Emails:   stringsField(m, "emails"),
			SharedAt: stringField(m, "sharedAt"),
		})
	}
	return out
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
