package flows

import (
	"fmt"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// LicensingParams are the invocation parameters for offering a paid
// monthly license to a set of recipients.
type LicensingParams struct {
	DocumentID id.DocumentID `json:"document_id"`
	Emails     []string      `json:"emails"`
	MonthlyFee float64       `json:"monthly_fee"`
}

// Licensing returns the licensing flow. It is deliberately short: the
// offer is created and emailed, and nothing else happens until a
// licensee accepts out of band.
func Licensing() *workflow.Flow[LicensingParams] {
	return &workflow.Flow[LicensingParams]{
		Kind: workflow.KindLicensing,

		Validate: func(p LicensingParams) error {
			if len(p.Emails) == 0 {
				return docledger.ErrNoRecipients
			}
			if p.MonthlyFee <= 0 {
				return docledger.ErrInvalidPrice
			}
			return nil
		},

		DocumentID: func(p LicensingParams) id.DocumentID { return p.DocumentID },

		Facts: func(_ LicensingParams) map[string]any {
			return map[string]any{
				"offerId": id.NewLicenseID().String(),
			}
		},

		Sequence: func(p LicensingParams, facts map[string]any) []ledger.Event {
			return []ledger.Event{
				ledger.NewPending("LicenseOfferCreated", map[string]any{
					"message": fmt.Sprintf("License offer created at $%.2f/month", p.MonthlyFee),
					"offerId": facts["offerId"],
				}),
				ledger.NewPending("OfferEmailSent", map[string]any{
					"message": fmt.Sprintf("Offer emails sent to %d recipient(s)", len(p.Emails)),
				}),
			}
		},

		Seed: func(p LicensingParams, facts map[string]any) map[string]any {
			emails := make([]any, len(p.Emails))
			for i, e := range p.Emails {
				emails[i] = e
			}
			return map[string]any{
				"licensedEmails": emails,
				"monthlyFee":     p.MonthlyFee,
				"offerId":        facts["offerId"],
			}
		},

		Milestones: map[string]func(LicensingParams, *ledger.Event) workflow.Notice{
			"OfferEmailSent": func(p LicensingParams, _ *ledger.Event) workflow.Notice {
				return workflow.Notice{
					Title:       "License offer sent",
					Description: fmt.Sprintf("$%.2f/month offer sent to %d recipient(s)", p.MonthlyFee, len(p.Emails)),
				}
			},
		},
	}
}
