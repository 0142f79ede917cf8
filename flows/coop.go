package flows

import (
	"fmt"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// RevenueShare is the fraction of each cooperative sale that goes to
// the document owner. The remainder funds the marketplace.
const RevenueShare = 0.95

// YourShare returns the owner's cut of a cooperative listing priced at
// price.
func YourShare(price float64) float64 { return price * RevenueShare }

// CoopShareParams are the invocation parameters for publishing a
// document to the data cooperative marketplace.
type CoopShareParams struct {
	DocumentID id.DocumentID `json:"document_id"`
	Price      float64       `json:"price"`
	Category   string        `json:"category,omitempty"`
}

// CoopShare returns the cooperative publishing flow.
func CoopShare() *workflow.Flow[CoopShareParams] {
	return &workflow.Flow[CoopShareParams]{
		Kind: workflow.KindCoopShare,

		Validate: func(p CoopShareParams) error {
			if p.Price <= 0 {
				return docledger.ErrInvalidPrice
			}
			return nil
		},

		DocumentID: func(p CoopShareParams) id.DocumentID { return p.DocumentID },

		Facts: func(_ CoopShareParams) map[string]any {
			return map[string]any{
				"listingId":  id.NewListingID().String(),
				"templateId": "lt_" + hexToken(8),
				"txHash":     txHash(),
			}
		},

		Sequence: func(p CoopShareParams, facts map[string]any) []ledger.Event {
			return []ledger.Event{
				ledger.NewPending("CoopListingDrafted", map[string]any{
					"message":   "Marketplace listing drafted",
					"listingId": facts["listingId"],
				}),
				ledger.NewPending("LicenseTemplateAttached", map[string]any{
					"message":    "Standard license template attached",
					"templateId": facts["templateId"],
				}),
				ledger.NewPending("PricingOracleQuoted", map[string]any{
					"message": fmt.Sprintf("Pricing oracle confirmed $%.2f listing price", p.Price),
				}),
				ledger.NewPending("ListingPublished", map[string]any{
					"message": "Listing published to the cooperative marketplace",
					"txHash":  facts["txHash"],
				}),
				ledger.NewPending("RevenueSplitConfigured", map[string]any{
					"message": fmt.Sprintf("Revenue split configured, $%.2f/sale to you", YourShare(p.Price)),
				}),
			}
		},

		Seed: func(p CoopShareParams, facts map[string]any) map[string]any {
			return map[string]any{
				"listingId": facts["listingId"],
				"price":     p.Price,
				"category":  p.Category,
				"yourShare": YourShare(p.Price),
			}
		},

		Milestones: map[string]func(CoopShareParams, *ledger.Event) workflow.Notice{
			"ListingPublished": func(p CoopShareParams, _ *ledger.Event) workflow.Notice {
				return workflow.Notice{
					Title:       "Listed on the marketplace",
					Description: fmt.Sprintf("Your document is live at $%.2f, you keep $%.2f per sale", p.Price, YourShare(p.Price)),
				}
			},
		},

		Accumulate: func(run *workflow.Run, evt *ledger.Event) {
			if evt.Name == "ListingPublished" {
				run.SetField("txHash", evt.Details["txHash"])
			}
		},
	}
}
