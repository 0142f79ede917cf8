package flows

import (
	"fmt"
	"time"

	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/latency"
	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// FirmShareParams are the invocation parameters for sharing a document
// with every member of the owner's firm.
type FirmShareParams struct {
	DocumentID id.DocumentID `json:"document_id"`
	FirmName   string        `json:"firm_name,omitempty"`
}

// FirmShare returns the firm-wide sharing flow. The member count is
// resolved during the directory query, so the notification step can
// report the real fan-out size.
func FirmShare() *workflow.Flow[FirmShareParams] {
	return &workflow.Flow[FirmShareParams]{
		Kind: workflow.KindFirmShare,

		DocumentID: func(p FirmShareParams) id.DocumentID { return p.DocumentID },

		Facts: func(_ FirmShareParams) map[string]any {
			return map[string]any{
				"memberCount": intBetween(12, 48),
				"tokenId":     tokenSerial(),
				"txHash":      txHash(),
			}
		},

		Sequence: func(p FirmShareParams, facts map[string]any) []ledger.Event {
			count := facts["memberCount"]
			return []ledger.Event{
				ledger.NewPending("FirmDirectoryQueried", map[string]any{
					"message":     fmt.Sprintf("Firm directory queried, %v members found", count),
					"memberCount": count,
				}),
				ledger.NewPending("BatchNotificationQueued", map[string]any{
					"message": "Batch notification job queued",
				}),
				ledger.NewPending("FirmMembersNotified", map[string]any{
					"message":     fmt.Sprintf("Batch email notifications sent to %v firm members", count),
					"memberCount": count,
				}),
				ledger.NewPending("FirmAccessTokenMinted", map[string]any{
					"message": "Firm-wide access token minted",
					"tokenId": facts["tokenId"],
					"txHash":  facts["txHash"],
				}),
			}
		},

		Seed: func(p FirmShareParams, facts map[string]any) map[string]any {
			return map[string]any{
				"firmName":    p.FirmName,
				"memberCount": facts["memberCount"],
			}
		},

		Milestones: map[string]func(FirmShareParams, *ledger.Event) workflow.Notice{
			"FirmAccessTokenMinted": func(_ FirmShareParams, evt *ledger.Event) workflow.Notice {
				return workflow.Notice{
					Title:       "Firm access granted",
					Description: fmt.Sprintf("Access token %v minted for the whole firm", evt.Details["tokenId"]),
				}
			},
		},

		Accumulate: func(run *workflow.Run, evt *ledger.Event) {
			switch evt.Name {
			case "FirmDirectoryQueried":
				run.SetField("memberCount", evt.Details["memberCount"])
			case "FirmAccessTokenMinted":
				run.SetField("firmTokenId", evt.Details["tokenId"])
				run.SetField("txHash", evt.Details["txHash"])
			}
		},

		// The batch email step represents real fan-out work and takes
		// noticeably longer than the bookkeeping steps around it.
		Latency: &latency.PerEvent{
			Default: latency.DefaultProfile(),
			Overrides: map[string]latency.Profile{
				"FirmMembersNotified": latency.NewJittered(1500*time.Millisecond, 800*time.Millisecond),
			},
		},
	}
}
