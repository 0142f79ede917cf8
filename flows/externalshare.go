package flows

import (
	"fmt"
	"time"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// ExternalShareParams are the invocation parameters for sharing a
// document with external recipients.
type ExternalShareParams struct {
	DocumentID id.DocumentID `json:"document_id"`
	Emails     []string      `json:"emails"`
	Message    string        `json:"message,omitempty"`
}

// ExternalShare returns the external sharing flow. A run keeps a history
// of past share instances: every completion appends a grant record to
// the run's accumulated fields, so repeated shares of the same document
// stay visible.
func ExternalShare() *workflow.Flow[ExternalShareParams] {
	return &workflow.Flow[ExternalShareParams]{
		Kind: workflow.KindExternalShare,

		Validate: func(p ExternalShareParams) error {
			if len(p.Emails) == 0 {
				return docledger.ErrNoRecipients
			}
			return nil
		},

		DocumentID: func(p ExternalShareParams) id.DocumentID { return p.DocumentID },

		Facts: func(_ ExternalShareParams) map[string]any {
			return map[string]any{
				"grantId":      id.NewShareID().String(),
				"invitationId": "inv_" + hexToken(10),
				"txHash":       txHash(),
			}
		},

		Sequence: func(p ExternalShareParams, facts map[string]any) []ledger.Event {
			return []ledger.Event{
				ledger.NewPending("ShareInvitationCreated", map[string]any{
					"message":      fmt.Sprintf("Share invitation created for %d recipient(s)", len(p.Emails)),
					"invitationId": facts["invitationId"],
				}),
				ledger.NewPending("InvitationEmailSent", map[string]any{
					"message": fmt.Sprintf("Invitation emails sent to %d recipient(s)", len(p.Emails)),
				}),
				ledger.NewPending("AccessGrantRecorded", map[string]any{
					"message": "Access grant recorded on the ledger",
					"grantId": facts["grantId"],
				}),
				ledger.NewPending("ViewerLicenseIssued", map[string]any{
					"message": "Read-only viewer license issued",
				}),
				ledger.NewPending("ShareLinkActivated", map[string]any{
					"message": "Secure share link activated",
					"txHash":  facts["txHash"],
				}),
			}
		},

		Seed: func(p ExternalShareParams, _ map[string]any) map[string]any {
			emails := make([]any, len(p.Emails))
			for i, e := range p.Emails {
				emails[i] = e
			}
			return map[string]any{"sharedEmails": emails}
		},

		Milestones: map[string]func(ExternalShareParams, *ledger.Event) workflow.Notice{
			"InvitationEmailSent": func(p ExternalShareParams, _ *ledger.Event) workflow.Notice {
				return workflow.Notice{
					Title:       "Invitations sent",
					Description: fmt.Sprintf("%d recipient(s) invited to view this document", len(p.Emails)),
				}
			},
		},

		Accumulate: func(run *workflow.Run, evt *ledger.Event) {
			switch evt.Name {
			case "ShareInvitationCreated":
				run.SetField("invitationId", evt.Details["invitationId"])
			case "AccessGrantRecorded":
				run.SetField("grantId", evt.Details["grantId"])
			case "ShareLinkActivated":
				run.SetField("txHash", evt.Details["txHash"])
			}
		},

		Finalize: func(run *workflow.Run) {
			run.AppendField("instances", map[string]any{
				"grantId":  run.Fields["grantId"],
				"emails":   run.Fields["sharedEmails"],
				"sharedAt": time.Now().UTC().Format(time.RFC3339),
			})
		},
	}
}
