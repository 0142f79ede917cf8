package flows

import (
	"fmt"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/ledger"
	"github.com/BetoIII/docledger/workflow"
)

// RegistrationParams are the invocation parameters for document
// registration.
type RegistrationParams struct {
	Title      string `json:"title"`
	FilePath   string `json:"file_path"`
	OwnerEmail string `json:"owner_email,omitempty"`
}

// Registration returns the document registration flow: hash the
// document, create its metadata record, register the dataset, mint the
// ownership token, initialize access policy, and anchor the record.
func Registration() *workflow.Flow[RegistrationParams] {
	return &workflow.Flow[RegistrationParams]{
		Kind: workflow.KindRegistration,

		Validate: func(p RegistrationParams) error {
			if p.Title == "" {
				return docledger.ErrMissingTitle
			}
			if p.FilePath == "" {
				return docledger.ErrMissingFilePath
			}
			return nil
		},

		Facts: func(_ RegistrationParams) map[string]any {
			return map[string]any{
				"documentHash": docHash(),
				"recordId":     "rec_" + hexToken(10),
				"datasetId":    "ds_" + hexToken(12),
				"tokenId":      tokenSerial(),
				"txHash":       txHash(),
				"blockNumber":  blockNumber(),
			}
		},

		Sequence: func(p RegistrationParams, facts map[string]any) []ledger.Event {
			return []ledger.Event{
				ledger.NewPending("DocumentHashGenerated", map[string]any{
					"message":      fmt.Sprintf("SHA-256 hash generated for %q", p.Title),
					"documentHash": facts["documentHash"],
				}),
				ledger.NewPending("MetadataRecordCreated", map[string]any{
					"message":  "Document metadata record created",
					"recordId": facts["recordId"],
				}),
				ledger.NewPending("DatasetRegistered", map[string]any{
					"message":   "Dataset registered in the directory",
					"datasetId": facts["datasetId"],
				}),
				ledger.NewPending("OwnershipTokenMinted", map[string]any{
					"message": "Ownership token minted to your wallet",
					"tokenId": facts["tokenId"],
					"txHash":  facts["txHash"],
				}),
				ledger.NewPending("AccessPolicyInitialized", map[string]any{
					"message": "Default access policy initialized (owner only)",
				}),
				ledger.NewPending("RegistrationAnchored", map[string]any{
					"message":     "Registration anchored on chain",
					"blockNumber": facts["blockNumber"],
				}),
			}
		},

		Seed: func(p RegistrationParams, _ map[string]any) map[string]any {
			return map[string]any{
				"title":    p.Title,
				"filePath": p.FilePath,
				"owner":    p.OwnerEmail,
			}
		},

		Milestones: map[string]func(RegistrationParams, *ledger.Event) workflow.Notice{
			"OwnershipTokenMinted": func(p RegistrationParams, evt *ledger.Event) workflow.Notice {
				return workflow.Notice{
					Title:       "Ownership token minted",
					Description: fmt.Sprintf("Token #%v minted for %q", evt.Details["tokenId"], p.Title),
				}
			},
		},

		Accumulate: func(run *workflow.Run, evt *ledger.Event) {
			switch evt.Name {
			case "DocumentHashGenerated":
				run.SetField("documentHash", evt.Details["documentHash"])
			case "MetadataRecordCreated":
				run.SetField("recordId", evt.Details["recordId"])
			case "DatasetRegistered":
				run.SetField("datasetId", evt.Details["datasetId"])
			case "OwnershipTokenMinted":
				run.SetField("tokenId", evt.Details["tokenId"])
				run.SetField("txHash", evt.Details["txHash"])
			case "RegistrationAnchored":
				run.SetField("blockNumber", evt.Details["blockNumber"])
			}
		},
	}
}
