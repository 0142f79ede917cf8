// Package sharing maintains the per-document sharing aggregate: the
// additive record of every way a document has been shared, licensed,
// or listed. Completed workflow runs merge into it; nothing a run adds
// ever removes what a previous run added.
package sharing

import (
	"context"
	"time"

	"github.com/BetoIII/docledger/id"
)

// RegistrationRecord captures the document's registration outcome.
type RegistrationRecord struct {
	Title        string    `json:"title"`
	FilePath     string    `json:"file_path,omitempty"`
	Owner        string    `json:"owner,omitempty"`
	TxHash       string    `json:"tx_hash,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ExternalGrant is one external share instance.
type ExternalGrant struct {
	GrantID  string    `json:"grant_id"`
	Emails   []string  `json:"emails"`
	SharedAt time.Time `json:"shared_at"`
}

// FirmGrant is firm-wide access. A later firm share replaces the token
// but the grant itself stays.
type FirmGrant struct {
	FirmName    string    `json:"firm_name,omitempty"`
	MemberCount int       `json:"member_count"`
	TokenID     string    `json:"token_id,omitempty"`
	GrantedAt   time.Time `json:"granted_at"`
}

// LicenseOffer is one outstanding paid license offer.
type LicenseOffer struct {
	OfferID    string    `json:"offer_id"`
	Emails     []string  `json:"emails"`
	MonthlyFee float64   `json:"monthly_fee"`
	OfferedAt  time.Time `json:"offered_at"`
}

// CoopListing is the document's marketplace listing, if published.
type CoopListing struct {
	ListingID   string    `json:"listing_id"`
	Price       float64   `json:"price"`
	YourShare   float64   `json:"your_share"`
	Category    string    `json:"category,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Aggregate is the full sharing state of one document. Field groups are
// independent: merging one kind's results never touches another's.
type Aggregate struct {
	DocumentID   id.DocumentID       `json:"document_id"`
	Registration *RegistrationRecord `json:"registration,omitempty"`
	External     []ExternalGrant     `json:"external,omitempty"`
	Firm         *FirmGrant          `json:"firm,omitempty"`
	Licenses     []LicenseOffer      `json:"licenses,omitempty"`
	Coop         *CoopListing        `json:"coop,omitempty"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// Clone returns a deep copy.
func (a *Aggregate) Clone() *Aggregate {
	if a == nil {
		return nil
	}
	out := *a
	if a.Registration != nil {
		r := *a.Registration
		out.Registration = &r
	}
	if a.Firm != nil {
		f := *a.Firm
		out.Firm = &f
	}
	if a.Coop != nil {
		c := *a.Coop
		out.Coop = &c
	}
	out.External = make([]ExternalGrant, len(a.External))
	for i, g := range a.External {
		g.Emails = append([]string(nil), g.Emails...)
		out.External[i] = g
	}
	out.Licenses = make([]LicenseOffer, len(a.Licenses))
	for i, l := range a.Licenses {
		l.Emails = append([]string(nil), l.Emails...)
		out.Licenses[i] = l
	}
	return &out
}

// Store persists sharing aggregates. All mutations are additive merges
// against the document's existing aggregate, creating it on first
// touch. Get returns docledger.ErrAggregateNotFound for documents with
// no sharing history.
type Store interface {
	SetRegistration(ctx context.Context, docID id.DocumentID, rec RegistrationRecord) error
	AppendExternal(ctx context.Context, docID id.DocumentID, grant ExternalGrant) error
	MergeFirm(ctx context.Context, docID id.DocumentID, grant FirmGrant) error
	AppendLicense(ctx context.Context, docID id.DocumentID, offer LicenseOffer) error
	SetCoop(ctx context.Context, docID id.DocumentID, listing CoopListing) error
	Get(ctx context.Context, docID id.DocumentID) (*Aggregate, error)
}
