package bunstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/sharing"
)

// SetRegistration records the registration result for a document.
func (s *Store) SetRegistration(ctx context.Context, docID id.DocumentID, rec sharing.RegistrationRecord) error {
	return s.upsertAggColumn(ctx, docID, "registration", rec)
}

// MergeFirm records the firm-wide grant for a document.
func (s *Store) MergeFirm(ctx context.Context, docID id.DocumentID, grant sharing.FirmGrant) error {
	return s.upsertAggColumn(ctx, docID, "firm", grant)
}

// SetCoop records the co-op listing for a document.
func (s *Store) SetCoop(ctx context.Context, docID id.DocumentID, listing sharing.CoopListing) error {
	return s.upsertAggColumn(ctx, docID, "coop", listing)
}

// AppendExternal appends an external share grant to the document's history.
func (s *Store) AppendExternal(ctx context.Context, docID id.DocumentID, grant sharing.ExternalGrant) error {
	data, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("docledger/bun: marshal external grant: %w", err)
	}
	m := &externalGrantModel{DocumentID: docID.String(), Data: data}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("docledger/bun: append external grant: %w", err)
	}
	return s.touchAggregate(ctx, docID)
}

// AppendLicense appends a license offer to the document's history.
func (s *Store) AppendLicense(ctx context.Context, docID id.DocumentID, offer sharing.LicenseOffer) error {
	data, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("docledger/bun: marshal license offer: %w", err)
	}
	m := &licenseOfferModel{DocumentID: docID.String(), Data: data}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("docledger/bun: append license offer: %w", err)
	}
	return s.touchAggregate(ctx, docID)
}

func (s *Store) upsertAggColumn(ctx context.Context, docID id.DocumentID, column string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("docledger/bun: marshal %s: %w", column, err)
	}

	m := &aggregateModel{DocumentID: docID.String(), UpdatedAt: time.Now().UTC()}
	switch column {
	case "registration":
		m.Registration = data
	case "firm":
		m.Firm = data
	case "coop":
		m.Coop = data
	}

	_, err = s.db.NewInsert().Model(m).
		On("CONFLICT (document_id) DO UPDATE").
		Set(column+" = EXCLUDED."+column).
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("docledger/bun: upsert %s: %w", column, err)
	}
	return nil
}

func (s *Store) touchAggregate(ctx context.Context, docID id.DocumentID) error {
	m := &aggregateModel{DocumentID: docID.String(), UpdatedAt: time.Now().UTC()}
	_, err := s.db.NewInsert().Model(m).
		On("CONFLICT (document_id) DO UPDATE").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("docledger/bun: touch aggregate: %w", err)
	}
	return nil
}

// Get assembles the full sharing aggregate for a document.
func (s *Store) Get(ctx context.Context, docID id.DocumentID) (*sharing.Aggregate, error) {
	m := new(aggregateModel)
	err := s.db.NewSelect().Model(m).
		Where("document_id = ?", docID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, docledger.ErrAggregateNotFound
		}
		return nil, fmt.Errorf("docledger/bun: get aggregate: %w", err)
	}

	agg := &sharing.Aggregate{DocumentID: docID, UpdatedAt: m.UpdatedAt}

	if m.Registration != nil {
		var rec sharing.RegistrationRecord
		if err := json.Unmarshal(m.Registration, &rec); err != nil {
			return nil, fmt.Errorf("docledger/bun: unmarshal registration: %w", err)
		}
		agg.Registration = &rec
	}
	if m.Firm != nil {
		var grant sharing.FirmGrant
		if err := json.Unmarshal(m.Firm, &grant); err != nil {
			return nil, fmt.Errorf("docledger/bun: unmarshal firm grant: %w", err)
		}
		agg.Firm = &grant
	}
	if m.Coop != nil {
		var listing sharing.CoopListing
		if err := json.Unmarshal(m.Coop, &listing); err != nil {
			return nil, fmt.Errorf("docledger/bun: unmarshal coop listing: %w", err)
		}
		agg.Coop = &listing
	}

	var grants []externalGrantModel
	err = s.db.NewSelect().Model(&grants).
		Where("document_id = ?", docID.String()).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("docledger/bun: list external grants: %w", err)
	}
	for i := range grants {
		var grant sharing.ExternalGrant
		if err := json.Unmarshal(grants[i].Data, &grant); err != nil {
			return nil, fmt.Errorf("docledger/bun: unmarshal external grant: %w", err)
		}
		agg.External = append(agg.External, grant)
	}

	var offers []licenseOfferModel
	err = s.db.NewSelect().Model(&offers).
		Where("document_id = ?", docID.String()).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("docledger/bun: list license offers: %w", err)
	}
	for i := range offers {
		var offer sharing.LicenseOffer
		if err := json.Unmarshal(offers[i].Data, &offer); err != nil {
			return nil, fmt.Errorf("docledger/bun: unmarshal license offer: %w", err)
		}
		agg.Licenses = append(agg.Licenses, offer)
	}
	return agg, nil
}
