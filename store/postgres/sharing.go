package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/sharing"
)

// The single-valued field groups (registration, firm, coop) live as
// nullable JSONB columns on one aggregate row, upserted per group so a
// re-record touches only its own column. External grants and license
// offers are append-only child tables.

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
	return s.appendChild(ctx, docID, "docledger_external_grants", grant)
}

// AppendLicense appends a license offer to the document's history.
func (s *Store) AppendLicense(ctx context.Context, docID id.DocumentID, offer sharing.LicenseOffer) error {
	return s.appendChild(ctx, docID, "docledger_license_offers", offer)
}

func (s *Store) upsertAggColumn(ctx context.Context, docID id.DocumentID, column string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("docledger/postgres: marshal %s: %w", column, err)
	}

	// column is one of the fixed group names above, never user input.
	query := fmt.Sprintf(`
		INSERT INTO docledger_aggregates (document_id, %[1]s, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (document_id)
		DO UPDATE SET %[1]s = EXCLUDED.%[1]s, updated_at = NOW()`, column)

	if _, err := s.pool.Exec(ctx, query, docID.String(), data); err != nil {
		return fmt.Errorf("docledger/postgres: upsert %s: %w", column, err)
	}
	return nil
}

func (s *Store) appendChild(ctx context.Context, docID id.DocumentID, table string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("docledger/postgres: marshal child row: %w", err)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (document_id, data) VALUES ($1, $2)`, table)
	if _, err := s.pool.Exec(ctx, query, docID.String(), data); err != nil {
		return fmt.Errorf("docledger/postgres: append to %s: %w", table, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO docledger_aggregates (document_id, updated_at)
		VALUES ($1, NOW())
		ON CONFLICT (document_id) DO UPDATE SET updated_at = NOW()`,
		docID.String(),
	)
	if err != nil {
		return fmt.Errorf("docledger/postgres: touch aggregate: %w", err)
	}
	return nil
}

// Get assembles the full sharing aggregate for a document.
func (s *Store) Get(ctx context.Context, docID id.DocumentID) (*sharing.Aggregate, error) {
	agg := &sharing.Aggregate{DocumentID: docID}

	var registration, firm, coop []byte
	err := s.pool.QueryRow(ctx, `
		SELECT registration, firm, coop, updated_at
		FROM docledger_aggregates WHERE document_id = $1`,
		docID.String(),
	).Scan(&registration, &firm, &coop, &agg.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, docledger.ErrAggregateNotFound
		}
		return nil, fmt.Errorf("docledger/postgres: get aggregate: %w", err)
	}

	if registration != nil {
		var rec sharing.RegistrationRecord
		if err := json.Unmarshal(registration, &rec); err != nil {
			return nil, fmt.Errorf("docledger/postgres: unmarshal registration: %w", err)
		}
		agg.Registration = &rec
	}
	if firm != nil {
		var grant sharing.FirmGrant
		if err := json.Unmarshal(firm, &grant); err != nil {
			return nil, fmt.Errorf("docledger/postgres: unmarshal firm grant: %w", err)
		}
		agg.Firm = &grant
	}
	if coop != nil {
		var listing sharing.CoopListing
		if err := json.Unmarshal(coop, &listing); err != nil {
			return nil, fmt.Errorf("docledger/postgres: unmarshal coop listing: %w", err)
		}
		agg.Coop = &listing
	}

	if err := s.loadExternal(ctx, docID, agg); err != nil {
		return nil, err
	}
	if err := s.loadLicenses(ctx, docID, agg); err != nil {
		return nil, err
	}
	return agg, nil
}

func (s *Store) loadExternal(ctx context.Context, docID id.DocumentID, agg *sharing.Aggregate) error {
	rows, err := s.pool.Query(ctx, `
		SELECT data FROM docledger_external_grants
		WHERE document_id = $1 ORDER BY seq`,
		docID.String(),
	)
	if err != nil {
		return fmt.Errorf("docledger/postgres: list external grants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return fmt.Errorf("docledger/postgres: scan external grant: %w", err)
		}
		var grant sharing.ExternalGrant
		if err := json.Unmarshal(data, &grant); err != nil {
			return fmt.Errorf("docledger/postgres: unmarshal external grant: %w", err)
		}
		agg.External = append(agg.External, grant)
	}
	return rows.Err()
}

func (s *Store) loadLicenses(ctx context.Context, docID id.DocumentID, agg *sharing.Aggregate) error {
	rows, err := s.pool.Query(ctx, `
		SELECT data FROM docledger_license_offers
		WHERE document_id = $1 ORDER BY seq`,
		docID.String(),
	)
	if err != nil {
		return fmt.Errorf("docledger/postgres: list license offers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return fmt.Errorf("docledger/postgres: scan license offer: %w", err)
		}
		var offer sharing.LicenseOffer
		if err := json.Unmarshal(data, &offer); err != nil {
			return fmt.Errorf("docledger/postgres: unmarshal license offer: %w", err)
		}
		agg.Licenses = append(agg.Licenses, offer)
	}
	return rows.Err()
}
