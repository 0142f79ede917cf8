package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BetoIII/docledger"
	"github.com/BetoIII/docledger/id"
	"github.com/BetoIII/docledger/sharing"
)

// Aggregates map naturally onto Redis: the single-valued field groups
// (registration, firm, coop) live as JSON hash fields so re-recording a
// kind overwrites only its own group, and the history-style groups
// (external grants, license offers) are Lists so recording is a plain
// RPUSH. Additive merge falls out of the data layout.

// SetRegistration records the registration result for a document.
func (s *Store) SetRegistration(ctx context.Context, docID id.DocumentID, rec sharing.RegistrationRecord) error {
	return s.setAggField(ctx, docID, "registration", rec)
}

// MergeFirm records the firm-wide grant for a document.
func (s *Store) MergeFirm(ctx context.Context, docID id.DocumentID, grant sharing.FirmGrant) error {
	return s.setAggField(ctx, docID, "firm", grant)
}

// SetCoop records the co-op listing for a document.
func (s *Store) SetCoop(ctx context.Context, docID id.DocumentID, listing sharing.CoopListing) error {
	return s.setAggField(ctx, docID, "coop", listing)
}

// AppendExternal appends an external share grant to the document's history.
func (s *Store) AppendExternal(ctx context.Context, docID id.DocumentID, grant sharing.ExternalGrant) error {
	return s.pushAggList(ctx, docID, aggExternalKey(docID), grant)
}

// AppendLicense appends a license offer to the document's history.
func (s *Store) AppendLicense(ctx context.Context, docID id.DocumentID, offer sharing.LicenseOffer) error {
	return s.pushAggList(ctx, docID, aggLicenseKey(docID), offer)
}

func (s *Store) setAggField(ctx context.Context, docID id.DocumentID, field string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", field, err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, aggKey(docID), map[string]any{
		field:        data,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	pipe.SAdd(ctx, aggIDsKey, docID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write aggregate field %s: %w", field, err)
	}
	return nil
}

func (s *Store) pushAggList(ctx context.Context, docID id.DocumentID, listKey string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal list entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, listKey, data)
	pipe.HSet(ctx, aggKey(docID), "updated_at", time.Now().UTC().Format(time.RFC3339Nano))
	pipe.SAdd(ctx, aggIDsKey, docID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append aggregate list: %w", err)
	}
	return nil
}

// Get assembles the full sharing aggregate for a document.
func (s *Store) Get(ctx context.Context, docID id.DocumentID) (*sharing.Aggregate, error) {
	fields, err := s.client.HGetAll(ctx, aggKey(docID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get aggregate: %w", err)
	}
	external, err := s.client.LRange(ctx, aggExternalKey(docID), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get external grants: %w", err)
	}
	licenses, err := s.client.LRange(ctx, aggLicenseKey(docID), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get license offers: %w", err)
	}

	if len(fields) == 0 && len(external) == 0 && len(licenses) == 0 {
		return nil, docledger.ErrAggregateNotFound
	}

	agg := &sharing.Aggregate{DocumentID: docID}

	if raw, ok := fields["registration"]; ok {
		var rec sharing.RegistrationRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal registration: %w", err)
		}
		agg.Registration = &rec
	}
	if raw, ok := fields["firm"]; ok {
		var grant sharing.FirmGrant
		if err := json.Unmarshal([]byte(raw), &grant); err != nil {
			return nil, fmt.Errorf("unmarshal firm grant: %w", err)
		}
		agg.Firm = &grant
	}
	if raw, ok := fields["coop"]; ok {
		var listing sharing.CoopListing
		if err := json.Unmarshal([]byte(raw), &listing); err != nil {
			return nil, fmt.Errorf("unmarshal coop listing: %w", err)
		}
		agg.Coop = &listing
	}
	if raw, ok := fields["updated_at"]; ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			agg.UpdatedAt = ts
		}
	}

	for _, raw := range external {
		var grant sharing.ExternalGrant
		if err := json.Unmarshal([]byte(raw), &grant); err != nil {
			return nil, fmt.Errorf("unmarshal external grant: %w", err)
		}
		agg.External = append(agg.External, grant)
	}
	for _, raw := range licenses {
		var offer sharing.LicenseOffer
		if err := json.Unmarshal([]byte(raw), &offer); err != nil {
			return nil, fmt.Errorf("unmarshal license offer: %w", err)
		}
		agg.Licenses = append(agg.Licenses, offer)
	}
	return agg, nil
}
