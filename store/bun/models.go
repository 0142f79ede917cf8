package bunstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/BetoIII/docledger/session"
	"github.com/BetoIII/docledger/workflow"
)

// ── Run model ─────────────────────────────────────────────────────

// The full run (events, fields, generation) is stored as a JSONB blob;
// kind, state and started_at are lifted into columns for filtering.
type runModel struct {
	bun.BaseModel `bun:"table:docledger_runs"`

	ID          string     `bun:"id,pk"`
	Kind        string     `bun:"kind,notnull"`
	DocumentID  string     `bun:"document_id,notnull"`
	State       string     `bun:"state,notnull"`
	Data        []byte     `bun:"data,notnull,type:jsonb"`
	StartedAt   time.Time  `bun:"started_at,notnull"`
	CompletedAt *time.Time `bun:"completed_at"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

func toRunModel(run *workflow.Run) (*runModel, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("docledger/bun: marshal run: %w", err)
	}
	return &runModel{
		ID:          run.ID.String(),
		Kind:        string(run.Kind),
		DocumentID:  run.DocumentID.String(),
		State:       string(run.State),
		Data:        data,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
	}, nil
}

func fromRunModel(m *runModel) (*workflow.Run, error) {
	var run workflow.Run
	if err := json.Unmarshal(m.Data, &run); err != nil {
		return nil, fmt.Errorf("docledger/bun: unmarshal run: %w", err)
	}
	return &run, nil
}

// ── Sharing aggregate models ──────────────────────────────────────

type aggregateModel struct {
	bun.BaseModel `bun:"table:docledger_aggregates"`

	DocumentID   string    `bun:"document_id,pk"`
	Registration []byte    `bun:"registration,type:jsonb"`
	Firm         []byte    `bun:"firm,type:jsonb"`
	Coop         []byte    `bun:"coop,type:jsonb"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

type externalGrantModel struct {
	bun.BaseModel `bun:"table:docledger_external_grants"`

	Seq        int64     `bun:"seq,pk,autoincrement"`
	DocumentID string    `bun:"document_id,notnull"`
	Data       []byte    `bun:"data,notnull,type:jsonb"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type licenseOfferModel struct {
	bun.BaseModel `bun:"table:docledger_license_offers"`

	Seq        int64     `bun:"seq,pk,autoincrement"`
	DocumentID string    `bun:"document_id,notnull"`
	Data       []byte    `bun:"data,notnull,type:jsonb"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ── Pending document model ────────────────────────────────────────

type pendingModel struct {
	bun.BaseModel `bun:"table:docledger_pendings"`

	TempActorID uuid.UUID `bun:"temp_actor_id,pk,type:uuid"`
	Data        []byte    `bun:"data,notnull,type:jsonb"`
	StashedAt   time.Time `bun:"stashed_at,notnull"`
}

func toPendingModel(doc *session.PendingDocument) (*pendingModel, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("docledger/bun: marshal pending document: %w", err)
	}
	return &pendingModel{
		TempActorID: doc.TempActorID,
		Data:        data,
		StashedAt:   doc.StashedAt,
	}, nil
}

func fromPendingModel(m *pendingModel) (*session.PendingDocument, error) {
	var doc session.PendingDocument
	if err := json.Unmarshal(m.Data, &doc); err != nil {
		return nil, fmt.Errorf("docledger/bun: unmarshal pending document: %w", err)
	}
	return &doc, nil
}
