package postgres

// migration is a named, ordered set of DDL statements. Migrations are
// applied once and recorded in docledger_migrations.
type migration struct {
	name       string
	statements []string
}

var migrations = []migration{
	{
		name: "001_create_runs",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS docledger_runs (
				id           TEXT PRIMARY KEY,
				kind         TEXT NOT NULL,
				document_id  TEXT NOT NULL,
				state        TEXT NOT NULL,
				data         JSONB NOT NULL,
				started_at   TIMESTAMPTZ NOT NULL,
				completed_at TIMESTAMPTZ,
				updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, `
			CREATE INDEX IF NOT EXISTS idx_docledger_runs_list
				ON docledger_runs (kind, state, started_at DESC)`, `
			CREATE INDEX IF NOT EXISTS idx_docledger_runs_document
				ON docledger_runs (document_id)`,
		},
	},
	{
		name: "002_create_aggregates",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS docledger_aggregates (
				document_id  TEXT PRIMARY KEY,
				registration JSONB,
				firm         JSONB,
				coop         JSONB,
				updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, `
			CREATE TABLE IF NOT EXISTS docledger_external_grants (
				seq         BIGSERIAL PRIMARY KEY,
				document_id TEXT NOT NULL,
				data        JSONB NOT NULL,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, `
			CREATE INDEX IF NOT EXISTS idx_docledger_external_grants_doc
				ON docledger_external_grants (document_id, seq)`, `
			CREATE TABLE IF NOT EXISTS docledger_license_offers (
				seq         BIGSERIAL PRIMARY KEY,
				document_id TEXT NOT NULL,
				data        JSONB NOT NULL,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, `
			CREATE INDEX IF NOT EXISTS idx_docledger_license_offers_doc
				ON docledger_license_offers (document_id, seq)`,
		},
	},
	{
		name: "003_create_pendings",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS docledger_pendings (
				temp_actor_id UUID PRIMARY KEY,
				data          JSONB NOT NULL,
				stashed_at    TIMESTAMPTZ NOT NULL
			)`, `
			CREATE INDEX IF NOT EXISTS idx_docledger_pendings_stashed
				ON docledger_pendings (stashed_at)`,
		},
	},
}
