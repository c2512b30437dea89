//go:build integration

// Package containers starts throwaway infrastructure for integration
// tests. Containers are created per suite; ryuk reaps them when the test
// process exits.
package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresContainer wraps a testcontainers Postgres instance with the
// service schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
	URL       string
}

// schema is the full service DDL. Kept here rather than in migration
// tooling: the stores document their tables, and integration tests are the
// only place the module creates them.
const schema = `
CREATE TABLE IF NOT EXISTS org_identities (
	org_id           TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	method           TEXT NOT NULL,
	verified_at      TIMESTAMPTZ NOT NULL,
	criteria_checked TEXT NOT NULL DEFAULT '',
	revoked          BOOLEAN NOT NULL DEFAULT FALSE,
	revoked_at       TIMESTAMPTZ,
	revoke_reason    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS nonce_bindings (
	nonce          TEXT PRIMARY KEY,
	org_id         TEXT NOT NULL,
	public_key     TEXT NOT NULL,
	signature      TEXT NOT NULL,
	secret_version TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	previous_nonce TEXT,
	chain_depth    INT NOT NULL DEFAULT 0,
	revoked_at     TIMESTAMPTZ,
	revoke_reason  TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS nonce_bindings_active_org
	ON nonce_bindings (org_id) WHERE revoked_at IS NULL;

CREATE TABLE IF NOT EXISTS consent_grants (
	id         BIGSERIAL PRIMARY KEY,
	org_id     TEXT NOT NULL,
	scope      TEXT NOT NULL,
	granted_at TIMESTAMPTZ NOT NULL,
	revoked_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS consent_grants_active
	ON consent_grants (org_id, scope) WHERE revoked_at IS NULL;

CREATE TABLE IF NOT EXISTS org_reputation (
	org_id             TEXT PRIMARY KEY,
	reputation_score   DOUBLE PRECISION NOT NULL,
	stake_pledge_usd   DOUBLE PRECISION NOT NULL DEFAULT 0,
	stake_status       TEXT NOT NULL,
	contribution_count INT NOT NULL DEFAULT 0,
	flagged_count      INT NOT NULL DEFAULT 0,
	consistency_score  DOUBLE PRECISION NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL,
	version            BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS consistency_records (
	org_id  TEXT PRIMARY KEY,
	samples JSONB NOT NULL,
	version BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS probation_statuses (
	org_id         TEXT PRIMARY KEY,
	state          TEXT NOT NULL,
	entered_at     TIMESTAMPTZ NOT NULL,
	activated_at   TIMESTAMPTZ,
	removed_at     TIMESTAMPTZ,
	removed_reason TEXT NOT NULL DEFAULT '',
	version        BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS pending_contributions (
	id              BIGSERIAL PRIMARY KEY,
	rule_id         TEXT NOT NULL,
	org_id          TEXT NOT NULL,
	nonce           TEXT NOT NULL,
	reported_rate   DOUBLE PRECISION NOT NULL,
	events_observed INT NOT NULL DEFAULT 0,
	events_expected INT NOT NULL DEFAULT 0,
	submitted_at    TIMESTAMPTZ NOT NULL,
	consumed_round  TEXT
);
CREATE INDEX IF NOT EXISTS pending_contributions_unconsumed
	ON pending_contributions (rule_id, org_id) WHERE consumed_round IS NULL;

CREATE TABLE IF NOT EXISTS calibration_results (
	rule_id            TEXT NOT NULL,
	round_id           TEXT NOT NULL,
	status             TEXT NOT NULL,
	rate               DOUBLE PRECISION NOT NULL,
	threshold          DOUBLE PRECISION NOT NULL,
	quorum_share       DOUBLE PRECISION NOT NULL,
	confidence         JSONB NOT NULL,
	cohort_size        INT NOT NULL,
	total_contributors INT NOT NULL DEFAULT 0,
	below_recommended  BOOLEAN NOT NULL,
	filter_by_stage    JSONB NOT NULL,
	computed_at        TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (rule_id, round_id)
);

CREATE TABLE IF NOT EXISTS audit_events (
	id          TEXT PRIMARY KEY,
	category    TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	org_id      TEXT NOT NULL DEFAULT '',
	rule_id     TEXT NOT NULL DEFAULT '',
	action      TEXT NOT NULL,
	decision    TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL DEFAULT '',
	request_id  TEXT NOT NULL DEFAULT '',
	client_ip   TEXT NOT NULL DEFAULT '',
	details     JSONB NOT NULL DEFAULT '{}'::jsonb
);
`

// NewPostgresContainer starts Postgres and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("calibra"),
		tcpostgres.WithUsername("calibra"),
		tcpostgres.WithPassword("calibra"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres pool: %v", err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	pc := &PostgresContainer{Container: container, DB: db, URL: url}
	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(context.Background())
	})
	return pc
}

// TruncateTables clears the given tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE %s", strings.Join(tables, ", ")))
	return err
}
