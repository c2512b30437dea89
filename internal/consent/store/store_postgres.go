package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"calibra/internal/consent/models"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// PostgresStore persists consent grants. A partial unique index on
// (org_id, scope) WHERE revoked_at IS NULL enforces at most one active
// grant per scope while keeping revoked history.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Grant(ctx context.Context, record models.ConsentRecord) error {
	query := `
		INSERT INTO consent_grants (org_id, scope, granted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (org_id, scope) WHERE revoked_at IS NULL DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, record.OrgID.String(), string(record.Scope), record.GrantedAt)
	if err != nil {
		return fmt.Errorf("grant consent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("grant consent rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Revoke(ctx context.Context, orgID id.OrgID, scope id.ConsentScope, at time.Time) error {
	query := `
		UPDATE consent_grants
		SET revoked_at = $3
		WHERE org_id = $1 AND scope = $2 AND revoked_at IS NULL
	`
	res, err := s.db.ExecContext(ctx, query, orgID.String(), string(scope), at)
	if err != nil {
		return fmt.Errorf("revoke consent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke consent rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) HasActive(ctx context.Context, orgID id.OrgID, scope id.ConsentScope) (bool, error) {
	query := `SELECT 1 FROM consent_grants WHERE org_id = $1 AND scope = $2 AND revoked_at IS NULL`
	var one int
	err := s.db.QueryRowContext(ctx, query, orgID.String(), string(scope)).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check consent: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) ListByOrg(ctx context.Context, orgID id.OrgID) ([]models.ConsentRecord, error) {
	query := `
		SELECT org_id, scope, granted_at, revoked_at
		FROM consent_grants
		WHERE org_id = $1
		ORDER BY granted_at
	`
	rows, err := s.db.QueryContext(ctx, query, orgID.String())
	if err != nil {
		return nil, fmt.Errorf("list consent: %w", err)
	}
	defer rows.Close()

	var out []models.ConsentRecord
	for rows.Next() {
		var (
			record models.ConsentRecord
			org    string
			scope  string
		)
		if err := rows.Scan(&org, &scope, &record.GrantedAt, &record.RevokedAt); err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		record.OrgID = id.OrgID(org)
		record.Scope = id.ConsentScope(scope)
		out = append(out, record)
	}
	return out, rows.Err()
}
