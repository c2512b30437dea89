package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"calibra/internal/identity/models"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// PostgresStore persists identities in PostgreSQL. Pure I/O — one-active-
// identity enforcement rides on the primary key plus the revoked flag.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, orgID id.OrgID) (*models.OrganizationIdentity, error) {
	query := `
		SELECT org_id, name, method, verified_at, criteria_checked, revoked, revoked_at, revoke_reason
		FROM org_identities
		WHERE org_id = $1
	`
	identity, err := scanIdentity(s.db.QueryRowContext(ctx, query, orgID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return identity, nil
}

func (s *PostgresStore) Save(ctx context.Context, identity models.OrganizationIdentity) error {
	query := `
		INSERT INTO org_identities (org_id, name, method, verified_at, criteria_checked, revoked, revoked_at, revoke_reason)
		VALUES ($1, $2, $3, $4, $5, FALSE, NULL, '')
		ON CONFLICT (org_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		identity.OrgID.String(),
		identity.Name,
		string(identity.Method),
		identity.VerifiedAt,
		strings.Join(identity.CriteriaChecked, ","),
	)
	if err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save identity rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// Revoke flips the revoked state. Conditional update keeps revocation
// idempotence explicit: revoking twice is an ErrRevoked fact, not a no-op.
func (s *PostgresStore) Revoke(ctx context.Context, orgID id.OrgID, reason string, at time.Time) error {
	query := `
		UPDATE org_identities
		SET revoked = TRUE, revoked_at = $2, revoke_reason = $3
		WHERE org_id = $1 AND revoked = FALSE
	`
	res, err := s.db.ExecContext(ctx, query, orgID.String(), at, reason)
	if err != nil {
		return fmt.Errorf("revoke identity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke identity rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.Get(ctx, orgID); errors.Is(getErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrRevoked
	}
	return nil
}

func scanIdentity(row *sql.Row) (*models.OrganizationIdentity, error) {
	var (
		identity models.OrganizationIdentity
		orgID    string
		method   string
		criteria string
	)
	err := row.Scan(&orgID, &identity.Name, &method, &identity.VerifiedAt, &criteria, &identity.Revoked, &identity.RevokedAt, &identity.RevokeReason)
	if err != nil {
		return nil, err
	}
	identity.OrgID = id.OrgID(orgID)
	identity.Method = models.VerificationMethod(method)
	if criteria != "" {
		identity.CriteriaChecked = strings.Split(criteria, ",")
	}
	return &identity, nil
}
