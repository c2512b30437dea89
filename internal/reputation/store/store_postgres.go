package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"calibra/internal/reputation/models"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// PostgresStore persists reputation records in PostgreSQL. Version-guarded
// updates prevent lost updates when an org appears in multiple concurrent
// rule rounds.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const reputationColumns = `org_id, reputation_score, stake_pledge_usd, stake_status, contribution_count, flagged_count, consistency_score, created_at, updated_at, version`

func (s *PostgresStore) Get(ctx context.Context, orgID id.OrgID) (*models.OrganizationReputation, error) {
	query := `SELECT ` + reputationColumns + ` FROM org_reputation WHERE org_id = $1`
	record, err := scanReputation(s.db.QueryRowContext(ctx, query, orgID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get reputation: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, initial models.OrganizationReputation) (*models.OrganizationReputation, error) {
	query := `
		INSERT INTO org_reputation (` + reputationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0)
		ON CONFLICT (org_id) DO UPDATE SET org_id = EXCLUDED.org_id
		RETURNING ` + reputationColumns + `
	`
	record, err := scanReputation(s.db.QueryRowContext(ctx, query,
		initial.OrgID.String(),
		initial.ReputationScore,
		initial.StakePledgeUSD,
		string(initial.StakeStatus),
		initial.ContributionCount,
		initial.FlaggedCount,
		initial.ConsistencyScore,
		initial.CreatedAt,
		initial.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("get or create reputation: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Update(ctx context.Context, record models.OrganizationReputation) error {
	query := `
		UPDATE org_reputation
		SET reputation_score = $2,
		    stake_pledge_usd = $3,
		    stake_status = $4,
		    contribution_count = $5,
		    flagged_count = $6,
		    consistency_score = $7,
		    updated_at = $8,
		    version = version + 1
		WHERE org_id = $1 AND version = $9
	`
	res, err := s.db.ExecContext(ctx, query,
		record.OrgID.String(),
		record.ReputationScore,
		record.StakePledgeUSD,
		string(record.StakeStatus),
		record.ContributionCount,
		record.FlaggedCount,
		record.ConsistencyScore,
		record.UpdatedAt,
		record.Version,
	)
	if err != nil {
		return fmt.Errorf("update reputation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reputation rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.Get(ctx, record.OrgID); errors.Is(getErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.OrganizationReputation, error) {
	query := `SELECT ` + reputationColumns + ` FROM org_reputation ORDER BY org_id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reputation: %w", err)
	}
	defer rows.Close()

	var out []*models.OrganizationReputation
	for rows.Next() {
		var (
			r      models.OrganizationReputation
			orgID  string
			status string
		)
		if err := rows.Scan(&orgID, &r.ReputationScore, &r.StakePledgeUSD, &status, &r.ContributionCount, &r.FlaggedCount, &r.ConsistencyScore, &r.CreatedAt, &r.UpdatedAt, &r.Version); err != nil {
			return nil, fmt.Errorf("scan reputation: %w", err)
		}
		r.OrgID = id.OrgID(orgID)
		r.StakeStatus = models.StakeStatus(status)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func scanReputation(row *sql.Row) (*models.OrganizationReputation, error) {
	var (
		r      models.OrganizationReputation
		orgID  string
		status string
	)
	err := row.Scan(&orgID, &r.ReputationScore, &r.StakePledgeUSD, &status, &r.ContributionCount, &r.FlaggedCount, &r.ConsistencyScore, &r.CreatedAt, &r.UpdatedAt, &r.Version)
	if err != nil {
		return nil, err
	}
	r.OrgID = id.OrgID(orgID)
	r.StakeStatus = models.StakeStatus(status)
	return &r, nil
}
