package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"calibra/internal/probation/models"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// PostgresStore persists probation statuses in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const statusColumns = `org_id, state, entered_at, activated_at, removed_at, removed_reason, version`

func (s *PostgresStore) Get(ctx context.Context, orgID id.OrgID) (*models.Status, error) {
	query := `SELECT ` + statusColumns + ` FROM probation_statuses WHERE org_id = $1`
	status, err := scanStatus(s.db.QueryRowContext(ctx, query, orgID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get probation status: %w", err)
	}
	return status, nil
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, initial models.Status) (*models.Status, error) {
	query := `
		INSERT INTO probation_statuses (` + statusColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, 0)
		ON CONFLICT (org_id) DO UPDATE SET org_id = EXCLUDED.org_id
		RETURNING ` + statusColumns + `
	`
	status, err := scanStatus(s.db.QueryRowContext(ctx, query,
		initial.OrgID.String(),
		string(initial.State),
		initial.EnteredAt,
		initial.ActivatedAt,
		initial.RemovedAt,
		initial.RemovedReason,
	))
	if err != nil {
		return nil, fmt.Errorf("get or create probation status: %w", err)
	}
	return status, nil
}

func (s *PostgresStore) Update(ctx context.Context, status models.Status) error {
	query := `
		UPDATE probation_statuses
		SET state = $2,
		    activated_at = $3,
		    removed_at = $4,
		    removed_reason = $5,
		    version = version + 1
		WHERE org_id = $1 AND version = $6
	`
	res, err := s.db.ExecContext(ctx, query,
		status.OrgID.String(),
		string(status.State),
		status.ActivatedAt,
		status.RemovedAt,
		status.RemovedReason,
		status.Version,
	)
	if err != nil {
		return fmt.Errorf("update probation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update probation status rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.Get(ctx, status.OrgID); errors.Is(getErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Status, error) {
	query := `SELECT ` + statusColumns + ` FROM probation_statuses ORDER BY org_id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list probation statuses: %w", err)
	}
	defer rows.Close()

	var out []*models.Status
	for rows.Next() {
		var (
			st    models.Status
			orgID string
			state string
		)
		if err := rows.Scan(&orgID, &state, &st.EnteredAt, &st.ActivatedAt, &st.RemovedAt, &st.RemovedReason, &st.Version); err != nil {
			return nil, fmt.Errorf("scan probation status: %w", err)
		}
		st.OrgID = id.OrgID(orgID)
		st.State = models.State(state)
		out = append(out, &st)
	}
	return out, rows.Err()
}

func scanStatus(row *sql.Row) (*models.Status, error) {
	var (
		st    models.Status
		orgID string
		state string
	)
	err := row.Scan(&orgID, &state, &st.EnteredAt, &st.ActivatedAt, &st.RemovedAt, &st.RemovedReason, &st.Version)
	if err != nil {
		return nil, err
	}
	st.OrgID = id.OrgID(orgID)
	st.State = models.State(state)
	return &st, nil
}
