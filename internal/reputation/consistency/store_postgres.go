package consistency

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// PostgresStore persists agreement histories as one JSONB document per org.
// Histories are read-modify-write under the pipeline's per-org lock, with
// the version column as a backstop.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, orgID id.OrgID) (*Record, error) {
	query := `SELECT samples, version FROM consistency_records WHERE org_id = $1`
	var (
		raw     []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx, query, orgID.String()).Scan(&raw, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &Record{OrgID: orgID}, nil
		}
		return nil, fmt.Errorf("get consistency record: %w", err)
	}
	record := Record{OrgID: orgID, Version: version}
	if err := json.Unmarshal(raw, &record.Samples); err != nil {
		return nil, fmt.Errorf("decode consistency samples: %w", err)
	}
	return &record, nil
}

func (s *PostgresStore) Save(ctx context.Context, record Record) error {
	raw, err := json.Marshal(record.Samples)
	if err != nil {
		return fmt.Errorf("encode consistency samples: %w", err)
	}
	if record.Version == 0 {
		query := `
			INSERT INTO consistency_records (org_id, samples, version)
			VALUES ($1, $2, 1)
			ON CONFLICT (org_id) DO NOTHING
		`
		res, err := s.db.ExecContext(ctx, query, record.OrgID.String(), raw)
		if err != nil {
			return fmt.Errorf("insert consistency record: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert consistency record rows affected: %w", err)
		}
		if affected == 0 {
			return sentinel.ErrConflict
		}
		return nil
	}
	query := `
		UPDATE consistency_records
		SET samples = $2, version = version + 1
		WHERE org_id = $1 AND version = $3
	`
	res, err := s.db.ExecContext(ctx, query, record.OrgID.String(), raw, record.Version)
	if err != nil {
		return fmt.Errorf("update consistency record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update consistency record rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}
