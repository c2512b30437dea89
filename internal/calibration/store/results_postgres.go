package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"calibra/internal/calibration/models"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// PostgresResults persists round results. Confidence and per-stage counts
// are stored as JSONB: they are read back whole, never queried by field.
type PostgresResults struct {
	db *sql.DB
}

func NewPostgresResults(db *sql.DB) *PostgresResults {
	return &PostgresResults{db: db}
}

const resultColumns = `rule_id, round_id, status, rate, threshold, quorum_share, confidence, cohort_size, total_contributors, below_recommended, filter_by_stage, computed_at`

func (s *PostgresResults) Save(ctx context.Context, result models.CalibrationResult) error {
	confidence, err := json.Marshal(result.Confidence)
	if err != nil {
		return fmt.Errorf("encode confidence: %w", err)
	}
	byStage, err := json.Marshal(result.FilterByStage)
	if err != nil {
		return fmt.Errorf("encode filter summary: %w", err)
	}
	query := `
		INSERT INTO calibration_results (` + resultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		result.RuleID.String(),
		result.RoundID.String(),
		string(result.Status),
		result.Rate,
		result.Threshold,
		result.QuorumShare,
		confidence,
		result.CohortSize,
		result.TotalContributorCount,
		result.BelowRecommendedCohort,
		byStage,
		result.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("save calibration result: %w", err)
	}
	return nil
}

func (s *PostgresResults) Latest(ctx context.Context, ruleID id.RuleID) (*models.CalibrationResult, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM calibration_results
		WHERE rule_id = $1
		ORDER BY round_id DESC
		LIMIT 1
	`
	result, err := scanResult(s.db.QueryRowContext(ctx, query, ruleID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("latest calibration result: %w", err)
	}
	return result, nil
}

func (s *PostgresResults) History(ctx context.Context, ruleID id.RuleID, limit int) ([]models.CalibrationResult, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + resultColumns + `
		FROM calibration_results
		WHERE rule_id = $1
		ORDER BY round_id DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, ruleID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("calibration history: %w", err)
	}
	defer rows.Close()

	var out []models.CalibrationResult
	for rows.Next() {
		result, err := scanResultRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *result)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row *sql.Row) (*models.CalibrationResult, error) {
	return scanFrom(row)
}

func scanResultRow(rows *sql.Rows) (*models.CalibrationResult, error) {
	result, err := scanFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("scan calibration result: %w", err)
	}
	return result, nil
}

func scanFrom(sc rowScanner) (*models.CalibrationResult, error) {
	var (
		result     models.CalibrationResult
		rule       string
		round      string
		status     string
		confidence []byte
		byStage    []byte
	)
	err := sc.Scan(&rule, &round, &status, &result.Rate, &result.Threshold, &result.QuorumShare, &confidence, &result.CohortSize, &result.TotalContributorCount, &result.BelowRecommendedCohort, &byStage, &result.ComputedAt)
	if err != nil {
		return nil, err
	}
	result.RuleID = id.RuleID(rule)
	result.RoundID = id.RoundID(round)
	result.Status = models.RoundStatus(status)
	if err := json.Unmarshal(confidence, &result.Confidence); err != nil {
		return nil, fmt.Errorf("decode confidence: %w", err)
	}
	if len(byStage) > 0 {
		if err := json.Unmarshal(byStage, &result.FilterByStage); err != nil {
			return nil, fmt.Errorf("decode filter summary: %w", err)
		}
	}
	return &result, nil
}
