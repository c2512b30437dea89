package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"calibra/internal/calibration/models"
	id "calibra/pkg/domain"
)

// PostgresContributions persists the append-only contribution log. A
// re-submission inserts a new row that supersedes the earlier one; a
// completed round stamps the rows it consumed instead of deleting them.
type PostgresContributions struct {
	db *sql.DB
}

func NewPostgresContributions(db *sql.DB) *PostgresContributions {
	return &PostgresContributions{db: db}
}

func (s *PostgresContributions) Append(ctx context.Context, c models.Contribution) error {
	query := `
		INSERT INTO pending_contributions (rule_id, org_id, nonce, reported_rate, events_observed, events_expected, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		c.RuleID.String(),
		c.OrgID.String(),
		c.Nonce.String(),
		c.ReportedRate,
		c.EventsObserved,
		c.EventsExpected,
		c.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("append contribution: %w", err)
	}
	return nil
}

// Snapshot reads each org's latest unconsumed report for the rule without
// mutating the log. Ties on submitted_at break toward the later insert.
func (s *PostgresContributions) Snapshot(ctx context.Context, ruleID id.RuleID) ([]models.Contribution, error) {
	query := `
		SELECT DISTINCT ON (org_id)
			rule_id, org_id, nonce, reported_rate, events_observed, events_expected, submitted_at
		FROM pending_contributions
		WHERE rule_id = $1 AND consumed_round IS NULL
		ORDER BY org_id, submitted_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, ruleID.String())
	if err != nil {
		return nil, fmt.Errorf("snapshot contributions: %w", err)
	}
	defer rows.Close()

	var out []models.Contribution
	for rows.Next() {
		var (
			c     models.Contribution
			rule  string
			org   string
			nonce string
		)
		if err := rows.Scan(&rule, &org, &nonce, &c.ReportedRate, &c.EventsObserved, &c.EventsExpected, &c.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		c.RuleID = id.RuleID(rule)
		c.OrgID = id.OrgID(org)
		c.Nonce = id.Nonce(nonce)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresContributions) MarkConsumed(ctx context.Context, ruleID id.RuleID, roundID id.RoundID, asOf time.Time) error {
	query := `
		UPDATE pending_contributions
		SET consumed_round = $2
		WHERE rule_id = $1 AND consumed_round IS NULL AND submitted_at <= $3
	`
	if _, err := s.db.ExecContext(ctx, query, ruleID.String(), roundID.String(), asOf); err != nil {
		return fmt.Errorf("mark contributions consumed: %w", err)
	}
	return nil
}

func (s *PostgresContributions) PendingRules(ctx context.Context) ([]id.RuleID, error) {
	query := `SELECT DISTINCT rule_id FROM pending_contributions WHERE consumed_round IS NULL ORDER BY rule_id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending rules: %w", err)
	}
	defer rows.Close()

	var out []id.RuleID
	for rows.Next() {
		var rule string
		if err := rows.Scan(&rule); err != nil {
			return nil, fmt.Errorf("scan pending rule: %w", err)
		}
		out = append(out, id.RuleID(rule))
	}
	return out, rows.Err()
}
