package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	id "calibra/pkg/domain"
)

// PostgresStore persists the audit trail in PostgreSQL. Pure I/O — category
// assignment and stamping happen in the publisher.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	query := `
		INSERT INTO audit_events (id, category, occurred_at, org_id, rule_id, action, decision, reason, request_id, client_ip, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.db.ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		event.Timestamp,
		event.OrgID.String(),
		event.RuleID.String(),
		string(event.Action),
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ClientIP,
		details,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByOrg(ctx context.Context, orgID id.OrgID) ([]Event, error) {
	query := `
		SELECT id, category, occurred_at, org_id, rule_id, action, decision, reason, request_id, client_ip, details
		FROM audit_events
		WHERE org_id = $1
		ORDER BY occurred_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, orgID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *PostgresStore) ListByAction(ctx context.Context, action Action, limit int) ([]Event, error) {
	query := `
		SELECT id, category, occurred_at, org_id, rule_id, action, decision, reason, request_id, client_ip, details
		FROM audit_events
		WHERE action = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, string(action), limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events by action: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		var (
			e       Event
			org     string
			rule    string
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.Category, &e.Timestamp, &org, &rule, &e.Action, &e.Decision, &e.Reason, &e.RequestID, &e.ClientIP, &details); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.OrgID = id.OrgID(org)
		e.RuleID = id.RuleID(rule)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
