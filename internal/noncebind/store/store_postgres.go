package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"calibra/internal/noncebind/models"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// PostgresStore persists bindings in PostgreSQL.
//
// One-active-binding-per-org is enforced by a partial unique index on
// (org_id) WHERE revoked_at IS NULL; nonce uniqueness by the primary key.
// Rotation runs in a single transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const bindingColumns = `nonce, org_id, public_key, signature, secret_version, created_at, previous_nonce, chain_depth, revoked_at, revoke_reason`

func (s *PostgresStore) GetActiveByOrg(ctx context.Context, orgID id.OrgID) (*models.NonceBinding, error) {
	query := `SELECT ` + bindingColumns + ` FROM nonce_bindings WHERE org_id = $1 AND revoked_at IS NULL`
	binding, err := scanBinding(s.db.QueryRowContext(ctx, query, orgID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get active binding: %w", err)
	}
	return binding, nil
}

func (s *PostgresStore) GetByNonce(ctx context.Context, nonce id.Nonce) (*models.NonceBinding, error) {
	query := `SELECT ` + bindingColumns + ` FROM nonce_bindings WHERE nonce = $1`
	binding, err := scanBinding(s.db.QueryRowContext(ctx, query, nonce.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get binding by nonce: %w", err)
	}
	return binding, nil
}

func (s *PostgresStore) Create(ctx context.Context, binding models.NonceBinding) error {
	return s.create(ctx, s.db, binding)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) create(ctx context.Context, db execer, binding models.NonceBinding) error {
	// Serialize against concurrent binds for the same org before the
	// insert; the partial unique index is the backstop.
	var active int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nonce_bindings WHERE org_id = $1 AND revoked_at IS NULL`,
		binding.OrgID.String(),
	).Scan(&active)
	if err != nil {
		return fmt.Errorf("check active binding: %w", err)
	}
	if active > 0 {
		return sentinel.ErrAlreadyBound
	}

	query := `
		INSERT INTO nonce_bindings (` + bindingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULL, '')
		ON CONFLICT (nonce) DO NOTHING
	`
	res, err := db.ExecContext(ctx, query,
		binding.Nonce.String(),
		binding.OrgID.String(),
		binding.PublicKey.String(),
		binding.Signature,
		binding.SecretVersion,
		binding.CreatedAt,
		binding.PreviousNonce.String(),
		binding.ChainDepth,
	)
	if err != nil {
		return fmt.Errorf("create binding: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create binding rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Rotate(ctx context.Context, oldNonce id.Nonce, reason string, at time.Time, newBinding models.NonceBinding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotate tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE nonce_bindings SET revoked_at = $2, revoke_reason = $3 WHERE nonce = $1 AND revoked_at IS NULL`,
		oldNonce.String(), at, reason,
	)
	if err != nil {
		return fmt.Errorf("rotate revoke old: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rotate rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetByNonce(ctx, oldNonce); errors.Is(getErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrRevoked
	}

	if err := s.create(ctx, tx, newBinding); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) Revoke(ctx context.Context, nonce id.Nonce, reason string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE nonce_bindings SET revoked_at = $2, revoke_reason = $3 WHERE nonce = $1 AND revoked_at IS NULL`,
		nonce.String(), at, reason,
	)
	if err != nil {
		return fmt.Errorf("revoke binding: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetByNonce(ctx, nonce); errors.Is(getErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrRevoked
	}
	return nil
}

func (s *PostgresStore) UsageCount(ctx context.Context, nonce id.Nonce) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nonce_bindings WHERE nonce = $1`,
		nonce.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("nonce usage count: %w", err)
	}
	return count, nil
}

func scanBinding(row *sql.Row) (*models.NonceBinding, error) {
	var (
		b        models.NonceBinding
		nonce    string
		orgID    string
		pubKey   string
		previous sql.NullString
	)
	err := row.Scan(&nonce, &orgID, &pubKey, &b.Signature, &b.SecretVersion, &b.CreatedAt, &previous, &b.ChainDepth, &b.RevokedAt, &b.RevokeReason)
	if err != nil {
		return nil, err
	}
	b.Nonce = id.Nonce(nonce)
	b.OrgID = id.OrgID(orgID)
	b.PublicKey = id.PublicKeyHex(pubKey)
	if previous.Valid {
		b.PreviousNonce = id.Nonce(previous.String)
	}
	return &b, nil
}
