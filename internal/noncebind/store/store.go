// Package store persists nonce bindings.
//
// Bind and rotate are atomic per org: a rotate revokes the old binding and
// creates the new one in one transaction, never observable half-done.
package store

import (
	"context"
	"time"

	"calibra/internal/noncebind/models"
	id "calibra/pkg/domain"
)

// Store is the binding persistence contract.
type Store interface {
	// GetActiveByOrg returns the org's active binding, sentinel.ErrNotFound
	// when none exists.
	GetActiveByOrg(ctx context.Context, orgID id.OrgID) (*models.NonceBinding, error)

	// GetByNonce returns the binding for a nonce regardless of state.
	GetByNonce(ctx context.Context, nonce id.Nonce) (*models.NonceBinding, error)

	// Create stores a new binding. Returns sentinel.ErrAlreadyBound when
	// the org already has an active binding and sentinel.ErrConflict when
	// the nonce is already recorded (nonces are never reused across orgs).
	Create(ctx context.Context, binding models.NonceBinding) error

	// Rotate atomically revokes oldNonce and creates newBinding.
	Rotate(ctx context.Context, oldNonce id.Nonce, reason string, at time.Time, newBinding models.NonceBinding) error

	// Revoke marks a binding revoked. sentinel.ErrRevoked when already
	// revoked, sentinel.ErrNotFound when unknown.
	Revoke(ctx context.Context, nonce id.Nonce, reason string, at time.Time) error

	// UsageCount reports how many bindings have ever recorded this nonce.
	// Anything above 1 indicates attempted reuse.
	UsageCount(ctx context.Context, nonce id.Nonce) (int, error)
}
