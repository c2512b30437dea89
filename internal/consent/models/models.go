// Package models defines the consent module's domain types.
package models

import (
	"time"

	id "calibra/pkg/domain"
)

// ConsentRecord captures one org's grant of one scope. Revocation keeps
// the row; a revoked grant is history, not absence.
type ConsentRecord struct {
	OrgID     id.OrgID
	Scope     id.ConsentScope
	GrantedAt time.Time
	RevokedAt *time.Time
}

// Active reports whether the grant currently stands.
func (r ConsentRecord) Active() bool {
	return r.RevokedAt == nil
}
