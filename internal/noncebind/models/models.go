// Package models defines the nonce-binding domain types.
package models

import (
	"time"

	id "calibra/pkg/domain"
)

// MaxChainDepth caps rotation chains to bound audit-trail growth. An org
// that exhausts the chain must re-verify and receive a fresh identity.
const MaxChainDepth = 100

// NonceBinding is the cryptographic proof that one nonce belongs
// exclusively to one verified identity. At most one active binding exists
// per org at any time; a nonce is never reused across orgs.
type NonceBinding struct {
	Nonce     id.Nonce
	OrgID     id.OrgID
	PublicKey id.PublicKeyHex
	// Signature is hex(MAC(nonce || orgID || publicKey)) under the secret
	// identified by SecretVersion.
	Signature     string
	SecretVersion string
	CreatedAt     time.Time
	// PreviousNonce links the rotation chain for auditability.
	PreviousNonce id.Nonce
	ChainDepth    int
	RevokedAt     *time.Time
	RevokeReason  string
}

// Active reports whether the binding may authenticate submissions.
func (b NonceBinding) Active() bool {
	return b.RevokedAt == nil
}

// VerifyResult is the outcome of a nonce verification. Verification is a
// pure validation boundary: failures are results with reasons, never
// panics or thrown errors.
type VerifyResult struct {
	Valid   bool
	Binding *NonceBinding
	Reason  string
}

// Invalid builds a failed result with the given reason.
func Invalid(reason string) *VerifyResult {
	return &VerifyResult{Valid: false, Reason: reason}
}
