// Package models defines the identity module's domain types.
package models

import (
	"fmt"
	"time"

	id "calibra/pkg/domain"
)

// VerificationMethod names the strategy that verified an organization.
// Adding a method means adding a Verifier implementation; binding and
// pipeline logic never switch on the method.
type VerificationMethod string

const (
	// MethodOrgAccount verifies through an organizational account's age
	// and membership count.
	MethodOrgAccount VerificationMethod = "org_account"
	// MethodPayment verifies through a payment account's age and a
	// verified payment method on file.
	MethodPayment VerificationMethod = "payment"
)

var validMethods = map[VerificationMethod]bool{
	MethodOrgAccount: true,
	MethodPayment:    true,
}

// ParseVerificationMethod validates and returns a VerificationMethod.
func ParseVerificationMethod(s string) (VerificationMethod, error) {
	m := VerificationMethod(s)
	if !validMethods[m] {
		return "", fmt.Errorf("unknown verification method: %s", s)
	}
	return m, nil
}

func (m VerificationMethod) String() string { return string(m) }

// OrganizationIdentity is a verified real-world organization. Exactly one
// active (non-revoked) identity exists per org ID; revocation is a state,
// never erasure (audit requirement).
type OrganizationIdentity struct {
	OrgID      id.OrgID
	Name       string
	Method     VerificationMethod
	VerifiedAt time.Time
	// CriteriaChecked lists the threshold criteria the verifier asserted.
	// Verifiers never retain the underlying third-party credentials; this
	// is the entire audit surface of a verification.
	CriteriaChecked []string
	Revoked         bool
	RevokedAt       *time.Time
	RevokeReason    string
}

// Active reports whether the identity may be used for binding and
// contribution.
func (o OrganizationIdentity) Active() bool {
	return !o.Revoked
}

// VerificationRequest carries the evidence a strategy inspects. Fields are
// populated by the caller for the method it targets; strategies ignore
// fields that are not theirs.
type VerificationRequest struct {
	OrgName string
	Method  VerificationMethod

	// Org-account evidence.
	AccountHandle string

	// Payment evidence.
	PaymentAccountRef string
}

// Rejection explains a failed verification. It is a result, not an error:
// failing a threshold is a domain outcome.
type Rejection struct {
	Method VerificationMethod
	Reason string
	// CriteriaFailed names the thresholds that were not met.
	CriteriaFailed []string
}
