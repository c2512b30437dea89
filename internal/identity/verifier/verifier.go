// Package verifier holds the pluggable identity verification strategies.
//
// Each strategy asserts a set of threshold criteria against an external
// directory and returns either the checked-criteria list (pass) or a
// Rejection (fail). Strategies never retain third-party credentials.
package verifier

import (
	"context"

	"calibra/internal/identity/models"
)

// Verifier is the uniform strategy contract. New verification methods add
// an implementation without touching binding or pipeline logic.
type Verifier interface {
	Method() models.VerificationMethod
	// Verify returns the criteria that were checked on success, or a
	// non-nil Rejection when a threshold was not met. The error return is
	// reserved for infrastructure failures reaching the directory.
	Verify(ctx context.Context, req models.VerificationRequest) (criteria []string, rejection *models.Rejection, err error)
}
