package domain

import "fmt"

// ConsentScope is a domain value that identifies what an organization agreed
// to share. Scope binding allows selective revocation without affecting
// other flows.
//
// Usage: construct via ParseConsentScope at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type ConsentScope string

// Supported consent scopes.
const (
	// ConsentScopeAggregateSharing covers inclusion of an org's
	// false-positive counts in consortium aggregate statistics.
	ConsentScopeAggregateSharing ConsentScope = "aggregate_sharing"
	// ConsentScopeBenchmarking covers anonymized cross-org benchmarking
	// reports derived from calibration results.
	ConsentScopeBenchmarking ConsentScope = "benchmarking"
)

var validScopes = map[ConsentScope]bool{
	ConsentScopeAggregateSharing: true,
	ConsentScopeBenchmarking:     true,
}

// ParseConsentScope validates and returns a ConsentScope.
func ParseConsentScope(s string) (ConsentScope, error) {
	scope := ConsentScope(s)
	if !validScopes[scope] {
		return "", fmt.Errorf("unknown consent scope: %s", s)
	}
	return scope, nil
}

func (s ConsentScope) String() string { return string(s) }
func (s ConsentScope) IsNil() bool    { return s == "" }
