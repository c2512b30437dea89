// Package ports declares the calibration pipeline's outbound contracts.
// The pipeline orchestrates every other module; keeping those modules
// behind narrow interfaces keeps round logic testable in isolation.
package ports

import (
	"context"
	"time"

	calmodels "calibra/internal/calibration/models"
	nbmodels "calibra/internal/noncebind/models"
	probmodels "calibra/internal/probation/models"
	"calibra/internal/reputation/consistency"
	repmodels "calibra/internal/reputation/models"
	id "calibra/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=../mocks/ports_mock.go -package=mocks

// Contributions stores submitted reports append-only: nothing is ever
// overwritten or deleted, so the contribution trail survives aborted
// rounds and stays auditable.
type Contributions interface {
	// Append records a submission. An earlier report from the same org
	// for the rule is superseded by the new row, not replaced in place.
	Append(ctx context.Context, c calmodels.Contribution) error
	// Snapshot returns each org's latest unconsumed report for the rule.
	// It reads without mutating: an aborted round leaves the snapshot
	// pending for the next one.
	Snapshot(ctx context.Context, ruleID id.RuleID) ([]calmodels.Contribution, error)
	// MarkConsumed stamps the rule's unconsumed reports submitted at or
	// before asOf with the round that took them. Reports that arrived
	// after the snapshot stay pending.
	MarkConsumed(ctx context.Context, ruleID id.RuleID, roundID id.RoundID, asOf time.Time) error
	// PendingRules lists rules with at least one unconsumed report.
	PendingRules(ctx context.Context) ([]id.RuleID, error)
}

// Results stores published round outcomes.
type Results interface {
	Save(ctx context.Context, result calmodels.CalibrationResult) error
	// Latest returns the most recent result for the rule.
	// sentinel.ErrNotFound when the rule has never completed a round.
	Latest(ctx context.Context, ruleID id.RuleID) (*calmodels.CalibrationResult, error)
	History(ctx context.Context, ruleID id.RuleID, limit int) ([]calmodels.CalibrationResult, error)
}

// NonceVerifier validates a contribution's pseudonymous binding.
type NonceVerifier interface {
	Verify(ctx context.Context, nonce id.Nonce, claimedOrgID id.OrgID) (*nbmodels.VerifyResult, error)
}

// Consent answers whether an org holds a scope. Errors mean unknown, and
// unknown means excluded.
type Consent interface {
	HasActive(ctx context.Context, orgID id.OrgID, scope id.ConsentScope) (bool, error)
}

// Reputations is the slice of the reputation module the pipeline needs.
type Reputations interface {
	// Get returns the org's record; sentinel.ErrNotFound when none
	// exists, which the filter treats as exclusion.
	Get(ctx context.Context, orgID id.OrgID) (*repmodels.OrganizationReputation, error)
	// RecordRound applies one round's outcome to the org's record.
	RecordRound(ctx context.Context, orgID id.OrgID, agreement, consistencyScore float64) error
}

// Probation is the slice of the probation gate the pipeline needs.
type Probation interface {
	StateFor(ctx context.Context, orgID id.OrgID) (probmodels.State, error)
	// Evaluate re-checks transitions after the round's updates land.
	Evaluate(ctx context.Context, orgID id.OrgID) (probmodels.State, error)
}

// ConsistencyStore persists per-org agreement histories.
type ConsistencyStore interface {
	Get(ctx context.Context, orgID id.OrgID) (*consistency.Record, error)
	Save(ctx context.Context, record consistency.Record) error
}

// Enrollment provisions trust records for first-time contributors: the
// neutral reputation record and the probation entry.
type Enrollment interface {
	Enroll(ctx context.Context, orgID id.OrgID) error
}

// Locker serializes post-round updates per org: an org contributing to
// several concurrent rule rounds must have its history applied one round
// at a time.
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned
	// function releases the lock.
	Lock(ctx context.Context, key string) (func(), error)
}
