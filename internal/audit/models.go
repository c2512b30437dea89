package audit

import (
	"time"

	id "calibra/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory or consortium-
	// governance significance. These require tamper-evident storage and
	// long retention. Examples: consent exclusions, calibration results,
	// identity revocations.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and
	// forensics. Examples: nonce verification failures, rotations,
	// reputation flags, stake slashing.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and
	// operational visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	OrgID     id.OrgID
	RuleID    id.RuleID
	Action    Action
	Decision  string
	Reason    string
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string
	// ClientIP records the submitting address for security events.
	ClientIP string
	// Details carries action-specific attributes (secret version, chain
	// depth, cohort sizes). Values must never contain raw contribution
	// data below the k-anonymity floor.
	Details map[string]string
}

// Action names an auditable operation.
type Action string

const (
	// Identity events
	ActionIdentityVerified  Action = "identity_verified"
	ActionIdentityRejected  Action = "identity_rejected"
	ActionIdentityRevoked   Action = "identity_revoked"
	ActionAttestationIssued Action = "attestation_issued"

	// Nonce binding events
	ActionNonceBound        Action = "nonce_bound"
	ActionNonceRotated      Action = "nonce_rotated"
	ActionNonceRevoked      Action = "nonce_revoked"
	ActionNonceVerifyFailed Action = "nonce_verify_failed"

	// Reputation events
	ActionOrgFlagged     Action = "org_flagged"
	ActionStakePledged   Action = "stake_pledged"
	ActionStakeSlashed   Action = "stake_slashed"
	ActionStakeWithdrawn Action = "stake_withdrawn"
	ActionProbationState Action = "probation_state_changed"

	// Consent events
	ActionConsentGranted Action = "consent_granted"
	ActionConsentRevoked Action = "consent_revoked"

	// Calibration events
	ActionRoundCompleted    Action = "calibration_round_completed"
	ActionRoundAborted      Action = "calibration_round_aborted"
	ActionConsentExcluded   Action = "consent_excluded"
	ActionContributionSaved Action = "contribution_recorded"
)

// eventCategories maps each action to its category.
var eventCategories = map[Action]EventCategory{
	ActionIdentityVerified:  CategoryCompliance,
	ActionIdentityRejected:  CategoryCompliance,
	ActionIdentityRevoked:   CategoryCompliance,
	ActionAttestationIssued: CategoryOperations,

	ActionNonceBound:        CategorySecurity,
	ActionNonceRotated:      CategorySecurity,
	ActionNonceRevoked:      CategorySecurity,
	ActionNonceVerifyFailed: CategorySecurity,

	ActionOrgFlagged:     CategorySecurity,
	ActionStakePledged:   CategoryOperations,
	ActionStakeSlashed:   CategorySecurity,
	ActionStakeWithdrawn: CategoryOperations,
	ActionProbationState: CategoryOperations,

	ActionConsentGranted: CategoryCompliance,
	ActionConsentRevoked: CategoryCompliance,

	ActionRoundCompleted:    CategoryCompliance,
	ActionRoundAborted:      CategoryCompliance,
	ActionConsentExcluded:   CategoryCompliance,
	ActionContributionSaved: CategoryOperations,
}

// Category returns the EventCategory for this action.
// Unknown actions default to CategoryOperations.
func (a Action) Category() EventCategory {
	if cat, ok := eventCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}
