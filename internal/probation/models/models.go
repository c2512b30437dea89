// Package models defines the probation module's domain types.
package models

import (
	"fmt"
	"time"

	id "calibra/pkg/domain"
)

// State is an org's standing in the consortium.
type State string

const (
	// StateProbation is the entry state for every newly verified org.
	// Contributions are accepted and scored but excluded from the
	// consensus cohort.
	StateProbation State = "probation"
	// StateActive admits the org's contributions to the cohort.
	StateActive State = "active"
	// StateRemoved is terminal. There is no path back; a removed org
	// must re-verify as a new identity.
	StateRemoved State = "removed"
)

// ParseState validates and returns a State.
func ParseState(s string) (State, error) {
	switch state := State(s); state {
	case StateProbation, StateActive, StateRemoved:
		return state, nil
	default:
		return "", fmt.Errorf("unknown probation state: %s", s)
	}
}

// Graduation thresholds. All three must hold simultaneously.
const (
	// GraduationSubmissions is the minimum accepted contribution count.
	GraduationSubmissions = 20
	// GraduationMaxFlagged is the flagged-event ceiling during probation.
	GraduationMaxFlagged = 0
	// GraduationMinReputation is the reputation floor for activation.
	GraduationMinReputation = 0.5
)

// RemovalFlagThreshold removes an org once its flagged count exceeds it.
const RemovalFlagThreshold = 2

// Status is one org's probation record.
type Status struct {
	OrgID         id.OrgID
	State         State
	EnteredAt     time.Time
	ActivatedAt   *time.Time
	RemovedAt     *time.Time
	RemovedReason string
	Version       int64
}

// NewStatus builds the entry record for a freshly verified org.
func NewStatus(orgID id.OrgID, now time.Time) Status {
	return Status{OrgID: orgID, State: StateProbation, EnteredAt: now}
}
