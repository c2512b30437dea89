// Package models defines the reputation module's domain types.
package models

import (
	"fmt"
	"time"

	id "calibra/pkg/domain"
)

// StakeStatus tracks what happened to an org's pledge.
type StakeStatus string

const (
	StakeStatusNone      StakeStatus = "none"
	StakeStatusActive    StakeStatus = "active"
	StakeStatusSlashed   StakeStatus = "slashed"
	StakeStatusWithdrawn StakeStatus = "withdrawn"
)

// ParseStakeStatus validates and returns a StakeStatus.
func ParseStakeStatus(s string) (StakeStatus, error) {
	switch status := StakeStatus(s); status {
	case StakeStatusNone, StakeStatusActive, StakeStatusSlashed, StakeStatusWithdrawn:
		return status, nil
	default:
		return "", fmt.Errorf("unknown stake status: %s", s)
	}
}

// OrganizationReputation is the trust state of one org. Updated once per
// calibration round by the pipeline, never by external callers directly.
type OrganizationReputation struct {
	OrgID             id.OrgID
	ReputationScore   float64
	StakePledgeUSD    float64
	StakeStatus       StakeStatus
	ContributionCount int
	FlaggedCount      int
	ConsistencyScore  float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
	// Version guards optimistic concurrency on round updates.
	Version int64
}

// NeutralReputation is the starting score for newly verified orgs.
const NeutralReputation = 0.5

// NewOrganizationReputation builds the initial record for a fresh org.
func NewOrganizationReputation(orgID id.OrgID, now time.Time) OrganizationReputation {
	return OrganizationReputation{
		OrgID:            orgID,
		ReputationScore:  NeutralReputation,
		StakeStatus:      StakeStatusNone,
		ConsistencyScore: NeutralReputation,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// HasActiveStake reports whether the org's pledge currently counts.
func (r OrganizationReputation) HasActiveStake() bool {
	return r.StakeStatus == StakeStatusActive && r.StakePledgeUSD > 0
}

// Weight computes the bounded contribution weight.
//
//	weight = min(reputation + min(stake/1000, 1.0) + min(consistency*0.2, 0.2), 1.0)
//
// The stake term is capped so a $1,000 pledge and a $1,000,000 pledge carry
// equal weight; consistency is a small earned bonus for long-run agreement
// with consensus. Slashed or withdrawn stake contributes nothing.
func (r OrganizationReputation) Weight() float64 {
	weight := r.ReputationScore
	if r.HasActiveStake() {
		stake := r.StakePledgeUSD / 1000.0
		if stake > 1.0 {
			stake = 1.0
		}
		weight += stake
	}
	bonus := r.ConsistencyScore * 0.2
	if bonus > 0.2 {
		bonus = 0.2
	}
	weight += bonus
	if weight > 1.0 {
		weight = 1.0
	}
	if weight < 0 {
		weight = 0
	}
	return weight
}
