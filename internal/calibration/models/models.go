// Package models defines the calibration module's domain types.
package models

import (
	"time"

	"calibra/internal/consensus"
	id "calibra/pkg/domain"
)

// Contribution is one org's false-positive-rate report for one rule.
// Reports are append-only: a re-submission supersedes the earlier one,
// and a completed round marks what it consumed instead of deleting it.
type Contribution struct {
	OrgID          id.OrgID  `json:"orgId"`
	RuleID         id.RuleID `json:"ruleId"`
	Nonce          id.Nonce  `json:"nonce"`
	ReportedRate   float64   `json:"reportedRate"`
	EventsObserved int       `json:"eventsObserved"`
	EventsExpected int       `json:"eventsExpected"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// RoundStatus is the terminal state of one calibration round.
type RoundStatus string

const (
	// RoundStatusCompleted means a consensus rate was published.
	RoundStatusCompleted RoundStatus = "completed"
	// RoundStatusInsufficientCohort means the surviving cohort fell
	// below the k-anonymity floor and no rate was published.
	RoundStatusInsufficientCohort RoundStatus = "insufficient_cohort"
	// RoundStatusNoQuorum means the surviving weight share missed the
	// adaptive threshold.
	RoundStatusNoQuorum RoundStatus = "no_quorum"
)

// CalibrationResult is the published outcome of one rule's round.
type CalibrationResult struct {
	RuleID  id.RuleID   `json:"ruleId"`
	RoundID id.RoundID  `json:"roundId"`
	Status  RoundStatus `json:"status"`
	// Rate is the consensus false-positive rate; meaningful only when
	// Status is completed.
	Rate       float64              `json:"rate"`
	Threshold  float64              `json:"threshold"`
	QuorumShare float64             `json:"quorumShare"`
	Confidence consensus.Confidence `json:"confidence"`
	// CohortSize is the surviving cohort after filtering.
	CohortSize int `json:"cohortSize"`
	// TotalContributorCount is the consented snapshot size before any
	// filter stage ran.
	TotalContributorCount int `json:"totalContributorCount"`
	// BelowRecommendedCohort flags rounds that met the hard k-anonymity
	// floor but not the advisory cohort size.
	BelowRecommendedCohort bool `json:"belowRecommendedCohort"`
	// FilterByStage counts exclusions per filter stage. Per-org
	// exclusion identities are audit-only and never published.
	FilterByStage map[string]int `json:"filterByStage"`
	ComputedAt    time.Time      `json:"computedAt"`
}
