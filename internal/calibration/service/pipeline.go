package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"calibra/internal/audit"
	"calibra/internal/calibration/metrics"
	"calibra/internal/calibration/models"
	"calibra/internal/consensus"
	probmodels "calibra/internal/probation/models"
	"calibra/internal/reputation/consistency"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// RunRound executes one calibration round for a rule: snapshot the pending
// reports, filter consent and trust, run the Byzantine filter, enforce the
// k-anonymity floor, publish the result, and feed the outcome back into
// each org's history for future rounds.
//
// Reports submitted after the snapshot wait for the next round. Consent
// revoked after the snapshot does not retract the org from this round;
// completed rounds are never recomputed. Only a completed round consumes
// its snapshot: an aborted round leaves the reports pending, so the
// cohort keeps accumulating until one can publish.
func (s *Service) RunRound(ctx context.Context, ruleID id.RuleID) (*models.CalibrationResult, error) {
	start := s.now()
	roundID := id.NewRoundID(start)
	logger := s.log(ctx).With("rule_id", ruleID.String(), "round_id", roundID.String())

	snapshot, err := s.contributions.Snapshot(ctx, ruleID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to snapshot contributions")
	}
	if len(snapshot) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no pending contributions for rule")
	}

	reports, consented, err := s.buildReports(ctx, roundID, snapshot)
	if err != nil {
		// A trust-store failure aborts the round: excluding the org or
		// guessing its state would let infrastructure faults skew the rate.
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve trust state for cohort")
	}
	outcome := consensus.Run(s.cfg.Consensus, reports)
	for stageName, n := range outcome.Summary.ByStage {
		metrics.FilterExclusions.WithLabelValues(stageName).Add(float64(n))
	}

	result := &models.CalibrationResult{
		RuleID:                 ruleID,
		RoundID:                roundID,
		Rate:                   outcome.Rate,
		Threshold:              outcome.Threshold,
		QuorumShare:            outcome.QuorumShare,
		Confidence:             outcome.Confidence,
		CohortSize:             outcome.Summary.Included,
		TotalContributorCount:  len(consented),
		BelowRecommendedCohort: outcome.Summary.Included < s.cfg.RecommendedCohort,
		FilterByStage:          outcome.Summary.ByStage,
		ComputedAt:             s.now().UTC(),
	}

	switch {
	case outcome.Summary.Included < s.cfg.KAnonymityFloor:
		result.Status = models.RoundStatusInsufficientCohort
		// No rate leaves the round below the floor, not even internally.
		result.Rate = 0
		s.finishRound(ctx, logger, result, start)
		return result, dErrors.New(dErrors.CodeInsufficientCohort,
			"surviving cohort below k-anonymity floor of "+strconv.Itoa(s.cfg.KAnonymityFloor))
	case !outcome.Accepted:
		result.Status = models.RoundStatusNoQuorum
		result.Rate = 0
		s.finishRound(ctx, logger, result, start)
		return result, nil
	}

	result.Status = models.RoundStatusCompleted
	if err := s.contributions.MarkConsumed(ctx, ruleID, roundID, latestSubmission(snapshot)); err != nil {
		logger.Error("failed to mark snapshot consumed", "error", err)
	}
	s.finishRound(ctx, logger, result, start)
	metrics.CohortSize.Observe(float64(result.CohortSize))
	metrics.ConfidenceScore.Observe(result.Confidence.Score)

	// Outcome feedback influences the NEXT round's weights only; this
	// round's result is already published.
	s.applyRoundOutcome(ctx, logger, result, outcome, consented)
	return result, nil
}

// buildReports resolves consent, reputation, and probation state for each
// snapshot contribution. Orgs without consent are excluded before the
// filter ever sees them; consent is the only per-org fail-closed check.
// Any other store failure returns an error and aborts the round.
func (s *Service) buildReports(ctx context.Context, roundID id.RoundID, snapshot []models.Contribution) ([]consensus.Report, []models.Contribution, error) {
	logger := s.log(ctx)
	reports := make([]consensus.Report, 0, len(snapshot))
	consented := make([]models.Contribution, 0, len(snapshot))
	for _, c := range snapshot {
		hasConsent, err := s.consent.HasActive(ctx, c.OrgID, id.ConsentScopeAggregateSharing)
		if err != nil || !hasConsent {
			reason := "no active aggregate sharing consent"
			if err != nil {
				reason = "consent unverifiable"
				logger.Error("consent check failed, excluding org", "error", err, "org_id", c.OrgID.String())
			}
			audit.Log(ctx, s.logger, s.auditor, audit.Event{
				OrgID:    c.OrgID,
				RuleID:   c.RuleID,
				Action:   audit.ActionConsentExcluded,
				Decision: "excluded",
				Reason:   reason,
				Details:  map[string]string{"round_id": roundID.String()},
			})
			continue
		}
		consented = append(consented, c)

		report := consensus.Report{
			OrgID:          c.OrgID,
			Rate:           c.ReportedRate,
			EventsObserved: c.EventsObserved,
			EventsExpected: c.EventsExpected,
		}
		rep, err := s.reputations.Get(ctx, c.OrgID)
		switch {
		case err == nil:
			report.HasReputation = true
			report.Reputation = rep.ReputationScore
			report.HasActiveStake = rep.HasActiveStake()
			report.Weight = rep.Weight()
		case errors.Is(err, sentinel.ErrNotFound):
			// Left as missing; stage one excludes it.
		default:
			return nil, nil, fmt.Errorf("reputation lookup for org %s: %w", c.OrgID.String(), err)
		}

		state, err := s.probation.StateFor(ctx, c.OrgID)
		if err != nil {
			return nil, nil, fmt.Errorf("probation lookup for org %s: %w", c.OrgID.String(), err)
		}
		report.OnProbation = state != probmodels.StateActive
		reports = append(reports, report)
	}
	return reports, consented, nil
}

// latestSubmission bounds the consumed range: reports appended while the
// round ran stay pending for the next one.
func latestSubmission(snapshot []models.Contribution) time.Time {
	latest := snapshot[0].SubmittedAt
	for _, c := range snapshot[1:] {
		if c.SubmittedAt.After(latest) {
			latest = c.SubmittedAt
		}
	}
	return latest
}

// applyRoundOutcome updates each consented org's agreement history,
// reputation, and probation state. Updates are serialized per org: the
// same org can be in concurrent rounds for other rules.
func (s *Service) applyRoundOutcome(ctx context.Context, logger *slog.Logger, result *models.CalibrationResult, outcome consensus.Outcome, consented []models.Contribution) {
	outliers := make(map[id.OrgID]struct{})
	for _, excl := range outcome.Summary.Exclusions {
		if excl.Stage == consensus.StageOutlier {
			outliers[excl.OrgID] = struct{}{}
		}
	}

	now := s.now().UTC()
	for _, c := range consented {
		agreement := consistency.Agreement(c.ReportedRate, result.Rate)
		_, isOutlier := outliers[c.OrgID]
		sample := consistency.Sample{
			At:        now,
			RuleID:    result.RuleID,
			RoundID:   result.RoundID,
			Agreement: agreement,
			Outlier:   isOutlier,
		}
		if err := s.recordSample(ctx, c.OrgID, sample, agreement); err != nil {
			logger.Error("failed to apply round outcome for org", "error", err, "org_id", c.OrgID.String())
		}
	}
}

func (s *Service) recordSample(ctx context.Context, orgID id.OrgID, sample consistency.Sample, agreement float64) error {
	unlock, err := s.locker.Lock(ctx, "org:"+orgID.String())
	if err != nil {
		return err
	}
	defer unlock()

	record, err := s.consistency.Get(ctx, orgID)
	if err != nil {
		return err
	}
	record.Append(sample)
	record.Compact(sample.At)
	score := record.Score(sample.At)
	if err := s.consistency.Save(ctx, *record); err != nil {
		return err
	}
	if err := s.reputations.RecordRound(ctx, orgID, agreement, score); err != nil {
		return err
	}
	_, err = s.probation.Evaluate(ctx, orgID)
	return err
}

func (s *Service) finishRound(ctx context.Context, logger *slog.Logger, result *models.CalibrationResult, start time.Time) {
	if err := s.results.Save(ctx, *result); err != nil {
		logger.Error("failed to persist calibration result", "error", err)
	}
	metrics.RoundsCompleted.WithLabelValues(string(result.Status)).Inc()
	metrics.RoundDurationMs.Observe(float64(s.now().Sub(start).Milliseconds()))

	action := audit.ActionRoundCompleted
	decision := "completed"
	if result.Status != models.RoundStatusCompleted {
		action = audit.ActionRoundAborted
		decision = string(result.Status)
	}
	audit.Log(ctx, s.logger, s.auditor, audit.Event{
		RuleID:   result.RuleID,
		Action:   action,
		Decision: decision,
		Details: map[string]string{
			"round_id":    result.RoundID.String(),
			"cohort_size": strconv.Itoa(result.CohortSize),
			"confidence":  result.Confidence.Level,
		},
	},
		"round_id", result.RoundID.String(),
		"status", string(result.Status),
		"cohort_size", strconv.Itoa(result.CohortSize),
	)
}
