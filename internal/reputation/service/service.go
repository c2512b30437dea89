// Package service maintains per-organization reputation and computes the
// bounded contribution weight used by the consensus filter.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"calibra/internal/audit"
	"calibra/internal/reputation/models"
	"calibra/internal/reputation/store"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// reputationAlpha is the EMA smoothing factor for per-round reputation
// movement. Low alpha keeps reputation resistant to manipulation: one good
// round cannot buy trust, one bad round cannot destroy it.
const reputationAlpha = 0.05

// flagPenalty is the immediate reputation deduction per flagged event.
const flagPenalty = 0.1

// updateRetries bounds optimistic-concurrency retry loops. An org can be
// updated from several concurrent rule rounds.
const updateRetries = 3

type Service struct {
	store   store.Store
	auditor *audit.Publisher
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher *audit.Publisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("reputation store is required")
	}
	svc := &Service{store: st, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Ensure creates the initial neutral record for a newly verified org.
func (s *Service) Ensure(ctx context.Context, orgID id.OrgID) (*models.OrganizationReputation, error) {
	record, err := s.store.GetOrCreate(ctx, models.NewOrganizationReputation(orgID, s.now().UTC()))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to ensure reputation record")
	}
	return record, nil
}

// Get returns the org's reputation record. sentinel-style NotFound maps to
// a domain not-found: the filter treats missing records as exclusion, not
// as neutral trust.
func (s *Service) Get(ctx context.Context, orgID id.OrgID) (*models.OrganizationReputation, error) {
	record, err := s.store.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no reputation record")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reputation")
	}
	return record, nil
}

// ContributionWeight computes the bounded weight for an org.
func (s *Service) ContributionWeight(ctx context.Context, orgID id.OrgID) (float64, error) {
	record, err := s.Get(ctx, orgID)
	if err != nil {
		return 0, err
	}
	return record.Weight(), nil
}

// Flag records a misbehavior event against the org. Flags feed the
// probation gate and deduct reputation immediately.
func (s *Service) Flag(ctx context.Context, orgID id.OrgID, reason string) error {
	err := s.mutate(ctx, orgID, func(r *models.OrganizationReputation) error {
		r.FlaggedCount++
		r.ReputationScore -= flagPenalty
		if r.ReputationScore < 0 {
			r.ReputationScore = 0
		}
		return nil
	})
	if err != nil {
		return err
	}
	audit.Log(ctx, s.logger, s.auditor, audit.Event{
		OrgID:    orgID,
		Action:   audit.ActionOrgFlagged,
		Decision: "flagged",
		Reason:   reason,
	},
		"reason", reason,
	)
	return nil
}

// PledgeStake records an active pledge. A slashed org cannot re-pledge
// without governance intervention.
func (s *Service) PledgeStake(ctx context.Context, orgID id.OrgID, amountUSD float64) error {
	if amountUSD <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "stake amount must be positive")
	}
	err := s.mutate(ctx, orgID, func(r *models.OrganizationReputation) error {
		if r.StakeStatus == models.StakeStatusSlashed {
			return dErrors.New(dErrors.CodeConflict, "slashed stake cannot be re-pledged")
		}
		r.StakePledgeUSD = amountUSD
		r.StakeStatus = models.StakeStatusActive
		return nil
	})
	if err != nil {
		return err
	}
	audit.Log(ctx, s.logger, s.auditor, audit.Event{
		OrgID:    orgID,
		Action:   audit.ActionStakePledged,
		Decision: "pledged",
		Details:  map[string]string{"amount_usd": fmt.Sprintf("%.2f", amountUSD)},
	})
	return nil
}

// SlashStake forfeits the pledge after confirmed misbehavior.
func (s *Service) SlashStake(ctx context.Context, orgID id.OrgID, reason string) error {
	err := s.mutate(ctx, orgID, func(r *models.OrganizationReputation) error {
		if r.StakeStatus != models.StakeStatusActive {
			return dErrors.New(dErrors.CodeConflict, "no active stake to slash")
		}
		r.StakeStatus = models.StakeStatusSlashed
		return nil
	})
	if err != nil {
		return err
	}
	audit.Log(ctx, s.logger, s.auditor, audit.Event{
		OrgID:    orgID,
		Action:   audit.ActionStakeSlashed,
		Decision: "slashed",
		Reason:   reason,
	})
	return nil
}

// WithdrawStake releases an active pledge; the weight credit stops with it.
func (s *Service) WithdrawStake(ctx context.Context, orgID id.OrgID) error {
	err := s.mutate(ctx, orgID, func(r *models.OrganizationReputation) error {
		if r.StakeStatus != models.StakeStatusActive {
			return dErrors.New(dErrors.CodeConflict, "no active stake to withdraw")
		}
		r.StakeStatus = models.StakeStatusWithdrawn
		return nil
	})
	if err != nil {
		return err
	}
	audit.Log(ctx, s.logger, s.auditor, audit.Event{
		OrgID:  orgID,
		Action: audit.ActionStakeWithdrawn,
	})
	return nil
}

// RecordRound applies one calibration round's outcome: the contribution is
// counted, the fresh consistency score is stored, and reputation moves
// toward the round's agreement level by a small smoothing factor. Called
// only by the pipeline, after consensus, so an org can never influence its
// own weight within the round it contributed to.
func (s *Service) RecordRound(ctx context.Context, orgID id.OrgID, agreement, consistencyScore float64) error {
	return s.mutate(ctx, orgID, func(r *models.OrganizationReputation) error {
		r.ContributionCount++
		r.ConsistencyScore = clamp01(consistencyScore)
		r.ReputationScore = clamp01(r.ReputationScore + reputationAlpha*(clamp01(agreement)-r.ReputationScore))
		return nil
	})
}

// mutate runs fn over a fresh copy of the record and persists it with an
// optimistic retry loop.
func (s *Service) mutate(ctx context.Context, orgID id.OrgID, fn func(*models.OrganizationReputation) error) error {
	for attempt := 0; attempt < updateRetries; attempt++ {
		record, err := s.store.Get(ctx, orgID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "no reputation record")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reputation")
		}
		updated := *record
		if err := fn(&updated); err != nil {
			return err
		}
		updated.UpdatedAt = s.now().UTC()
		err = s.store.Update(ctx, updated)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update reputation")
		}
	}
	return dErrors.New(dErrors.CodeConflict, "reputation update contention; retry")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
