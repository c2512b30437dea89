// Package service orchestrates contribution intake and calibration rounds.
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
	"calibra/internal/calibration/ports"
	"calibra/internal/consensus"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// Config tunes round behavior on top of the filter configuration.
type Config struct {
	Consensus consensus.Config
	// KAnonymityFloor is the hard minimum surviving cohort; below it no
	// rate is published.
	KAnonymityFloor int
	// RecommendedCohort is the advisory cohort size; rounds below it
	// publish with BelowRecommendedCohort set.
	RecommendedCohort int
}

// DefaultConfig mirrors the production calibration settings.
func DefaultConfig() Config {
	return Config{
		Consensus:         consensus.DefaultConfig(),
		KAnonymityFloor:   5,
		RecommendedCohort: 10,
	}
}

type Service struct {
	cfg           Config
	contributions ports.Contributions
	results       ports.Results
	verifier      ports.NonceVerifier
	consent       ports.Consent
	reputations   ports.Reputations
	probation     ports.Probation
	consistency   ports.ConsistencyStore
	locker        ports.Locker
	enrollment    ports.Enrollment
	auditor       *audit.Publisher
	logger        *slog.Logger
	now           func() time.Time
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

// WithEnrollment provisions reputation and probation records on an org's
// first accepted contribution.
func WithEnrollment(enrollment ports.Enrollment) Option {
	return func(s *Service) { s.enrollment = enrollment }
}

// Deps bundles the pipeline's required collaborators.
type Deps struct {
	Contributions ports.Contributions
	Results       ports.Results
	Verifier      ports.NonceVerifier
	Consent       ports.Consent
	Reputations   ports.Reputations
	Probation     ports.Probation
	Consistency   ports.ConsistencyStore
	Locker        ports.Locker
}

func New(cfg Config, deps Deps, opts ...Option) (*Service, error) {
	switch {
	case deps.Contributions == nil:
		return nil, fmt.Errorf("contributions store is required")
	case deps.Results == nil:
		return nil, fmt.Errorf("results store is required")
	case deps.Verifier == nil:
		return nil, fmt.Errorf("nonce verifier is required")
	case deps.Consent == nil:
		return nil, fmt.Errorf("consent reader is required")
	case deps.Reputations == nil:
		return nil, fmt.Errorf("reputation reader is required")
	case deps.Probation == nil:
		return nil, fmt.Errorf("probation gate is required")
	case deps.Consistency == nil:
		return nil, fmt.Errorf("consistency store is required")
	case deps.Locker == nil:
		return nil, fmt.Errorf("locker is required")
	}
	if cfg.KAnonymityFloor <= 0 {
		cfg.KAnonymityFloor = DefaultConfig().KAnonymityFloor
	}
	if cfg.RecommendedCohort < cfg.KAnonymityFloor {
		cfg.RecommendedCohort = DefaultConfig().RecommendedCohort
	}
	svc := &Service{
		cfg:           cfg,
		contributions: deps.Contributions,
		results:       deps.Results,
		verifier:      deps.Verifier,
		consent:       deps.Consent,
		reputations:   deps.Reputations,
		probation:     deps.Probation,
		consistency:   deps.Consistency,
		locker:        deps.Locker,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SubmitContribution accepts one org's report after verifying its nonce
// binding and aggregate-sharing consent. The report becomes part of the
// next round snapshot for its rule.
func (s *Service) SubmitContribution(ctx context.Context, c models.Contribution) error {
	if c.ReportedRate < 0 || c.ReportedRate > 1 {
		metrics.ContributionsAccepted.WithLabelValues("invalid").Inc()
		return dErrors.New(dErrors.CodeBadRequest, "reported rate must be in [0,1]")
	}
	if c.EventsObserved < 0 || c.EventsExpected < 0 {
		metrics.ContributionsAccepted.WithLabelValues("invalid").Inc()
		return dErrors.New(dErrors.CodeBadRequest, "event counts must be non-negative")
	}

	result, err := s.verifier.Verify(ctx, c.Nonce, c.OrgID)
	if err != nil {
		metrics.ContributionsAccepted.WithLabelValues("error").Inc()
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify nonce binding")
	}
	if !result.Valid {
		metrics.ContributionsAccepted.WithLabelValues("rejected").Inc()
		return dErrors.New(dErrors.CodeUnauthorized, "nonce binding invalid: "+result.Reason)
	}

	// Consent is fail-closed: an error checking it rejects the report.
	hasConsent, err := s.consent.HasActive(ctx, c.OrgID, id.ConsentScopeAggregateSharing)
	if err != nil || !hasConsent {
		metrics.ContributionsAccepted.WithLabelValues("no_consent").Inc()
		if err != nil {
			s.log(ctx).Error("consent check failed, rejecting contribution", "error", err, "org_id", c.OrgID.String())
		}
		return dErrors.New(dErrors.CodeForbidden, "aggregate sharing consent required")
	}

	if s.enrollment != nil {
		if err := s.enrollment.Enroll(ctx, c.OrgID); err != nil {
			metrics.ContributionsAccepted.WithLabelValues("error").Inc()
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to enroll contributor")
		}
	}

	c.SubmittedAt = s.now().UTC()
	if err := s.contributions.Append(ctx, c); err != nil {
		metrics.ContributionsAccepted.WithLabelValues("error").Inc()
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record contribution")
	}
	metrics.ContributionsAccepted.WithLabelValues("accepted").Inc()

	audit.Log(ctx, s.logger, s.auditor, audit.Event{
		OrgID:  c.OrgID,
		RuleID: c.RuleID,
		Action: audit.ActionContributionSaved,
		Details: map[string]string{
			"events_observed": strconv.Itoa(c.EventsObserved),
			"events_expected": strconv.Itoa(c.EventsExpected),
		},
	})
	return nil
}

// Latest returns the most recent published result for a rule.
func (s *Service) Latest(ctx context.Context, ruleID id.RuleID) (*models.CalibrationResult, error) {
	result, err := s.results.Latest(ctx, ruleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no calibration result for rule")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load calibration result")
	}
	return result, nil
}

// History returns recent results for a rule, newest first.
func (s *Service) History(ctx context.Context, ruleID id.RuleID, limit int) ([]models.CalibrationResult, error) {
	results, err := s.results.History(ctx, ruleID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load calibration history")
	}
	return results, nil
}

// PendingRules lists rules with reports waiting for a round.
func (s *Service) PendingRules(ctx context.Context) ([]id.RuleID, error) {
	rules, err := s.contributions.PendingRules(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending rules")
	}
	return rules, nil
}

func (s *Service) log(ctx context.Context) *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}
