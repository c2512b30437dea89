package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
)

var tracer = otel.Tracer("calibra/calibration")

// Runner drives periodic calibration sweeps: every interval it rounds each
// rule with pending reports, bounded by a concurrency limit.
type Runner struct {
	service       *Service
	interval      time.Duration
	maxConcurrent int
	logger        *slog.Logger
}

func NewRunner(service *Service, interval time.Duration, maxConcurrent int, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = time.Hour
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{service: service, interval: interval, maxConcurrent: maxConcurrent, logger: logger}
}

// Run blocks until ctx is done, sweeping on every tick. Sweep failures are
// logged, never fatal: the next tick retries whatever is still pending.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("calibration sweep failed", "error", err)
			}
		}
	}
}

// Sweep rounds every rule with pending reports. Rules run concurrently up
// to the limit; one rule's failure does not stop the others.
func (r *Runner) Sweep(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "calibration.sweep")
	defer span.End()

	rules, err := r.service.PendingRules(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "pending rules lookup failed")
		return err
	}
	span.SetAttributes(attribute.Int("calibration.pending_rules", len(rules)))
	if len(rules) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrent)
	for _, ruleID := range rules {
		g.Go(func() error {
			r.runOne(ctx, ruleID)
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) runOne(ctx context.Context, ruleID id.RuleID) {
	ctx, span := tracer.Start(ctx, "calibration.round",
		trace.WithAttributes(attribute.String("calibration.rule_id", ruleID.String())),
	)
	defer span.End()

	result, err := r.service.RunRound(ctx, ruleID)
	switch {
	case err == nil:
		span.SetAttributes(
			attribute.String("calibration.status", string(result.Status)),
			attribute.Int("calibration.cohort_size", result.CohortSize),
		)
	case dErrors.Is(err, dErrors.CodeInsufficientCohort):
		// Expected when participation dips; the result row records it.
		span.SetAttributes(attribute.String("calibration.status", string(result.Status)))
		r.logger.Warn("calibration round below k-anonymity floor", "rule_id", ruleID.String())
	case dErrors.Is(err, dErrors.CodeNotFound):
		// Another sweep consumed the rule's snapshot first.
	default:
		span.SetStatus(codes.Error, "round failed")
		r.logger.Error("calibration round failed", "rule_id", ruleID.String(), "error", err)
	}
}
