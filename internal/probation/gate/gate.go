// Package gate enforces the probation state machine: every newly verified
// org contributes at zero weight until it earns activation, and removal is
// terminal.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"calibra/internal/audit"
	"calibra/internal/probation/models"
	"calibra/internal/probation/store"
	repmodels "calibra/internal/reputation/models"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

const updateRetries = 3

// Reputations is the slice of the reputation store the gate needs to judge
// graduation.
type Reputations interface {
	Get(ctx context.Context, orgID id.OrgID) (*repmodels.OrganizationReputation, error)
}

type Gate struct {
	store       store.Store
	reputations Reputations
	auditor     *audit.Publisher
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

func WithAuditPublisher(publisher *audit.Publisher) Option {
	return func(g *Gate) { g.auditor = publisher }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func New(st store.Store, reputations Reputations, opts ...Option) (*Gate, error) {
	if st == nil {
		return nil, fmt.Errorf("probation store is required")
	}
	if reputations == nil {
		return nil, fmt.Errorf("reputation reader is required")
	}
	g := &Gate{store: st, reputations: reputations, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Enroll puts a freshly verified org into probation. Idempotent: an org
// that already has a status keeps it.
func (g *Gate) Enroll(ctx context.Context, orgID id.OrgID) (*models.Status, error) {
	status, err := g.store.GetOrCreate(ctx, models.NewStatus(orgID, g.now().UTC()))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to enroll org in probation")
	}
	return status, nil
}

// StateFor returns the org's probation state. Orgs with no status are
// treated as probation: absence of a record never grants weight.
func (g *Gate) StateFor(ctx context.Context, orgID id.OrgID) (models.State, error) {
	status, err := g.store.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.StateProbation, nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load probation status")
	}
	return status.State, nil
}

// Evaluate re-checks the org's transitions against its current reputation
// record and applies at most one: probation to active when all graduation
// thresholds hold, any non-removed state to removed when the flag ceiling
// is breached. Removed is terminal and never re-evaluated.
func (g *Gate) Evaluate(ctx context.Context, orgID id.OrgID) (models.State, error) {
	rep, err := g.reputations.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.StateProbation, nil
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reputation for probation check")
	}

	for attempt := 0; attempt < updateRetries; attempt++ {
		status, err := g.store.GetOrCreate(ctx, models.NewStatus(orgID, g.now().UTC()))
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load probation status")
		}
		if status.State == models.StateRemoved {
			return models.StateRemoved, nil
		}

		next := status.State
		reason := ""
		switch {
		case rep.FlaggedCount > models.RemovalFlagThreshold:
			next = models.StateRemoved
			reason = fmt.Sprintf("flagged count %d exceeds threshold %d", rep.FlaggedCount, models.RemovalFlagThreshold)
		case status.State == models.StateProbation && graduates(rep):
			next = models.StateActive
		}
		if next == status.State {
			return status.State, nil
		}

		updated := *status
		updated.State = next
		now := g.now().UTC()
		switch next {
		case models.StateActive:
			updated.ActivatedAt = &now
		case models.StateRemoved:
			updated.RemovedAt = &now
			updated.RemovedReason = reason
		}
		err = g.store.Update(ctx, updated)
		if err == nil {
			g.auditTransition(ctx, orgID, status.State, next, reason)
			return next, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to update probation status")
		}
	}
	return "", dErrors.New(dErrors.CodeConflict, "probation update contention; retry")
}

// Remove forces the org into the terminal removed state, used for identity
// revocation cascades. Idempotent on already-removed orgs.
func (g *Gate) Remove(ctx context.Context, orgID id.OrgID, reason string) error {
	for attempt := 0; attempt < updateRetries; attempt++ {
		status, err := g.store.GetOrCreate(ctx, models.NewStatus(orgID, g.now().UTC()))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load probation status")
		}
		if status.State == models.StateRemoved {
			return nil
		}
		updated := *status
		updated.State = models.StateRemoved
		now := g.now().UTC()
		updated.RemovedAt = &now
		updated.RemovedReason = reason
		err = g.store.Update(ctx, updated)
		if err == nil {
			g.auditTransition(ctx, orgID, status.State, models.StateRemoved, reason)
			return nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update probation status")
		}
	}
	return dErrors.New(dErrors.CodeConflict, "probation update contention; retry")
}

// WeightFor suppresses contribution weight for anything but active orgs.
func WeightFor(state models.State, weight float64) float64 {
	if state != models.StateActive {
		return 0
	}
	return weight
}

func graduates(rep *repmodels.OrganizationReputation) bool {
	return rep.ContributionCount >= models.GraduationSubmissions &&
		rep.FlaggedCount <= models.GraduationMaxFlagged &&
		rep.ReputationScore >= models.GraduationMinReputation
}

func (g *Gate) auditTransition(ctx context.Context, orgID id.OrgID, from, to models.State, reason string) {
	audit.Log(ctx, g.logger, g.auditor, audit.Event{
		OrgID:    orgID,
		Action:   audit.ActionProbationState,
		Decision: string(to),
		Reason:   reason,
		Details:  map[string]string{"from": string(from), "to": string(to)},
	},
		"from", string(from),
		"to", string(to),
	)
}
