// Package service manages consortium consent grants. The calibration
// pipeline reads consent fail-closed: an org without a verifiable
// aggregate-sharing grant is excluded from the round.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"calibra/internal/audit"
	"calibra/internal/consent/models"
	"calibra/internal/consent/store"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

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
		return nil, fmt.Errorf("consent store is required")
	}
	svc := &Service{store: st, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Grant records an active grant of the scope. Idempotent: granting an
// already-active scope succeeds without a new record.
func (s *Service) Grant(ctx context.Context, orgID id.OrgID, scope id.ConsentScope) error {
	err := s.store.Grant(ctx, models.ConsentRecord{
		OrgID:     orgID,
		Scope:     scope,
		GrantedAt: s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant consent")
	}
	audit.Log(ctx, s.logger, s.auditor, audit.Event{
		OrgID:    orgID,
		Action:   audit.ActionConsentGranted,
		Decision: "granted",
		Details:  map[string]string{"scope": string(scope)},
	},
		"scope", string(scope),
	)
	return nil
}

// Revoke withdraws the active grant. Takes effect from the next
// calibration round; completed rounds are never recomputed.
func (s *Service) Revoke(ctx context.Context, orgID id.OrgID, scope id.ConsentScope) error {
	err := s.store.Revoke(ctx, orgID, scope, s.now().UTC())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no active grant for scope")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke consent")
	}
	audit.Log(ctx, s.logger, s.auditor, audit.Event{
		OrgID:    orgID,
		Action:   audit.ActionConsentRevoked,
		Decision: "revoked",
		Details:  map[string]string{"scope": string(scope)},
	},
		"scope", string(scope),
	)
	return nil
}

// HasActive reports whether the org currently holds the scope. Errors
// propagate so callers can fail closed.
func (s *Service) HasActive(ctx context.Context, orgID id.OrgID, scope id.ConsentScope) (bool, error) {
	ok, err := s.store.HasActive(ctx, orgID, scope)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check consent")
	}
	return ok, nil
}

// ListByOrg returns the org's full grant history, active and revoked.
func (s *Service) ListByOrg(ctx context.Context, orgID id.OrgID) ([]models.ConsentRecord, error) {
	records, err := s.store.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consent grants")
	}
	return records, nil
}
