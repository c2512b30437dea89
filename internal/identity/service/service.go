// Package service orchestrates identity verification: strategy dispatch,
// persistence, attestation issuance, and revocation cascade.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"calibra/internal/audit"
	"calibra/internal/identity/models"
	"calibra/internal/identity/verifier"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// Store persists organization identities.
type Store interface {
	Get(ctx context.Context, orgID id.OrgID) (*models.OrganizationIdentity, error)
	Save(ctx context.Context, identity models.OrganizationIdentity) error
	Revoke(ctx context.Context, orgID id.OrgID, reason string, at time.Time) error
}

// Attestor issues signed identity attestations.
type Attestor interface {
	Issue(orgID id.OrgID, method string) (string, error)
}

// NonceRevoker cascades identity revocation into the binding service so a
// revoked org cannot keep submitting under its old nonce.
type NonceRevoker interface {
	RevokeForIdentity(ctx context.Context, orgID id.OrgID, reason string) error
}

// VerifyResult is the outcome of a verification attempt. Exactly one of
// Identity or Rejection is set.
type VerifyResult struct {
	Identity    *models.OrganizationIdentity
	Attestation string
	Rejection   *models.Rejection
}

type Service struct {
	store        Store
	verifiers    map[models.VerificationMethod]verifier.Verifier
	attestor     Attestor
	nonceRevoker NonceRevoker
	auditor      *audit.Publisher
	logger       *slog.Logger
	now          func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher *audit.Publisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithNonceRevoker(revoker NonceRevoker) Option {
	return func(s *Service) { s.nonceRevoker = revoker }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, attestor Attestor, verifiers []verifier.Verifier, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("identity store is required")
	}
	if attestor == nil {
		return nil, fmt.Errorf("attestor is required")
	}
	if len(verifiers) == 0 {
		return nil, fmt.Errorf("at least one verifier is required")
	}

	byMethod := make(map[models.VerificationMethod]verifier.Verifier, len(verifiers))
	for _, v := range verifiers {
		if _, dup := byMethod[v.Method()]; dup {
			return nil, fmt.Errorf("duplicate verifier for method %s", v.Method())
		}
		byMethod[v.Method()] = v
	}

	svc := &Service{
		store:     store,
		verifiers: byMethod,
		attestor:  attestor,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Verify runs the strategy for the requested method and, on success,
// persists a fresh identity and issues its attestation. Threshold failures
// come back as a Rejection result, not an error.
func (s *Service) Verify(ctx context.Context, req models.VerificationRequest) (*VerifyResult, error) {
	v, ok := s.verifiers[req.Method]
	if !ok {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unsupported verification method: "+string(req.Method))
	}

	criteria, rejection, err := v.Verify(ctx, req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "verification provider unavailable")
	}
	if rejection != nil {
		audit.Log(ctx, s.logger, s.auditor, audit.Event{
			Action:   audit.ActionIdentityRejected,
			Decision: "rejected",
			Reason:   rejection.Reason,
			Details:  map[string]string{"method": string(req.Method)},
		})
		return &VerifyResult{Rejection: rejection}, nil
	}

	identity := models.OrganizationIdentity{
		OrgID:           id.NewOrgID(),
		Name:            req.OrgName,
		Method:          req.Method,
		VerifiedAt:      s.now().UTC(),
		CriteriaChecked: criteria,
	}
	if err := s.store.Save(ctx, identity); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist identity")
	}

	attestation, err := s.attestor.Issue(identity.OrgID, string(identity.Method))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue attestation")
	}

	audit.Log(ctx, s.logger, s.auditor, audit.Event{
		OrgID:    identity.OrgID,
		Action:   audit.ActionIdentityVerified,
		Decision: "verified",
		Details:  map[string]string{"method": string(identity.Method)},
	},
		"method", string(identity.Method),
	)

	return &VerifyResult{Identity: &identity, Attestation: attestation}, nil
}

// Get returns the identity for an org.
func (s *Service) Get(ctx context.Context, orgID id.OrgID) (*models.OrganizationIdentity, error) {
	identity, err := s.store.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	return identity, nil
}

// Revoke marks the identity revoked and cascades to the nonce binding.
// Revocation is a state, not erasure: the record and its audit trail stay.
func (s *Service) Revoke(ctx context.Context, orgID id.OrgID, reason string) error {
	if reason == "" {
		return dErrors.New(dErrors.CodeBadRequest, "revocation reason is required")
	}

	if err := s.store.Revoke(ctx, orgID, reason, s.now().UTC()); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "identity not found")
		case errors.Is(err, sentinel.ErrRevoked):
			return dErrors.New(dErrors.CodeConflict, "identity already revoked")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke identity")
		}
	}

	if s.nonceRevoker != nil {
		if err := s.nonceRevoker.RevokeForIdentity(ctx, orgID, "identity revoked: "+reason); err != nil {
			// The identity is already revoked; binding verification also
			// checks identity state, so a failed cascade cannot reopen
			// submission. Surface it for the operator.
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "nonce revocation cascade failed",
					"org_id", orgID.String(),
					"error", err,
				)
			}
		}
	}

	audit.Log(ctx, s.logger, s.auditor, audit.Event{
		OrgID:    orgID,
		Action:   audit.ActionIdentityRevoked,
		Decision: "revoked",
		Reason:   reason,
	},
		"reason", reason,
	)
	return nil
}
