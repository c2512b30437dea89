// Package service implements the nonce-binding operations: bind, rotate,
// revoke, verify. All operations are atomic per org and append to the
// audit trail; verification is a pure validation boundary that returns
// reasons instead of raising.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"calibra/internal/audit"
	identitymodels "calibra/internal/identity/models"
	"calibra/internal/noncebind/metrics"
	"calibra/internal/noncebind/models"
	"calibra/internal/noncebind/signer"
	"calibra/internal/noncebind/store"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// Identities exposes the identity facts binding decisions depend on.
type Identities interface {
	Get(ctx context.Context, orgID id.OrgID) (*identitymodels.OrganizationIdentity, error)
}

// RevocationList is the optional shared fast path for revoked nonces.
type RevocationList interface {
	MarkRevoked(ctx context.Context, nonce id.Nonce) error
	IsRevoked(ctx context.Context, nonce id.Nonce) (bool, error)
}

type Service struct {
	store      store.Store
	signer     *signer.Signer
	identities Identities
	revList    RevocationList
	auditor    *audit.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
	newNonce   func() (id.Nonce, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher *audit.Publisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithRevocationList(list RevocationList) Option {
	return func(s *Service) { s.revList = list }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNonceSource is test-only: deterministic nonce generation.
func WithNonceSource(gen func() (id.Nonce, error)) Option {
	return func(s *Service) { s.newNonce = gen }
}

func New(st store.Store, sg *signer.Signer, identities Identities, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("binding store is required")
	}
	if sg == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if identities == nil {
		return nil, fmt.Errorf("identity source is required")
	}

	svc := &Service{
		store:      st,
		signer:     sg,
		identities: identities,
		now:        time.Now,
		newNonce:   id.NewNonce,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Bind creates the first binding for a verified org. A second active
// binding is rejected with CodeAlreadyBound; callers rotate instead.
func (s *Service) Bind(ctx context.Context, orgID id.OrgID, publicKey id.PublicKeyHex) (*models.NonceBinding, error) {
	if err := s.requireActiveIdentity(ctx, orgID); err != nil {
		return nil, err
	}

	binding, err := s.newBinding(orgID, publicKey, "", 0)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, *binding); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrAlreadyBound):
			return nil, dErrors.New(dErrors.CodeAlreadyBound, "org already has an active nonce binding; rotate instead")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "nonce already in use")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store binding")
		}
	}

	if s.metrics != nil {
		s.metrics.BindingsCreated.Inc()
	}
	audit.Log(ctx, s.logger, s.auditor, audit.Event{
		OrgID:    orgID,
		Action:   audit.ActionNonceBound,
		Decision: "bound",
		Details: map[string]string{
			"nonce":          binding.Nonce.String(),
			"secret_version": binding.SecretVersion,
		},
	})
	return binding, nil
}

// Rotate atomically revokes the current binding and creates a linked
// successor. An empty newPublicKey keeps the existing key. The chain depth
// cap bounds audit-trail growth; beyond it the org must re-verify.
func (s *Service) Rotate(ctx context.Context, orgID id.OrgID, newPublicKey id.PublicKeyHex, reason string) (*models.NonceBinding, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "rotation reason is required")
	}
	if err := s.requireActiveIdentity(ctx, orgID); err != nil {
		return nil, err
	}

	current, err := s.store.GetActiveByOrg(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active binding to rotate")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load binding")
	}
	if current.ChainDepth+1 > models.MaxChainDepth {
		return nil, dErrors.New(dErrors.CodeConflict, "rotation chain depth exceeded; re-verification required")
	}

	publicKey := current.PublicKey
	if !newPublicKey.IsNil() {
		publicKey = newPublicKey
	}
	next, err := s.newBinding(orgID, publicKey, current.Nonce, current.ChainDepth+1)
	if err != nil {
		return nil, err
	}

	if err := s.store.Rotate(ctx, current.Nonce, "rotated: "+reason, s.now().UTC(), *next); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrRevoked):
			return nil, dErrors.New(dErrors.CodeConflict, "binding already revoked")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "nonce already in use")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rotate binding")
		}
	}
	s.markRevokedFastPath(ctx, current.Nonce)

	if s.metrics != nil {
		s.metrics.BindingsRotated.Inc()
	}
	audit.Log(ctx, s.logger, s.auditor, audit.Event{
		OrgID:    orgID,
		Action:   audit.ActionNonceRotated,
		Decision: "rotated",
		Reason:   reason,
		Details: map[string]string{
			"previous_nonce": current.Nonce.String(),
			"nonce":          next.Nonce.String(),
			"chain_depth":    fmt.Sprintf("%d", next.ChainDepth),
		},
	})
	return next, nil
}

// Revoke revokes the org's active binding.
func (s *Service) Revoke(ctx context.Context, orgID id.OrgID, reason string) error {
	if reason == "" {
		return dErrors.New(dErrors.CodeBadRequest, "revocation reason is required")
	}

	current, err := s.store.GetActiveByOrg(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no active binding")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load binding")
	}

	if err := s.store.Revoke(ctx, current.Nonce, reason, s.now().UTC()); err != nil {
		if errors.Is(err, sentinel.ErrRevoked) {
			return dErrors.New(dErrors.CodeConflict, "binding already revoked")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke binding")
	}
	s.markRevokedFastPath(ctx, current.Nonce)

	if s.metrics != nil {
		s.metrics.BindingsRevoked.Inc()
	}
	audit.Log(ctx, s.logger, s.auditor, audit.Event{
		OrgID:    orgID,
		Action:   audit.ActionNonceRevoked,
		Decision: "revoked",
		Reason:   reason,
		Details:  map[string]string{"nonce": current.Nonce.String()},
	})
	return nil
}

// RevokeForIdentity is the identity-revocation cascade. Idempotent: an org
// with no active binding is already in the desired state.
func (s *Service) RevokeForIdentity(ctx context.Context, orgID id.OrgID, reason string) error {
	err := s.Revoke(ctx, orgID, reason)
	if err != nil && dErrors.Is(err, dErrors.CodeNotFound) {
		return nil
	}
	return err
}

// Verify checks that a nonce is validly bound to the claimed org. Any
// validation failure comes back as an invalid result with a reason; the
// error return is reserved for infrastructure failures.
func (s *Service) Verify(ctx context.Context, nonce id.Nonce, claimedOrgID id.OrgID) (*models.VerifyResult, error) {
	start := s.now()
	result, err := s.verify(ctx, nonce, claimedOrgID)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		outcome := "valid"
		if !result.Valid {
			outcome = "invalid"
		}
		s.metrics.VerifyResults.WithLabelValues(outcome).Inc()
		s.metrics.VerifyDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}
	if !result.Valid {
		audit.Log(ctx, s.logger, s.auditor, audit.Event{
			OrgID:    claimedOrgID,
			Action:   audit.ActionNonceVerifyFailed,
			Decision: "invalid",
			Reason:   result.Reason,
		})
	}
	return result, nil
}

func (s *Service) verify(ctx context.Context, nonce id.Nonce, claimedOrgID id.OrgID) (*models.VerifyResult, error) {
	if s.revList != nil {
		revoked, err := s.revList.IsRevoked(ctx, nonce)
		if err == nil && revoked {
			return models.Invalid("nonce revoked"), nil
		}
		// Fast-path errors fall through to the authoritative store.
	}

	binding, err := s.store.GetByNonce(ctx, nonce)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Invalid("unknown nonce"), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load binding")
	}
	if binding.RevokedAt != nil {
		return models.Invalid("nonce revoked"), nil
	}
	if binding.OrgID != claimedOrgID {
		return models.Invalid("nonce not bound to claimed org"), nil
	}

	identity, err := s.identities.Get(ctx, binding.OrgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Invalid("identity not found"), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	if !identity.Active() {
		return models.Invalid("identity revoked"), nil
	}

	ok, err := s.signer.Verify(binding.Nonce, binding.OrgID, binding.PublicKey, binding.Signature, binding.SecretVersion)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "signature check failed")
	}
	if !ok {
		return models.Invalid("signature mismatch"), nil
	}

	return &models.VerifyResult{Valid: true, Binding: binding}, nil
}

func (s *Service) requireActiveIdentity(ctx context.Context, orgID id.OrgID) error {
	identity, err := s.identities.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotVerified, "org identity is not verified")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	if !identity.Active() {
		return dErrors.New(dErrors.CodeNotVerified, "org identity has been revoked")
	}
	return nil
}

func (s *Service) newBinding(orgID id.OrgID, publicKey id.PublicKeyHex, previous id.Nonce, depth int) (*models.NonceBinding, error) {
	nonce, err := s.newNonce()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate nonce")
	}
	signature, version, err := s.signer.Sign(nonce, orgID, publicKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign binding")
	}
	return &models.NonceBinding{
		Nonce:         nonce,
		OrgID:         orgID,
		PublicKey:     publicKey,
		Signature:     signature,
		SecretVersion: version,
		CreatedAt:     s.now().UTC(),
		PreviousNonce: previous,
		ChainDepth:    depth,
	}, nil
}

func (s *Service) markRevokedFastPath(ctx context.Context, nonce id.Nonce) {
	if s.revList == nil {
		return
	}
	if err := s.revList.MarkRevoked(ctx, nonce); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "revocation fast path update failed",
			"nonce", nonce.String(),
			"error", err,
		)
	}
}
