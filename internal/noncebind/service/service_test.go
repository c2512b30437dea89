package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	identitymodels "calibra/internal/identity/models"
	"calibra/internal/noncebind/signer"
	"calibra/internal/noncebind/store"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

type stubIdentities struct {
	identities map[id.OrgID]*identitymodels.OrganizationIdentity
}

func (s *stubIdentities) Get(_ context.Context, orgID id.OrgID) (*identitymodels.OrganizationIdentity, error) {
	identity, ok := s.identities[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *identity
	return &out, nil
}

type NonceBindingSuite struct {
	suite.Suite
	store      *store.InMemoryStore
	identities *stubIdentities
	service    *Service
	orgID      id.OrgID
	ctx        context.Context
	nonceSeq   int
}

func TestNonceBindingSuite(t *testing.T) {
	suite.Run(t, new(NonceBindingSuite))
}

func (s *NonceBindingSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.orgID = id.NewOrgID()
	s.ctx = context.Background()
	s.nonceSeq = 0
	s.identities = &stubIdentities{identities: map[id.OrgID]*identitymodels.OrganizationIdentity{
		s.orgID: {OrgID: s.orgID, Name: "Acme Payments"},
	}}

	provider, err := signer.NewStaticProvider(map[string]string{"v1": "test-secret-material"}, "v1")
	s.Require().NoError(err)

	s.service, err = New(s.store, signer.New(provider), s.identities,
		WithClock(func() time.Time {
			return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		}),
		WithNonceSource(func() (id.Nonce, error) {
			s.nonceSeq++
			return id.Nonce(fmt.Sprintf("nonce-%d", s.nonceSeq)), nil
		}))
	s.Require().NoError(err)
}

func (s *NonceBindingSuite) revokeIdentity() {
	s.identities.identities[s.orgID].Revoked = true
}

func (s *NonceBindingSuite) TestBind() {
	s.Run("creates a signed binding", func() {
		binding, err := s.service.Bind(s.ctx, s.orgID, "aabbcc")
		s.Require().NoError(err)
		s.Equal(s.orgID, binding.OrgID)
		s.Equal("v1", binding.SecretVersion)
		s.NotEmpty(binding.Signature)
		s.Zero(binding.ChainDepth)
	})

	s.Run("second binding is rejected", func() {
		_, err := s.service.Bind(s.ctx, s.orgID, "ddeeff")
		s.True(dErrors.Is(err, dErrors.CodeAlreadyBound))
	})

	s.Run("unverified org cannot bind", func() {
		_, err := s.service.Bind(s.ctx, id.NewOrgID(), "aabbcc")
		s.True(dErrors.Is(err, dErrors.CodeNotVerified))
	})

	s.Run("revoked identity cannot bind", func() {
		revoked := id.NewOrgID()
		s.identities.identities[revoked] = &identitymodels.OrganizationIdentity{OrgID: revoked, Revoked: true}
		_, err := s.service.Bind(s.ctx, revoked, "aabbcc")
		s.True(dErrors.Is(err, dErrors.CodeNotVerified))
	})
}

func (s *NonceBindingSuite) TestRotate() {
	first, err := s.service.Bind(s.ctx, s.orgID, "aabbcc")
	s.Require().NoError(err)

	s.Run("links the successor and revokes the predecessor", func() {
		next, err := s.service.Rotate(s.ctx, s.orgID, "ddeeff", "scheduled rotation")
		s.Require().NoError(err)
		s.Equal(first.Nonce, next.PreviousNonce)
		s.Equal(1, next.ChainDepth)
		s.Equal(id.PublicKeyHex("ddeeff"), next.PublicKey)

		old, err := s.store.GetByNonce(s.ctx, first.Nonce)
		s.Require().NoError(err)
		s.NotNil(old.RevokedAt)
	})

	s.Run("empty key keeps the current one", func() {
		next, err := s.service.Rotate(s.ctx, s.orgID, "", "key unchanged")
		s.Require().NoError(err)
		s.Equal(id.PublicKeyHex("ddeeff"), next.PublicKey)
		s.Equal(2, next.ChainDepth)
	})

	s.Run("requires a reason", func() {
		_, err := s.service.Rotate(s.ctx, s.orgID, "", "")
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("old nonce no longer verifies", func() {
		result, err := s.service.Verify(s.ctx, first.Nonce, s.orgID)
		s.Require().NoError(err)
		s.False(result.Valid)
		s.Equal("nonce revoked", result.Reason)
	})
}

func (s *NonceBindingSuite) TestRevoke() {
	_, err := s.service.Bind(s.ctx, s.orgID, "aabbcc")
	s.Require().NoError(err)
	s.Require().NoError(s.service.Revoke(s.ctx, s.orgID, "compromised key"))

	s.Run("revoking again finds no active binding", func() {
		err := s.service.Revoke(s.ctx, s.orgID, "again")
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("cascade revocation is idempotent", func() {
		s.NoError(s.service.RevokeForIdentity(s.ctx, s.orgID, "identity revoked"))
	})

	s.Run("revoked org can bind again", func() {
		_, err := s.service.Bind(s.ctx, s.orgID, "aabbcc")
		s.NoError(err)
	})
}

func (s *NonceBindingSuite) TestVerify() {
	binding, err := s.service.Bind(s.ctx, s.orgID, "aabbcc")
	s.Require().NoError(err)

	s.Run("valid binding passes", func() {
		result, err := s.service.Verify(s.ctx, binding.Nonce, s.orgID)
		s.Require().NoError(err)
		s.True(result.Valid)
		s.Equal(binding.Nonce, result.Binding.Nonce)
	})

	s.Run("unknown nonce fails with a reason", func() {
		result, err := s.service.Verify(s.ctx, "nonce-unknown", s.orgID)
		s.Require().NoError(err)
		s.False(result.Valid)
		s.Equal("unknown nonce", result.Reason)
	})

	s.Run("wrong claimed org fails", func() {
		result, err := s.service.Verify(s.ctx, binding.Nonce, id.NewOrgID())
		s.Require().NoError(err)
		s.False(result.Valid)
		s.Equal("nonce not bound to claimed org", result.Reason)
	})

	s.Run("revoked identity invalidates the binding", func() {
		s.revokeIdentity()
		result, err := s.service.Verify(s.ctx, binding.Nonce, s.orgID)
		s.Require().NoError(err)
		s.False(result.Valid)
		s.Equal("identity revoked", result.Reason)
	})
}
