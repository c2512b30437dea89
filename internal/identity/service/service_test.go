package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"calibra/internal/identity/models"
	"calibra/internal/identity/store"
	"calibra/internal/identity/verifier"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
)

type stubAttestor struct{}

func (stubAttestor) Issue(orgID id.OrgID, method string) (string, error) {
	return "attestation-for-" + orgID.String(), nil
}

type recordingRevoker struct {
	revoked []id.OrgID
}

func (r *recordingRevoker) RevokeForIdentity(_ context.Context, orgID id.OrgID, _ string) error {
	r.revoked = append(r.revoked, orgID)
	return nil
}

type IdentityServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	revoker *recordingRevoker
	service *Service
	ctx     context.Context
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.revoker = &recordingRevoker{}
	s.ctx = context.Background()

	directory := &verifier.StaticDirectory{
		Accounts: map[string]verifier.StaticAccount{
			"acme-payments": {CreatedAt: time.Now().Add(-400 * 24 * time.Hour), Members: 12},
			"fresh-org":     {CreatedAt: time.Now().Add(-10 * 24 * time.Hour), Members: 12},
		},
	}

	var err error
	s.service, err = New(s.store, stubAttestor{},
		[]verifier.Verifier{verifier.NewOrgAccountVerifier(directory, verifier.DefaultOrgAccountConfig())},
		WithNonceRevoker(s.revoker))
	s.Require().NoError(err)
}

func (s *IdentityServiceSuite) verify(handle string) *VerifyResult {
	result, err := s.service.Verify(s.ctx, models.VerificationRequest{
		OrgName:       "Acme Payments",
		Method:        models.MethodOrgAccount,
		AccountHandle: handle,
	})
	s.Require().NoError(err)
	return result
}

func (s *IdentityServiceSuite) TestVerify() {
	s.Run("passing verification persists identity and issues attestation", func() {
		result := s.verify("acme-payments")
		s.Require().NotNil(result.Identity)
		s.Nil(result.Rejection)
		s.NotEmpty(result.Attestation)

		stored, err := s.service.Get(s.ctx, result.Identity.OrgID)
		s.Require().NoError(err)
		s.True(stored.Active())
		s.NotEmpty(stored.CriteriaChecked)
	})

	s.Run("threshold failure is a rejection result", func() {
		result := s.verify("fresh-org")
		s.Nil(result.Identity)
		s.Require().NotNil(result.Rejection)
		s.NotEmpty(result.Rejection.CriteriaFailed)
	})

	s.Run("unsupported method is a bad request", func() {
		_, err := s.service.Verify(s.ctx, models.VerificationRequest{Method: models.MethodPayment})
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *IdentityServiceSuite) TestRevoke() {
	identity := s.verify("acme-payments").Identity

	s.Require().NoError(s.service.Revoke(s.ctx, identity.OrgID, "fabricated evidence"))

	s.Run("revocation is a state, not erasure", func() {
		stored, err := s.service.Get(s.ctx, identity.OrgID)
		s.Require().NoError(err)
		s.False(stored.Active())
		s.Equal("fabricated evidence", stored.RevokeReason)
	})

	s.Run("cascades to the nonce binding", func() {
		s.Require().Len(s.revoker.revoked, 1)
		s.Equal(identity.OrgID, s.revoker.revoked[0])
	})

	s.Run("double revocation conflicts", func() {
		err := s.service.Revoke(s.ctx, identity.OrgID, "again")
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Run("requires a reason", func() {
		err := s.service.Revoke(s.ctx, identity.OrgID, "")
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown org is not found", func() {
		err := s.service.Revoke(s.ctx, id.NewOrgID(), "reason")
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}
