package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"calibra/internal/consent/store"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
)

type ConsentServiceSuite struct {
	suite.Suite
	service *Service
	orgID   id.OrgID
	ctx     context.Context
}

func TestConsentServiceSuite(t *testing.T) {
	suite.Run(t, new(ConsentServiceSuite))
}

func (s *ConsentServiceSuite) SetupTest() {
	s.orgID = id.NewOrgID()
	s.ctx = context.Background()

	var err error
	s.service, err = New(store.NewInMemoryStore(), WithClock(func() time.Time {
		return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	}))
	s.Require().NoError(err)
}

func (s *ConsentServiceSuite) TestGrant() {
	s.Require().NoError(s.service.Grant(s.ctx, s.orgID, id.ConsentScopeAggregateSharing))

	active, err := s.service.HasActive(s.ctx, s.orgID, id.ConsentScopeAggregateSharing)
	s.Require().NoError(err)
	s.True(active)

	s.Run("granting twice is idempotent", func() {
		s.Require().NoError(s.service.Grant(s.ctx, s.orgID, id.ConsentScopeAggregateSharing))
		records, err := s.service.ListByOrg(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.Len(records, 1)
	})
}

func (s *ConsentServiceSuite) TestRevoke() {
	s.Require().NoError(s.service.Grant(s.ctx, s.orgID, id.ConsentScopeAggregateSharing))
	s.Require().NoError(s.service.Revoke(s.ctx, s.orgID, id.ConsentScopeAggregateSharing))

	active, err := s.service.HasActive(s.ctx, s.orgID, id.ConsentScopeAggregateSharing)
	s.Require().NoError(err)
	s.False(active)

	s.Run("revoking without a grant is not found", func() {
		err := s.service.Revoke(s.ctx, s.orgID, id.ConsentScopeAggregateSharing)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("history keeps the revoked grant", func() {
		records, err := s.service.ListByOrg(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.NotNil(records[0].RevokedAt)
	})

	s.Run("a fresh grant starts a new record", func() {
		s.Require().NoError(s.service.Grant(s.ctx, s.orgID, id.ConsentScopeAggregateSharing))
		active, err := s.service.HasActive(s.ctx, s.orgID, id.ConsentScopeAggregateSharing)
		s.Require().NoError(err)
		s.True(active)

		records, err := s.service.ListByOrg(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.Len(records, 2)
	})
}

func (s *ConsentServiceSuite) TestScopesAreIndependent() {
	s.Require().NoError(s.service.Grant(s.ctx, s.orgID, id.ConsentScopeAggregateSharing))

	active, err := s.service.HasActive(s.ctx, s.orgID, id.ConsentScopeBenchmarking)
	s.Require().NoError(err)
	s.False(active, "a grant covers exactly its scope")
}
