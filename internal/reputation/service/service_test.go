package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"calibra/internal/reputation/models"
	"calibra/internal/reputation/store"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
)

type ReputationServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	service *Service
	orgID   id.OrgID
	ctx     context.Context
}

func TestReputationServiceSuite(t *testing.T) {
	suite.Run(t, new(ReputationServiceSuite))
}

func (s *ReputationServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.orgID = id.NewOrgID()
	s.ctx = context.Background()

	var err error
	s.service, err = New(s.store, WithClock(func() time.Time {
		return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	}))
	s.Require().NoError(err)
}

func (s *ReputationServiceSuite) enroll() {
	_, err := s.service.Ensure(s.ctx, s.orgID)
	s.Require().NoError(err)
}

func (s *ReputationServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil)
		s.Error(err)
	})
}

func (s *ReputationServiceSuite) TestEnsure() {
	s.Run("creates a neutral record", func() {
		record, err := s.service.Ensure(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.Equal(models.NeutralReputation, record.ReputationScore)
		s.Equal(models.StakeStatusNone, record.StakeStatus)
	})

	s.Run("is idempotent", func() {
		first, err := s.service.Ensure(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.Require().NoError(s.service.Flag(s.ctx, s.orgID, "test"))

		again, err := s.service.Ensure(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.Equal(first.OrgID, again.OrgID)
		s.Equal(1, again.FlaggedCount, "Ensure must not reset existing state")
	})
}

func (s *ReputationServiceSuite) TestGet() {
	s.Run("unknown org is not found", func() {
		_, err := s.service.Get(s.ctx, id.NewOrgID())
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *ReputationServiceSuite) TestContributionWeight() {
	s.enroll()

	weight, err := s.service.ContributionWeight(s.ctx, s.orgID)
	s.Require().NoError(err)
	// Neutral reputation plus the neutral consistency bonus.
	s.InDelta(0.6, weight, 1e-9)

	s.Run("missing record yields an error, never a default weight", func() {
		_, err := s.service.ContributionWeight(s.ctx, id.NewOrgID())
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *ReputationServiceSuite) TestFlag() {
	s.enroll()

	s.Require().NoError(s.service.Flag(s.ctx, s.orgID, "submitted fabricated rate"))
	record, err := s.service.Get(s.ctx, s.orgID)
	s.Require().NoError(err)
	s.Equal(1, record.FlaggedCount)
	s.InDelta(0.4, record.ReputationScore, 1e-9)

	s.Run("score floors at zero", func() {
		for i := 0; i < 10; i++ {
			s.Require().NoError(s.service.Flag(s.ctx, s.orgID, "repeat offense"))
		}
		record, err := s.service.Get(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.Zero(record.ReputationScore)
	})
}

func (s *ReputationServiceSuite) TestStakeLifecycle() {
	s.enroll()

	s.Run("pledge activates the stake", func() {
		s.Require().NoError(s.service.PledgeStake(s.ctx, s.orgID, 1000))
		record, err := s.service.Get(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.True(record.HasActiveStake())
	})

	s.Run("non-positive pledge is rejected", func() {
		err := s.service.PledgeStake(s.ctx, s.orgID, 0)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("withdraw releases the stake", func() {
		s.Require().NoError(s.service.WithdrawStake(s.ctx, s.orgID))
		record, err := s.service.Get(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.False(record.HasActiveStake())
		s.Equal(models.StakeStatusWithdrawn, record.StakeStatus)
	})

	s.Run("withdrawing without an active stake conflicts", func() {
		err := s.service.WithdrawStake(s.ctx, s.orgID)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})
}

func (s *ReputationServiceSuite) TestSlashStake() {
	s.enroll()
	s.Require().NoError(s.service.PledgeStake(s.ctx, s.orgID, 800))
	s.Require().NoError(s.service.SlashStake(s.ctx, s.orgID, "confirmed collusion"))

	record, err := s.service.Get(s.ctx, s.orgID)
	s.Require().NoError(err)
	s.Equal(models.StakeStatusSlashed, record.StakeStatus)
	s.False(record.HasActiveStake())

	s.Run("slashed stake cannot be re-pledged", func() {
		err := s.service.PledgeStake(s.ctx, s.orgID, 1000)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})
}

func (s *ReputationServiceSuite) TestRecordRound() {
	s.enroll()

	s.Require().NoError(s.service.RecordRound(s.ctx, s.orgID, 1.0, 0.8))
	record, err := s.service.Get(s.ctx, s.orgID)
	s.Require().NoError(err)
	s.Equal(1, record.ContributionCount)
	s.Equal(0.8, record.ConsistencyScore)
	// One perfect round nudges reputation up by alpha only.
	s.InDelta(0.525, record.ReputationScore, 1e-9)

	s.Run("many rounds converge toward the agreement level", func() {
		for i := 0; i < 200; i++ {
			s.Require().NoError(s.service.RecordRound(s.ctx, s.orgID, 1.0, 0.9))
		}
		record, err := s.service.Get(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.Greater(record.ReputationScore, 0.99)
	})
}
