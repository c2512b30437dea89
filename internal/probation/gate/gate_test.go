package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"calibra/internal/probation/models"
	"calibra/internal/probation/store"
	repmodels "calibra/internal/reputation/models"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

type stubReputations struct {
	records map[id.OrgID]*repmodels.OrganizationReputation
}

func (s *stubReputations) Get(_ context.Context, orgID id.OrgID) (*repmodels.OrganizationReputation, error) {
	record, ok := s.records[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *record
	return &out, nil
}

type ProbationGateSuite struct {
	suite.Suite
	store       *store.InMemoryStore
	reputations *stubReputations
	gate        *Gate
	orgID       id.OrgID
	ctx         context.Context
}

func TestProbationGateSuite(t *testing.T) {
	suite.Run(t, new(ProbationGateSuite))
}

func (s *ProbationGateSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.reputations = &stubReputations{records: map[id.OrgID]*repmodels.OrganizationReputation{}}
	s.orgID = id.NewOrgID()
	s.ctx = context.Background()

	var err error
	s.gate, err = New(s.store, s.reputations, WithClock(func() time.Time {
		return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	}))
	s.Require().NoError(err)
}

func (s *ProbationGateSuite) setReputation(contributions, flagged int, score float64) {
	s.reputations.records[s.orgID] = &repmodels.OrganizationReputation{
		OrgID:             s.orgID,
		ReputationScore:   score,
		ContributionCount: contributions,
		FlaggedCount:      flagged,
	}
}

func (s *ProbationGateSuite) TestEnroll() {
	status, err := s.gate.Enroll(s.ctx, s.orgID)
	s.Require().NoError(err)
	s.Equal(models.StateProbation, status.State)

	s.Run("is idempotent", func() {
		s.setReputation(30, 0, 0.8)
		state, err := s.gate.Evaluate(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.Equal(models.StateActive, state)

		again, err := s.gate.Enroll(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.Equal(models.StateActive, again.State, "Enroll must not demote an active org")
	})
}

func (s *ProbationGateSuite) TestStateFor() {
	s.Run("missing record reads as probation", func() {
		state, err := s.gate.StateFor(s.ctx, id.NewOrgID())
		s.Require().NoError(err)
		s.Equal(models.StateProbation, state)
	})
}

func (s *ProbationGateSuite) TestEvaluateGraduation() {
	s.Run("all thresholds met graduates to active", func() {
		s.setReputation(models.GraduationSubmissions, 0, models.GraduationMinReputation)
		state, err := s.gate.Evaluate(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.Equal(models.StateActive, state)

		status, err := s.store.Get(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.NotNil(status.ActivatedAt)
	})

	s.Run("one submission short stays in probation", func() {
		short := id.NewOrgID()
		s.reputations.records[short] = &repmodels.OrganizationReputation{
			OrgID:             short,
			ReputationScore:   0.9,
			ContributionCount: models.GraduationSubmissions - 1,
		}
		state, err := s.gate.Evaluate(s.ctx, short)
		s.Require().NoError(err)
		s.Equal(models.StateProbation, state)
	})

	s.Run("any flag blocks graduation", func() {
		flagged := id.NewOrgID()
		s.reputations.records[flagged] = &repmodels.OrganizationReputation{
			OrgID:             flagged,
			ReputationScore:   0.9,
			ContributionCount: 50,
			FlaggedCount:      1,
		}
		state, err := s.gate.Evaluate(s.ctx, flagged)
		s.Require().NoError(err)
		s.Equal(models.StateProbation, state)
	})

	s.Run("reputation below floor blocks graduation", func() {
		low := id.NewOrgID()
		s.reputations.records[low] = &repmodels.OrganizationReputation{
			OrgID:             low,
			ReputationScore:   0.49,
			ContributionCount: 50,
		}
		state, err := s.gate.Evaluate(s.ctx, low)
		s.Require().NoError(err)
		s.Equal(models.StateProbation, state)
	})
}

func (s *ProbationGateSuite) TestEvaluateRemoval() {
	s.Run("flag count above ceiling removes the org", func() {
		s.setReputation(50, models.RemovalFlagThreshold+1, 0.9)
		state, err := s.gate.Evaluate(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.Equal(models.StateRemoved, state)

		status, err := s.store.Get(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.NotNil(status.RemovedAt)
		s.NotEmpty(status.RemovedReason)
	})

	s.Run("exactly at the ceiling is not removed", func() {
		at := id.NewOrgID()
		s.reputations.records[at] = &repmodels.OrganizationReputation{
			OrgID:        at,
			FlaggedCount: models.RemovalFlagThreshold,
		}
		state, err := s.gate.Evaluate(s.ctx, at)
		s.Require().NoError(err)
		s.Equal(models.StateProbation, state)
	})

	s.Run("removal also applies to active orgs", func() {
		active := id.NewOrgID()
		s.reputations.records[active] = &repmodels.OrganizationReputation{
			OrgID:             active,
			ReputationScore:   0.9,
			ContributionCount: 50,
		}
		state, err := s.gate.Evaluate(s.ctx, active)
		s.Require().NoError(err)
		s.Require().Equal(models.StateActive, state)

		s.reputations.records[active].FlaggedCount = models.RemovalFlagThreshold + 1
		state, err = s.gate.Evaluate(s.ctx, active)
		s.Require().NoError(err)
		s.Equal(models.StateRemoved, state)
	})
}

func (s *ProbationGateSuite) TestRemovedIsTerminal() {
	s.setReputation(50, models.RemovalFlagThreshold+1, 0.9)
	state, err := s.gate.Evaluate(s.ctx, s.orgID)
	s.Require().NoError(err)
	s.Require().Equal(models.StateRemoved, state)

	// Even a spotless reputation record never resurrects a removed org.
	s.setReputation(100, 0, 1.0)
	state, err = s.gate.Evaluate(s.ctx, s.orgID)
	s.Require().NoError(err)
	s.Equal(models.StateRemoved, state)
}

func (s *ProbationGateSuite) TestRemove() {
	s.Require().NoError(s.gate.Remove(s.ctx, s.orgID, "identity revoked"))

	status, err := s.store.Get(s.ctx, s.orgID)
	s.Require().NoError(err)
	s.Equal(models.StateRemoved, status.State)
	s.Equal("identity revoked", status.RemovedReason)

	s.Run("is idempotent", func() {
		s.Require().NoError(s.gate.Remove(s.ctx, s.orgID, "again"))
		status, err := s.store.Get(s.ctx, s.orgID)
		s.Require().NoError(err)
		s.Equal("identity revoked", status.RemovedReason, "first removal reason sticks")
	})
}

func (s *ProbationGateSuite) TestWeightFor() {
	s.Zero(WeightFor(models.StateProbation, 0.8))
	s.Zero(WeightFor(models.StateRemoved, 0.8))
	s.Equal(0.8, WeightFor(models.StateActive, 0.8))
}
