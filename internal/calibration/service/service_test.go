package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"calibra/internal/calibration/mocks"
	"calibra/internal/calibration/models"
	nbmodels "calibra/internal/noncebind/models"
	dErrors "calibra/pkg/domain-errors"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// calibrationMocks bundles every port mock behind the service.
type calibrationMocks struct {
	contributions *mocks.MockContributions
	results       *mocks.MockResults
	verifier      *mocks.MockNonceVerifier
	consent       *mocks.MockConsent
	reputations   *mocks.MockReputations
	probation     *mocks.MockProbation
	consistency   *mocks.MockConsistencyStore
	locker        *mocks.MockLocker
	enrollment    *mocks.MockEnrollment
}

func newCalibrationMocks(ctrl *gomock.Controller) *calibrationMocks {
	return &calibrationMocks{
		contributions: mocks.NewMockContributions(ctrl),
		results:       mocks.NewMockResults(ctrl),
		verifier:      mocks.NewMockNonceVerifier(ctrl),
		consent:       mocks.NewMockConsent(ctrl),
		reputations:   mocks.NewMockReputations(ctrl),
		probation:     mocks.NewMockProbation(ctrl),
		consistency:   mocks.NewMockConsistencyStore(ctrl),
		locker:        mocks.NewMockLocker(ctrl),
		enrollment:    mocks.NewMockEnrollment(ctrl),
	}
}

func (m *calibrationMocks) deps() Deps {
	return Deps{
		Contributions: m.contributions,
		Results:       m.results,
		Verifier:      m.verifier,
		Consent:       m.consent,
		Reputations:   m.reputations,
		Probation:     m.probation,
		Consistency:   m.consistency,
		Locker:        m.locker,
	}
}

type SubmitContributionSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	mocks   *calibrationMocks
	service *Service
	ctx     context.Context
	orgID   id.OrgID
}

func TestSubmitContributionSuite(t *testing.T) {
	suite.Run(t, new(SubmitContributionSuite))
}

func (s *SubmitContributionSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mocks = newCalibrationMocks(s.ctrl)
	s.ctx = context.Background()
	s.orgID = id.NewOrgID()

	var err error
	s.service, err = New(DefaultConfig(), s.mocks.deps(),
		WithEnrollment(s.mocks.enrollment),
		WithClock(func() time.Time {
			return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		}))
	s.Require().NoError(err)
}

func (s *SubmitContributionSuite) contribution() models.Contribution {
	return models.Contribution{
		OrgID:          s.orgID,
		RuleID:         "rule.velocity.v2",
		Nonce:          "nonce-1",
		ReportedRate:   0.12,
		EventsObserved: 90,
		EventsExpected: 100,
	}
}

func (s *SubmitContributionSuite) expectValidBinding() {
	s.mocks.verifier.EXPECT().
		Verify(gomock.Any(), id.Nonce("nonce-1"), s.orgID).
		Return(&nbmodels.VerifyResult{Valid: true}, nil)
}

func (s *SubmitContributionSuite) TestAccepted() {
	s.expectValidBinding()
	s.mocks.consent.EXPECT().
		HasActive(gomock.Any(), s.orgID, id.ConsentScopeAggregateSharing).
		Return(true, nil)
	s.mocks.enrollment.EXPECT().Enroll(gomock.Any(), s.orgID).Return(nil)

	var saved models.Contribution
	s.mocks.contributions.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c models.Contribution) error {
			saved = c
			return nil
		})

	s.Require().NoError(s.service.SubmitContribution(s.ctx, s.contribution()))
	s.Equal(s.orgID, saved.OrgID)
	s.False(saved.SubmittedAt.IsZero(), "intake stamps the submission time")
}

func (s *SubmitContributionSuite) TestRejectsOutOfRangeRate() {
	for _, rate := range []float64{-0.1, 1.1} {
		c := s.contribution()
		c.ReportedRate = rate
		err := s.service.SubmitContribution(s.ctx, c)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest), "rate %v must be rejected", rate)
	}
}

func (s *SubmitContributionSuite) TestRejectsNegativeCounts() {
	c := s.contribution()
	c.EventsObserved = -1
	err := s.service.SubmitContribution(s.ctx, c)
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *SubmitContributionSuite) TestRejectsInvalidBinding() {
	s.mocks.verifier.EXPECT().
		Verify(gomock.Any(), id.Nonce("nonce-1"), s.orgID).
		Return(nbmodels.Invalid("nonce revoked"), nil)

	err := s.service.SubmitContribution(s.ctx, s.contribution())
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	s.Contains(err.Error(), "nonce revoked")
}

func (s *SubmitContributionSuite) TestRejectsWithoutConsent() {
	s.expectValidBinding()
	s.mocks.consent.EXPECT().
		HasActive(gomock.Any(), s.orgID, id.ConsentScopeAggregateSharing).
		Return(false, nil)

	err := s.service.SubmitContribution(s.ctx, s.contribution())
	s.True(dErrors.Is(err, dErrors.CodeForbidden))
}

func (s *SubmitContributionSuite) TestConsentCheckFailureIsFailClosed() {
	s.expectValidBinding()
	s.mocks.consent.EXPECT().
		HasActive(gomock.Any(), s.orgID, id.ConsentScopeAggregateSharing).
		Return(false, errors.New("store down"))

	err := s.service.SubmitContribution(s.ctx, s.contribution())
	s.True(dErrors.Is(err, dErrors.CodeForbidden))
}

func (s *SubmitContributionSuite) TestVerifierErrorIsInternal() {
	s.mocks.verifier.EXPECT().
		Verify(gomock.Any(), id.Nonce("nonce-1"), s.orgID).
		Return(nil, errors.New("store down"))

	err := s.service.SubmitContribution(s.ctx, s.contribution())
	s.True(dErrors.Is(err, dErrors.CodeInternal))
}

func TestLatest(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := newCalibrationMocks(ctrl)
	svc, err := New(DefaultConfig(), m.deps())
	if err != nil {
		t.Fatal(err)
	}

	m.results.EXPECT().
		Latest(gomock.Any(), id.RuleID("rule.x")).
		Return(nil, sentinel.ErrNotFound)

	_, err = svc.Latest(context.Background(), "rule.x")
	if !dErrors.Is(err, dErrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewValidatesDeps(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := newCalibrationMocks(ctrl)

	deps := m.deps()
	deps.Locker = nil
	if _, err := New(DefaultConfig(), deps); err == nil {
		t.Fatal("expected error for missing locker")
	}
}
