package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibra/internal/calibration/models"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

func TestInMemoryContributions(t *testing.T) {
	ctx := t.Context()
	s := NewInMemoryContributions()
	rule := id.RuleID("rule.velocity.v2")
	org := id.NewOrgID()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("resubmission supersedes the earlier report", func(t *testing.T) {
		require.NoError(t, s.Append(ctx, models.Contribution{OrgID: org, RuleID: rule, ReportedRate: 0.1, SubmittedAt: base}))
		require.NoError(t, s.Append(ctx, models.Contribution{OrgID: org, RuleID: rule, ReportedRate: 0.2, SubmittedAt: base.Add(time.Minute)}))

		snapshot, err := s.Snapshot(ctx, rule)
		require.NoError(t, err)
		require.Len(t, snapshot, 1)
		assert.Equal(t, 0.2, snapshot[0].ReportedRate)
	})

	t.Run("snapshot does not mutate the log", func(t *testing.T) {
		again, err := s.Snapshot(ctx, rule)
		require.NoError(t, err)
		require.Len(t, again, 1)
		assert.Equal(t, 0.2, again[0].ReportedRate)
	})

	t.Run("consumption hides the snapshot from later rounds", func(t *testing.T) {
		require.NoError(t, s.MarkConsumed(ctx, rule, id.NewRoundID(base.Add(time.Hour)), base.Add(time.Minute)))
		snapshot, err := s.Snapshot(ctx, rule)
		require.NoError(t, err)
		assert.Empty(t, snapshot)
	})

	t.Run("consumption respects the cutoff", func(t *testing.T) {
		early := models.Contribution{OrgID: org, RuleID: rule, ReportedRate: 0.3, SubmittedAt: base.Add(2 * time.Hour)}
		late := models.Contribution{OrgID: id.NewOrgID(), RuleID: rule, ReportedRate: 0.4, SubmittedAt: base.Add(3 * time.Hour)}
		require.NoError(t, s.Append(ctx, early))
		require.NoError(t, s.Append(ctx, late))

		require.NoError(t, s.MarkConsumed(ctx, rule, id.NewRoundID(base.Add(4*time.Hour)), early.SubmittedAt))

		snapshot, err := s.Snapshot(ctx, rule)
		require.NoError(t, err)
		require.Len(t, snapshot, 1)
		assert.Equal(t, 0.4, snapshot[0].ReportedRate, "a report racing the round stays pending")
	})

	t.Run("pending rules only count unconsumed reports", func(t *testing.T) {
		other := id.RuleID("rule.geo.v1")
		require.NoError(t, s.Append(ctx, models.Contribution{OrgID: org, RuleID: other, ReportedRate: 0.3, SubmittedAt: base}))
		require.NoError(t, s.MarkConsumed(ctx, rule, id.NewRoundID(base.Add(5*time.Hour)), base.Add(5*time.Hour)))

		pending, err := s.PendingRules(ctx)
		require.NoError(t, err)
		assert.Equal(t, []id.RuleID{other}, pending)
	})

	t.Run("snapshot order is deterministic", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			require.NoError(t, s.Append(ctx, models.Contribution{OrgID: id.NewOrgID(), RuleID: rule, SubmittedAt: base}))
		}
		snapshot, err := s.Snapshot(ctx, rule)
		require.NoError(t, err)
		require.Len(t, snapshot, 5)
		for i := 1; i < len(snapshot); i++ {
			assert.Less(t, snapshot[i-1].OrgID.String(), snapshot[i].OrgID.String())
		}
	})
}

func TestInMemoryResults(t *testing.T) {
	ctx := t.Context()
	s := NewInMemoryResults()
	rule := id.RuleID("rule.velocity.v2")

	t.Run("latest of unknown rule is not found", func(t *testing.T) {
		_, err := s.Latest(ctx, rule)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Save(ctx, models.CalibrationResult{
			RuleID:  rule,
			RoundID: id.NewRoundID(base.Add(time.Duration(i) * time.Hour)),
			Status:  models.RoundStatusCompleted,
			Rate:    float64(i) / 10,
		}))
	}

	t.Run("latest returns the most recent round", func(t *testing.T) {
		latest, err := s.Latest(ctx, rule)
		require.NoError(t, err)
		assert.Equal(t, 0.2, latest.Rate)
	})

	t.Run("history is newest first and honors the limit", func(t *testing.T) {
		history, err := s.History(ctx, rule, 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, 0.2, history[0].Rate)
		assert.Equal(t, 0.1, history[1].Rate)
	})

	t.Run("zero limit returns everything", func(t *testing.T) {
		history, err := s.History(ctx, rule, 0)
		require.NoError(t, err)
		assert.Len(t, history, 3)
	})
}
