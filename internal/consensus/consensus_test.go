package consensus

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "calibra/pkg/domain"
)

func orgID(n int) id.OrgID {
	return id.OrgID(fmt.Sprintf("00000000-0000-4000-8000-%012d", n))
}

func report(n int, rate, weight float64) Report {
	return Report{
		OrgID:         orgID(n),
		Rate:          rate,
		Weight:        weight,
		HasReputation: true,
		Reputation:    0.5,
	}
}

func TestWeightedMedian(t *testing.T) {
	t.Run("weight concentrates the median on low rates", func(t *testing.T) {
		// Rates 0.1, 0.2, 0.9 with weights 0.5, 0.3, 0.2: cumulative
		// weight crosses half the total (0.5) at rate 0.2.
		reports := []Report{
			report(1, 0.1, 0.5),
			report(2, 0.2, 0.3),
			report(3, 0.9, 0.2),
		}
		assert.InDelta(t, 0.2, WeightedMedian(reports), 1e-9)
	})

	t.Run("exactly half the weight does not cross", func(t *testing.T) {
		// Two equal weights: the first report carries exactly half the
		// total, so the crossing happens at the second.
		reports := []Report{report(1, 0.1, 0.5), report(2, 0.3, 0.5)}
		assert.Equal(t, 0.3, WeightedMedian(reports))
	})

	t.Run("single report returns its rate", func(t *testing.T) {
		assert.Equal(t, 0.42, WeightedMedian([]Report{report(1, 0.42, 0.7)}))
	})

	t.Run("empty input returns zero", func(t *testing.T) {
		assert.Zero(t, WeightedMedian(nil))
	})

	t.Run("all-zero weights fall back to unweighted median", func(t *testing.T) {
		reports := []Report{
			report(1, 0.1, 0),
			report(2, 0.3, 0),
			report(3, 0.5, 0),
		}
		assert.Equal(t, 0.3, WeightedMedian(reports))
	})

	t.Run("result is independent of input order", func(t *testing.T) {
		a := []Report{report(1, 0.1, 0.5), report(2, 0.2, 0.3), report(3, 0.9, 0.2)}
		b := []Report{a[2], a[0], a[1]}
		assert.Equal(t, WeightedMedian(a), WeightedMedian(b))
	})
}

func TestAdaptiveThreshold(t *testing.T) {
	t.Run("neutral cohort requires supermajority", func(t *testing.T) {
		assert.InDelta(t, 0.66, AdaptiveThreshold(0.5), 1e-9)
	})

	t.Run("fully trusted cohort requires bare majority", func(t *testing.T) {
		assert.InDelta(t, 0.51, AdaptiveThreshold(1.0), 1e-9)
	})

	t.Run("low-reputation cohort clamps at supermajority", func(t *testing.T) {
		assert.InDelta(t, 0.66, AdaptiveThreshold(0.2), 1e-9)
	})

	t.Run("threshold is monotone in reputation", func(t *testing.T) {
		prev := AdaptiveThreshold(0.5)
		for rep := 0.55; rep <= 1.0; rep += 0.05 {
			next := AdaptiveThreshold(rep)
			assert.LessOrEqual(t, next, prev, "threshold rose at rep %.2f", rep)
			prev = next
		}
	})
}

func TestRunFilterStages(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("missing reputation is excluded, not defaulted", func(t *testing.T) {
		reports := []Report{
			report(1, 0.2, 0.6),
			{OrgID: orgID(2), Rate: 0.3, Weight: 0.6},
		}
		out := Run(cfg, reports)
		assert.Equal(t, 1, out.Summary.Included)
		assert.Equal(t, 1, out.Summary.ByStage[StageMissingWeight])
	})

	t.Run("reputation below floor is excluded", func(t *testing.T) {
		low := report(2, 0.3, 0.6)
		low.Reputation = 0.05
		out := Run(cfg, []Report{report(1, 0.2, 0.6), low})
		assert.Equal(t, 1, out.Summary.ByStage[StageMinReputation])
	})

	t.Run("stake gate only applies when required", func(t *testing.T) {
		reports := []Report{report(1, 0.2, 0.6), report(2, 0.25, 0.6)}
		out := Run(cfg, reports)
		assert.Zero(t, out.Summary.ByStage[StageStakeGate])

		staked := cfg
		staked.RequireActiveStake = true
		out = Run(staked, reports)
		assert.Equal(t, 2, out.Summary.ByStage[StageStakeGate])
	})

	t.Run("probation org is excluded from the cohort", func(t *testing.T) {
		prob := report(2, 0.3, 0.6)
		prob.OnProbation = true
		out := Run(cfg, []Report{report(1, 0.2, 0.6), prob})
		assert.Equal(t, 1, out.Summary.ByStage[StageProbation])
		assert.Equal(t, 1, out.Summary.Included)
		for _, r := range out.Included {
			assert.NotEqual(t, orgID(2), r.OrgID)
		}
	})

	t.Run("extreme outlier is excluded from a large cohort", func(t *testing.T) {
		reports := []Report{
			report(1, 0.10, 0.6),
			report(2, 0.11, 0.6),
			report(3, 0.12, 0.6),
			report(4, 0.10, 0.6),
			report(5, 0.11, 0.6),
			report(6, 0.95, 0.6),
		}
		out := Run(cfg, reports)
		require.Equal(t, 1, out.Summary.ByStage[StageOutlier])
		var excluded id.OrgID
		for _, excl := range out.Summary.Exclusions {
			if excl.Stage == StageOutlier {
				excluded = excl.OrgID
			}
		}
		assert.Equal(t, orgID(6), excluded)
		assert.InDelta(t, 0.11, out.Rate, 0.02)
	})

	t.Run("statistical stages are skipped for small cohorts", func(t *testing.T) {
		// Four reports, one wildly off: with fewer than five survivors
		// the outlier and percentile stages must not run, so all four
		// reach the median.
		reports := []Report{
			report(1, 0.10, 0.6),
			report(2, 0.11, 0.6),
			report(3, 0.12, 0.6),
			report(4, 0.90, 0.6),
		}
		out := Run(cfg, reports)
		assert.Zero(t, out.Summary.ByStage[StageOutlier])
		assert.Zero(t, out.Summary.ByStage[StagePercentile])
		assert.Equal(t, 4, out.Summary.Included)
	})

	t.Run("bottom weight percentile is dropped", func(t *testing.T) {
		reports := []Report{
			report(1, 0.10, 0.9),
			report(2, 0.11, 0.8),
			report(3, 0.12, 0.7),
			report(4, 0.13, 0.6),
			report(5, 0.14, 0.1),
		}
		out := Run(cfg, reports)
		require.Equal(t, 1, out.Summary.ByStage[StagePercentile])
		for _, r := range out.Included {
			assert.NotEqual(t, orgID(5), r.OrgID)
		}
	})

	t.Run("identical rates do not trip the outlier stage", func(t *testing.T) {
		var reports []Report
		for i := 1; i <= 6; i++ {
			reports = append(reports, report(i, 0.2, 0.6))
		}
		out := Run(cfg, reports)
		assert.Zero(t, out.Summary.ByStage[StageOutlier])
	})

	t.Run("empty cohort yields unaccepted zero outcome", func(t *testing.T) {
		out := Run(cfg, nil)
		assert.False(t, out.Accepted)
		assert.Zero(t, out.Rate)
	})
}

func TestRunDeterminism(t *testing.T) {
	cfg := DefaultConfig()
	reports := []Report{
		report(3, 0.22, 0.4),
		report(1, 0.18, 0.9),
		report(5, 0.20, 0.5),
		report(2, 0.21, 0.7),
		report(4, 0.19, 0.6),
		report(6, 0.23, 0.3),
	}
	first := Run(cfg, reports)
	for i := 0; i < 10; i++ {
		shuffled := append([]Report(nil), reports...)
		shuffled[i%len(shuffled)], shuffled[0] = shuffled[0], shuffled[i%len(shuffled)]
		again := Run(cfg, shuffled)
		assert.Equal(t, first.Rate, again.Rate)
		assert.Equal(t, first.Summary.Included, again.Summary.Included)
		assert.Equal(t, first.Confidence.Score, again.Confidence.Score)
	}
}

func TestComputeConfidence(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("full cohort in perfect agreement scores high", func(t *testing.T) {
		var reports []Report
		for i := 1; i <= 10; i++ {
			r := report(i, 0.2, 0.8)
			r.Reputation = 0.9
			r.EventsObserved = 100
			r.EventsExpected = 100
			reports = append(reports, r)
		}
		c := ComputeConfidence(cfg, reports)
		assert.Equal(t, ConfidenceHigh, c.Level)
		assert.InDelta(t, 1.0, c.CountTerm, 1e-9)
		assert.InDelta(t, 1.0, c.AgreementTerm, 1e-9)
	})

	t.Run("small dispersed cohort scores low", func(t *testing.T) {
		reports := []Report{report(1, 0.05, 0.5), report(2, 0.6, 0.5)}
		for i := range reports {
			reports[i].Reputation = 0.3
			reports[i].EventsObserved = 10
			reports[i].EventsExpected = 100
		}
		c := ComputeConfidence(cfg, reports)
		assert.Equal(t, ConfidenceLow, c.Level)
	})

	t.Run("component weights sum to the score", func(t *testing.T) {
		reports := []Report{report(1, 0.2, 0.5), report(2, 0.22, 0.5), report(3, 0.21, 0.5)}
		c := ComputeConfidence(cfg, reports)
		expected := 0.35*c.CountTerm + 0.30*c.AgreementTerm + 0.20*c.CompletenessTerm + 0.15*c.ReputationTerm
		assert.InDelta(t, expected, c.Score, 1e-9)
	})

	t.Run("empty cohort is low with zero score", func(t *testing.T) {
		c := ComputeConfidence(cfg, nil)
		assert.Equal(t, ConfidenceLow, c.Level)
		assert.Zero(t, c.Score)
	})
}

func TestQuorumShare(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("statistical exclusions reduce quorum share", func(t *testing.T) {
		reports := []Report{
			report(1, 0.10, 0.6),
			report(2, 0.11, 0.6),
			report(3, 0.12, 0.6),
			report(4, 0.10, 0.6),
			report(5, 0.11, 0.6),
			report(6, 0.95, 0.6),
		}
		out := Run(cfg, reports)
		// Six eligible, one excluded by the outlier stage and one by the
		// percentile stage: 4/6 of the weight survives.
		assert.InDelta(t, 4.0/6.0, out.QuorumShare, 1e-9)
	})

	t.Run("probation exclusion shrinks the eligible cohort", func(t *testing.T) {
		prob := report(6, 0.11, 0.6)
		prob.OnProbation = true
		reports := []Report{
			report(1, 0.10, 0.6),
			report(2, 0.11, 0.6),
			report(3, 0.12, 0.6),
			report(4, 0.10, 0.6),
			report(5, 0.11, 0.6),
			prob,
		}
		out := Run(cfg, reports)
		require.Equal(t, 1, out.Summary.ByStage[StageProbation])
		// Five eligible after the gates; the percentile stage drops one,
		// so 4/5 of the eligible weight survives.
		assert.InDelta(t, 4.0/5.0, out.QuorumShare, 1e-9)
	})

	t.Run("no statistical exclusions means full quorum", func(t *testing.T) {
		reports := []Report{report(1, 0.2, 0.6), report(2, 0.21, 0.5)}
		out := Run(cfg, reports)
		assert.InDelta(t, 1.0, out.QuorumShare, 1e-9)
		assert.True(t, out.Accepted)
	})
}

func TestRobustStatistics(t *testing.T) {
	t.Run("median of odd and even lengths", func(t *testing.T) {
		assert.Equal(t, 0.2, median([]float64{0.1, 0.2, 0.3}))
		assert.InDelta(t, 0.25, median([]float64{0.1, 0.2, 0.3, 0.4}), 1e-9)
	})

	t.Run("MAD of constant values is zero", func(t *testing.T) {
		values := []float64{0.5, 0.5, 0.5}
		assert.Zero(t, medianAbsoluteDeviation(values, median(values)))
	})

	t.Run("robust z-score matches the scale factor", func(t *testing.T) {
		values := []float64{0.1, 0.11, 0.12, 0.13, 0.14}
		med := median(values)
		mad := medianAbsoluteDeviation(values, med)
		z := math.Abs(0.95-med) / (1.4826 * mad)
		assert.Greater(t, z, 3.0)
	})
}
