// Package consensus computes a Byzantine-resistant weighted consensus over
// per-org false-positive-rate reports. All functions are pure: the package
// holds no state and touches no I/O, which keeps round results
// reproducible from their inputs.
package consensus

import (
	"math"
	"sort"

	id "calibra/pkg/domain"
)

// Report is one org's submission as seen by the filter. The pipeline
// resolves reputation and weight before handing reports in, so the filter
// stays pure.
type Report struct {
	OrgID id.OrgID
	// Rate is the reported false-positive rate in [0,1].
	Rate float64
	// Weight is the bounded contribution weight.
	Weight float64
	// OnProbation marks orgs that have not graduated probation yet; the
	// probation stage excludes them from the cohort.
	OnProbation bool
	// HasReputation is false when no reputation record exists for the
	// org. Such reports are excluded, never defaulted to neutral.
	HasReputation bool
	Reputation    float64
	HasActiveStake bool
	// EventsObserved / EventsExpected feed the completeness term of the
	// confidence score.
	EventsObserved int
	EventsExpected int
}

// Config tunes the filter stages.
type Config struct {
	// MinReputation excludes orgs below the floor outright.
	MinReputation float64
	// RequireActiveStake additionally excludes unstaked orgs.
	RequireActiveStake bool
	// OutlierZThreshold is the robust z-score cutoff for stage four.
	OutlierZThreshold float64
	// PercentileCutoff is the bottom share of the cohort, by weight,
	// dropped in stage five.
	PercentileCutoff float64
	// RecommendedCohort feeds the count term of the confidence score.
	RecommendedCohort int
}

// DefaultConfig mirrors the production calibration settings.
func DefaultConfig() Config {
	return Config{
		MinReputation:     0.1,
		OutlierZThreshold: 3.0,
		PercentileCutoff:  0.2,
		RecommendedCohort: 10,
	}
}

// minRobustCohort is the cohort size below which the statistical stages
// (outlier and percentile exclusion) are skipped: robust statistics over
// four points exclude honest variance, not attackers.
const minRobustCohort = 5

// Exclusion records one dropped report and the stage that dropped it.
type Exclusion struct {
	OrgID  id.OrgID
	Stage  string
	Reason string
}

// Filter stage names, in execution order.
const (
	StageMissingWeight = "missing_weight"
	StageMinReputation = "min_reputation"
	StageStakeGate     = "stake_gate"
	StageProbation     = "probation"
	StageOutlier       = "outlier"
	StagePercentile    = "percentile"
	StageMedian        = "weighted_median"
)

// FilterSummary counts survivors and exclusions per stage.
type FilterSummary struct {
	Input      int            `json:"input"`
	Included   int            `json:"included"`
	ByStage    map[string]int `json:"byStage"`
	Exclusions []Exclusion    `json:"-"`
}

// Outcome is the filter's result for one round.
type Outcome struct {
	// Rate is the weighted median of the surviving cohort.
	Rate float64
	// Threshold is the adaptive quorum share required for acceptance.
	Threshold float64
	// QuorumShare is the surviving cohort's share of the eligible
	// cohort's total weight.
	QuorumShare float64
	// Accepted is true when QuorumShare meets Threshold.
	Accepted bool
	Confidence Confidence
	Summary    FilterSummary
	Included   []Report
}

type stage struct {
	name  string
	apply func(cfg Config, in []Report) (kept []Report, dropped []Exclusion)
}

// stages run in order; each sees only the survivors of the previous one.
var stages = []stage{
	{StageMissingWeight, dropMissingWeight},
	{StageMinReputation, dropLowReputation},
	{StageStakeGate, dropUnstaked},
	{StageProbation, dropProbation},
	{StageOutlier, dropOutliers},
	{StagePercentile, dropBottomPercentile},
}

// Run executes the full filter and computes the round outcome. An empty
// surviving cohort yields Accepted=false with zero rate; the caller
// decides whether to abort the round.
func Run(cfg Config, reports []Report) Outcome {
	summary := FilterSummary{
		Input:   len(reports),
		ByStage: make(map[string]int, len(stages)),
	}

	kept := append([]Report(nil), reports...)
	var eligibleWeight float64
	for i, st := range stages {
		var dropped []Exclusion
		kept, dropped = st.apply(cfg, kept)
		summary.ByStage[st.name] = len(dropped)
		summary.Exclusions = append(summary.Exclusions, dropped...)
		// Eligible weight is fixed after the deterministic gates:
		// statistical exclusions reduce the quorum share rather than
		// shrinking its denominator.
		if i == 3 {
			eligibleWeight = totalWeight(kept)
		}
	}
	summary.Included = len(kept)

	out := Outcome{Summary: summary, Included: kept}
	if len(kept) == 0 {
		return out
	}

	out.Rate = WeightedMedian(kept)
	out.Threshold = AdaptiveThreshold(meanReputation(kept))
	if eligibleWeight > 0 {
		out.QuorumShare = totalWeight(kept) / eligibleWeight
	}
	out.Accepted = out.QuorumShare >= out.Threshold
	out.Confidence = ComputeConfidence(cfg, kept)
	return out
}

func dropMissingWeight(_ Config, in []Report) ([]Report, []Exclusion) {
	return partition(in, func(r Report) (bool, string) {
		if !r.HasReputation {
			return false, "no reputation record"
		}
		return true, ""
	}, StageMissingWeight)
}

func dropLowReputation(cfg Config, in []Report) ([]Report, []Exclusion) {
	return partition(in, func(r Report) (bool, string) {
		if r.Reputation < cfg.MinReputation {
			return false, "reputation below floor"
		}
		return true, ""
	}, StageMinReputation)
}

func dropUnstaked(cfg Config, in []Report) ([]Report, []Exclusion) {
	if !cfg.RequireActiveStake {
		return in, nil
	}
	return partition(in, func(r Report) (bool, string) {
		if !r.HasActiveStake {
			return false, "no active stake"
		}
		return true, ""
	}, StageStakeGate)
}

func dropProbation(_ Config, in []Report) ([]Report, []Exclusion) {
	return partition(in, func(r Report) (bool, string) {
		if r.OnProbation {
			return false, "probation not graduated"
		}
		return true, ""
	}, StageProbation)
}

// dropOutliers excludes reports whose robust z-score against the cohort
// median exceeds the threshold. Skipped for small cohorts.
func dropOutliers(cfg Config, in []Report) ([]Report, []Exclusion) {
	if len(in) < minRobustCohort {
		return in, nil
	}
	rates := make([]float64, len(in))
	for i, r := range in {
		rates[i] = r.Rate
	}
	med := median(rates)
	mad := medianAbsoluteDeviation(rates, med)
	if mad == 0 {
		// Degenerate cohort: every deviation is either zero or
		// infinite. Nothing principled to exclude.
		return in, nil
	}
	return partition(in, func(r Report) (bool, string) {
		z := math.Abs(r.Rate-med) / (1.4826 * mad)
		if z > cfg.OutlierZThreshold {
			return false, "robust z-score above threshold"
		}
		return true, ""
	}, StageOutlier)
}

// dropBottomPercentile excludes the lowest-weight share of the cohort.
// Skipped for small cohorts.
func dropBottomPercentile(cfg Config, in []Report) ([]Report, []Exclusion) {
	if len(in) < minRobustCohort || cfg.PercentileCutoff <= 0 {
		return in, nil
	}
	n := int(math.Floor(float64(len(in)) * cfg.PercentileCutoff))
	if n == 0 {
		return in, nil
	}
	ranked := append([]Report(nil), in...)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Weight != ranked[j].Weight {
			return ranked[i].Weight < ranked[j].Weight
		}
		return ranked[i].OrgID.String() < ranked[j].OrgID.String()
	})
	cut := make(map[id.OrgID]struct{}, n)
	for _, r := range ranked[:n] {
		cut[r.OrgID] = struct{}{}
	}
	return partition(in, func(r Report) (bool, string) {
		if _, dropped := cut[r.OrgID]; dropped {
			return false, "bottom weight percentile"
		}
		return true, ""
	}, StagePercentile)
}

// WeightedMedian returns the rate at which cumulative weight first
// exceeds half the total. Ties in rate break by org ID so the result is
// byte-deterministic regardless of input order.
func WeightedMedian(reports []Report) float64 {
	if len(reports) == 0 {
		return 0
	}
	sorted := append([]Report(nil), reports...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Rate != sorted[j].Rate {
			return sorted[i].Rate < sorted[j].Rate
		}
		return sorted[i].OrgID.String() < sorted[j].OrgID.String()
	})
	total := totalWeight(sorted)
	if total == 0 {
		// All-zero weights: fall back to the unweighted median.
		return sorted[len(sorted)/2].Rate
	}
	half := total / 2
	var cum float64
	for _, r := range sorted {
		cum += r.Weight
		// Strictly above half: a report carrying exactly half the weight
		// does not pull the median down to its rate.
		if cum > half {
			return r.Rate
		}
	}
	return sorted[len(sorted)-1].Rate
}

// AdaptiveThreshold lowers the required quorum share as the cohort's mean
// reputation rises above neutral:
//
//	threshold = max(0.51, 0.66 - 0.15*sqrt((avgRep-0.5)/0.5))
//
// A neutral cohort needs 0.66; a fully trusted cohort needs a bare
// majority of 0.51.
func AdaptiveThreshold(avgReputation float64) float64 {
	excess := (avgReputation - 0.5) / 0.5
	if excess < 0 {
		excess = 0
	}
	if excess > 1 {
		excess = 1
	}
	t := 0.66 - 0.15*math.Sqrt(excess)
	if t < 0.51 {
		t = 0.51
	}
	return t
}

// Confidence scores how much the consensus rate should be trusted.
type Confidence struct {
	Score float64 `json:"score"`
	Level string  `json:"level"`
	// Component terms, each in [0,1] before weighting.
	CountTerm        float64 `json:"countTerm"`
	AgreementTerm    float64 `json:"agreementTerm"`
	CompletenessTerm float64 `json:"completenessTerm"`
	ReputationTerm   float64 `json:"reputationTerm"`
}

// Confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// ComputeConfidence combines cohort size, rate agreement, event
// completeness, and mean reputation into a single score:
//
//	score = 0.35*count + 0.30*agreement + 0.20*completeness + 0.15*reputation
func ComputeConfidence(cfg Config, included []Report) Confidence {
	if len(included) == 0 {
		return Confidence{Level: ConfidenceLow}
	}

	recommended := cfg.RecommendedCohort
	if recommended <= 0 {
		recommended = DefaultConfig().RecommendedCohort
	}
	count := float64(len(included)) / float64(recommended)
	if count > 1 {
		count = 1
	}

	rates := make([]float64, len(included))
	for i, r := range included {
		rates[i] = r.Rate
	}
	med := median(rates)
	mad := medianAbsoluteDeviation(rates, med)
	// Dispersion normalized against the median; MAD at or above the
	// median itself means no agreement at all.
	agreement := 1.0
	if med > 0 {
		agreement = 1.0 - mad/med
		if agreement < 0 {
			agreement = 0
		}
	} else if mad > 0 {
		agreement = 0
	}

	var observed, expected int
	for _, r := range included {
		observed += r.EventsObserved
		expected += r.EventsExpected
	}
	completeness := 1.0
	if expected > 0 {
		completeness = float64(observed) / float64(expected)
		if completeness > 1 {
			completeness = 1
		}
	}

	reputation := meanReputation(included)

	score := 0.35*count + 0.30*agreement + 0.20*completeness + 0.15*reputation
	level := ConfidenceLow
	switch {
	case score >= 0.75:
		level = ConfidenceHigh
	case score >= 0.5:
		level = ConfidenceMedium
	}
	return Confidence{
		Score:            score,
		Level:            level,
		CountTerm:        count,
		AgreementTerm:    agreement,
		CompletenessTerm: completeness,
		ReputationTerm:   reputation,
	}
}

func partition(in []Report, keep func(Report) (bool, string), stageName string) ([]Report, []Exclusion) {
	kept := in[:0:0]
	var dropped []Exclusion
	for _, r := range in {
		ok, reason := keep(r)
		if ok {
			kept = append(kept, r)
			continue
		}
		dropped = append(dropped, Exclusion{OrgID: r.OrgID, Stage: stageName, Reason: reason})
	}
	return kept, dropped
}

func totalWeight(reports []Report) float64 {
	var total float64
	for _, r := range reports {
		total += r.Weight
	}
	return total
}

func meanReputation(reports []Report) float64 {
	if len(reports) == 0 {
		return 0
	}
	var sum float64
	for _, r := range reports {
		sum += r.Reputation
	}
	return sum / float64(len(reports))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func medianAbsoluteDeviation(values []float64, med float64) float64 {
	if len(values) == 0 {
		return 0
	}
	devs := make([]float64, len(values))
	for i, v := range values {
		devs[i] = math.Abs(v - med)
	}
	return median(devs)
}
