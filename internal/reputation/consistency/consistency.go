// Package consistency tracks how closely each org's historical reports
// agree with the consensus that excluded them, as an exponentially weighted
// moving average over recent rounds.
package consistency

import (
	"math"
	"time"

	id "calibra/pkg/domain"
)

const (
	// Alpha is the EWMA smoothing factor; the effective half-life is
	// roughly 70 rounds.
	Alpha = 0.01

	// MaxSampleAge is the hard horizon: samples older than this are
	// excluded from scoring entirely, not merely down-weighted.
	MaxSampleAge = 180 * 24 * time.Hour

	// MinSamples is the minimum usable history. Below it the score is
	// NeutralScore so a new org is neither rewarded nor punished.
	MinSamples = 3

	// NeutralScore is returned for orgs with insufficient history.
	NeutralScore = 0.5
)

// Sample is one round's agreement observation for an org.
type Sample struct {
	At        time.Time `json:"at"`
	RuleID    id.RuleID `json:"ruleId"`
	RoundID   id.RoundID `json:"roundId"`
	Agreement float64   `json:"agreement"`
	// Outlier marks whether the robust-statistics stage excluded this
	// org's report in that round.
	Outlier bool `json:"outlier"`
}

// Record is an org's retained agreement history. Samples are append-only
// and ordered by At ascending; Compact trims what the horizon has expired.
type Record struct {
	OrgID   id.OrgID `json:"orgId"`
	Samples []Sample `json:"samples"`
	Version int64    `json:"-"`
}

// Agreement measures how close a reported rate was to the consensus rate,
// normalized to [0,1]. The denominator floor keeps tiny consensus values
// from exploding relative error.
func Agreement(reported, consensus float64) float64 {
	denom := consensus
	if denom < 0.01 {
		denom = 0.01
	}
	a := 1.0 - math.Abs(reported-consensus)/denom
	if a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}

// Append adds one round's observation, keeping samples ordered by time.
func (r *Record) Append(s Sample) {
	n := len(r.Samples)
	if n == 0 || !s.At.Before(r.Samples[n-1].At) {
		r.Samples = append(r.Samples, s)
		return
	}
	i := n
	for i > 0 && r.Samples[i-1].At.After(s.At) {
		i--
	}
	r.Samples = append(r.Samples, Sample{})
	copy(r.Samples[i+1:], r.Samples[i:])
	r.Samples[i] = s
}

// Compact drops samples past the retention horizon.
func (r *Record) Compact(asOf time.Time) {
	cutoff := asOf.Add(-MaxSampleAge)
	i := 0
	for i < len(r.Samples) && r.Samples[i].At.Before(cutoff) {
		i++
	}
	if i > 0 {
		r.Samples = append(r.Samples[:0], r.Samples[i:]...)
	}
}

// Score computes the EWMA consistency score over samples within the
// horizon. Expired samples are excluded outright; with fewer than
// MinSamples usable samples the score is neutral.
func (r *Record) Score(asOf time.Time) float64 {
	cutoff := asOf.Add(-MaxSampleAge)
	usable := 0
	score := 0.0
	for _, s := range r.Samples {
		if s.At.Before(cutoff) {
			continue
		}
		if usable == 0 {
			score = s.Agreement
		} else {
			score = Alpha*s.Agreement + (1-Alpha)*score
		}
		usable++
	}
	if usable < MinSamples {
		return NeutralScore
	}
	return score
}
