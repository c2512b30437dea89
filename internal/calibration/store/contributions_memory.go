// Package store persists calibration contributions and round results.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"calibra/internal/calibration/models"
	id "calibra/pkg/domain"
)

type contributionRow struct {
	contribution  models.Contribution
	consumedRound id.RoundID
}

// InMemoryContributions keeps the append-only contribution log in process
// memory. Rows are never removed; consumption marks them.
type InMemoryContributions struct {
	mu   sync.Mutex
	rows []contributionRow
}

func NewInMemoryContributions() *InMemoryContributions {
	return &InMemoryContributions{}
}

func (s *InMemoryContributions) Append(_ context.Context, c models.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, contributionRow{contribution: c})
	return nil
}

// Snapshot returns each org's latest unconsumed report for the rule,
// ordered by org ID. The log itself is untouched.
func (s *InMemoryContributions) Snapshot(_ context.Context, ruleID id.RuleID) ([]models.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := make(map[id.OrgID]models.Contribution)
	for _, row := range s.rows {
		if row.contribution.RuleID != ruleID || row.consumedRound != "" {
			continue
		}
		// Appended rows supersede earlier ones; equal timestamps break
		// toward the later append.
		if best, ok := latest[row.contribution.OrgID]; ok && row.contribution.SubmittedAt.Before(best.SubmittedAt) {
			continue
		}
		latest[row.contribution.OrgID] = row.contribution
	}

	out := make([]models.Contribution, 0, len(latest))
	for _, c := range latest {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrgID.String() < out[j].OrgID.String() })
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (s *InMemoryContributions) MarkConsumed(_ context.Context, ruleID id.RuleID, roundID id.RoundID, asOf time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.contribution.RuleID != ruleID || row.consumedRound != "" {
			continue
		}
		if row.contribution.SubmittedAt.After(asOf) {
			continue
		}
		s.rows[i].consumedRound = roundID
	}
	return nil
}

func (s *InMemoryContributions) PendingRules(_ context.Context) ([]id.RuleID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[id.RuleID]struct{})
	for _, row := range s.rows {
		if row.consumedRound == "" {
			seen[row.contribution.RuleID] = struct{}{}
		}
	}
	out := make([]id.RuleID, 0, len(seen))
	for ruleID := range seen {
		out = append(out, ruleID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
