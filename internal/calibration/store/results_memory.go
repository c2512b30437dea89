package store

import (
	"context"
	"sync"

	"calibra/internal/calibration/models"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// InMemoryResults keeps round results in process memory, newest first.
type InMemoryResults struct {
	mu     sync.RWMutex
	byRule map[id.RuleID][]models.CalibrationResult
}

func NewInMemoryResults() *InMemoryResults {
	return &InMemoryResults{byRule: make(map[id.RuleID][]models.CalibrationResult)}
}

func (s *InMemoryResults) Save(_ context.Context, result models.CalibrationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byRule[result.RuleID] = append([]models.CalibrationResult{result}, s.byRule[result.RuleID]...)
	return nil
}

func (s *InMemoryResults) Latest(_ context.Context, ruleID id.RuleID) (*models.CalibrationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := s.byRule[ruleID]
	if len(results) == 0 {
		return nil, sentinel.ErrNotFound
	}
	out := results[0]
	return &out, nil
}

func (s *InMemoryResults) History(_ context.Context, ruleID id.RuleID, limit int) ([]models.CalibrationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := s.byRule[ruleID]
	if limit <= 0 || limit > len(results) {
		limit = len(results)
	}
	out := make([]models.CalibrationResult, limit)
	copy(out, results[:limit])
	return out, nil
}
