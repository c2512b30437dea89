// Package store persists probation statuses.
package store

import (
	"context"
	"sync"

	"calibra/internal/probation/models"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// Store is the probation persistence contract.
type Store interface {
	Get(ctx context.Context, orgID id.OrgID) (*models.Status, error)
	// GetOrCreate returns the existing status or creates the given
	// initial one atomically.
	GetOrCreate(ctx context.Context, initial models.Status) (*models.Status, error)
	// Update persists the status when the stored version still matches
	// status.Version. sentinel.ErrConflict on version miss.
	Update(ctx context.Context, status models.Status) error
	List(ctx context.Context) ([]*models.Status, error)
}

// InMemoryStore keeps probation statuses in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	statuses map[id.OrgID]models.Status
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{statuses: make(map[id.OrgID]models.Status)}
}

func (s *InMemoryStore) Get(_ context.Context, orgID id.OrgID) (*models.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := status
	return &out, nil
}

func (s *InMemoryStore) GetOrCreate(_ context.Context, initial models.Status) (*models.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status, ok := s.statuses[initial.OrgID]; ok {
		out := status
		return &out, nil
	}
	s.statuses[initial.OrgID] = initial
	out := initial
	return &out, nil
}

func (s *InMemoryStore) Update(_ context.Context, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.statuses[status.OrgID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.Version != status.Version {
		return sentinel.ErrConflict
	}
	status.Version++
	s.statuses[status.OrgID] = status
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Status, 0, len(s.statuses))
	for _, status := range s.statuses {
		st := status
		out = append(out, &st)
	}
	return out, nil
}
