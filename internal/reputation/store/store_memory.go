// Package store persists organization reputation records.
package store

import (
	"context"
	"sync"

	"calibra/internal/reputation/models"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// Store is the reputation persistence contract. Update is conditional on
// Version so concurrent round updates for the same org cannot lose writes.
type Store interface {
	Get(ctx context.Context, orgID id.OrgID) (*models.OrganizationReputation, error)
	// GetOrCreate returns the existing record or creates the given initial
	// one atomically.
	GetOrCreate(ctx context.Context, initial models.OrganizationReputation) (*models.OrganizationReputation, error)
	// Update persists the record when the stored version still matches
	// record.Version, then bumps it. sentinel.ErrConflict on version miss.
	Update(ctx context.Context, record models.OrganizationReputation) error
	List(ctx context.Context) ([]*models.OrganizationReputation, error)
}

// InMemoryStore keeps reputation records in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.OrgID]models.OrganizationReputation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.OrgID]models.OrganizationReputation)}
}

func (s *InMemoryStore) Get(_ context.Context, orgID id.OrgID) (*models.OrganizationReputation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := record
	return &out, nil
}

func (s *InMemoryStore) GetOrCreate(_ context.Context, initial models.OrganizationReputation) (*models.OrganizationReputation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[initial.OrgID]; ok {
		out := record
		return &out, nil
	}
	s.records[initial.OrgID] = initial
	out := initial
	return &out, nil
}

func (s *InMemoryStore) Update(_ context.Context, record models.OrganizationReputation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[record.OrgID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.Version != record.Version {
		return sentinel.ErrConflict
	}
	record.Version++
	s.records[record.OrgID] = record
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.OrganizationReputation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.OrganizationReputation, 0, len(s.records))
	for _, record := range s.records {
		r := record
		out = append(out, &r)
	}
	return out, nil
}
