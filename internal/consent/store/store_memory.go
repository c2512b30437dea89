// Package store persists consent grants.
package store

import (
	"context"
	"sync"
	"time"

	"calibra/internal/consent/models"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// Store is the consent persistence contract.
type Store interface {
	// Grant records an active grant; re-granting a revoked scope creates
	// a fresh active record. sentinel.ErrConflict if already active.
	Grant(ctx context.Context, record models.ConsentRecord) error
	// Revoke marks the active grant revoked. sentinel.ErrNotFound when
	// no active grant exists.
	Revoke(ctx context.Context, orgID id.OrgID, scope id.ConsentScope, at time.Time) error
	// HasActive reports whether the org currently holds the scope.
	HasActive(ctx context.Context, orgID id.OrgID, scope id.ConsentScope) (bool, error)
	ListByOrg(ctx context.Context, orgID id.OrgID) ([]models.ConsentRecord, error)
}

type key struct {
	orgID id.OrgID
	scope id.ConsentScope
}

// InMemoryStore keeps consent grants in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	active  map[key]models.ConsentRecord
	history []models.ConsentRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{active: make(map[key]models.ConsentRecord)}
}

func (s *InMemoryStore) Grant(_ context.Context, record models.ConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{record.OrgID, record.Scope}
	if _, ok := s.active[k]; ok {
		return sentinel.ErrConflict
	}
	record.RevokedAt = nil
	s.active[k] = record
	return nil
}

func (s *InMemoryStore) Revoke(_ context.Context, orgID id.OrgID, scope id.ConsentScope, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{orgID, scope}
	record, ok := s.active[k]
	if !ok {
		return sentinel.ErrNotFound
	}
	revokedAt := at
	record.RevokedAt = &revokedAt
	s.history = append(s.history, record)
	delete(s.active, k)
	return nil
}

func (s *InMemoryStore) HasActive(_ context.Context, orgID id.OrgID, scope id.ConsentScope) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.active[key{orgID, scope}]
	return ok, nil
}

func (s *InMemoryStore) ListByOrg(_ context.Context, orgID id.OrgID) ([]models.ConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ConsentRecord
	for k, record := range s.active {
		if k.orgID == orgID {
			out = append(out, record)
		}
	}
	for _, record := range s.history {
		if record.OrgID == orgID {
			out = append(out, record)
		}
	}
	return out, nil
}
