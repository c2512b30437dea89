package store

import (
	"context"
	"sync"
	"time"

	"calibra/internal/identity/models"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// InMemoryStore keeps identities in process memory.
type InMemoryStore struct {
	mu         sync.RWMutex
	identities map[id.OrgID]models.OrganizationIdentity
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{identities: make(map[id.OrgID]models.OrganizationIdentity)}
}

func (s *InMemoryStore) Get(_ context.Context, orgID id.OrgID) (*models.OrganizationIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := identity
	return &out, nil
}

func (s *InMemoryStore) Save(_ context.Context, identity models.OrganizationIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.identities[identity.OrgID]; ok && existing.Active() {
		return sentinel.ErrConflict
	}
	s.identities[identity.OrgID] = identity
	return nil
}

func (s *InMemoryStore) Revoke(_ context.Context, orgID id.OrgID, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[orgID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if identity.Revoked {
		return sentinel.ErrRevoked
	}
	identity.Revoked = true
	identity.RevokedAt = &at
	identity.RevokeReason = reason
	s.identities[orgID] = identity
	return nil
}
