package store

import (
	"context"
	"sync"
	"time"

	"calibra/internal/noncebind/models"
	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// InMemoryStore keeps bindings in process memory. The single mutex gives
// the same atomicity guarantees the postgres store gets from transactions.
type InMemoryStore struct {
	mu       sync.RWMutex
	byNonce  map[id.Nonce]*models.NonceBinding
	activeBy map[id.OrgID]id.Nonce
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byNonce:  make(map[id.Nonce]*models.NonceBinding),
		activeBy: make(map[id.OrgID]id.Nonce),
	}
}

func (s *InMemoryStore) GetActiveByOrg(_ context.Context, orgID id.OrgID) (*models.NonceBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nonce, ok := s.activeBy[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *s.byNonce[nonce]
	return &out, nil
}

func (s *InMemoryStore) GetByNonce(_ context.Context, nonce id.Nonce) (*models.NonceBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	binding, ok := s.byNonce[nonce]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *binding
	return &out, nil
}

func (s *InMemoryStore) Create(_ context.Context, binding models.NonceBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(binding)
}

func (s *InMemoryStore) createLocked(binding models.NonceBinding) error {
	if _, exists := s.byNonce[binding.Nonce]; exists {
		return sentinel.ErrConflict
	}
	if _, bound := s.activeBy[binding.OrgID]; bound {
		return sentinel.ErrAlreadyBound
	}
	b := binding
	s.byNonce[b.Nonce] = &b
	s.activeBy[b.OrgID] = b.Nonce
	return nil
}

func (s *InMemoryStore) Rotate(_ context.Context, oldNonce id.Nonce, reason string, at time.Time, newBinding models.NonceBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byNonce[oldNonce]
	if !ok {
		return sentinel.ErrNotFound
	}
	if old.RevokedAt != nil {
		return sentinel.ErrRevoked
	}

	revokedAt := at
	old.RevokedAt = &revokedAt
	old.RevokeReason = reason
	delete(s.activeBy, old.OrgID)

	if err := s.createLocked(newBinding); err != nil {
		// Restore the old binding so a failed rotate leaves no half state.
		old.RevokedAt = nil
		old.RevokeReason = ""
		s.activeBy[old.OrgID] = old.Nonce
		return err
	}
	return nil
}

func (s *InMemoryStore) Revoke(_ context.Context, nonce id.Nonce, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	binding, ok := s.byNonce[nonce]
	if !ok {
		return sentinel.ErrNotFound
	}
	if binding.RevokedAt != nil {
		return sentinel.ErrRevoked
	}
	revokedAt := at
	binding.RevokedAt = &revokedAt
	binding.RevokeReason = reason
	delete(s.activeBy, binding.OrgID)
	return nil
}

func (s *InMemoryStore) UsageCount(_ context.Context, nonce id.Nonce) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byNonce[nonce]; ok {
		return 1, nil
	}
	return 0, nil
}
