package consistency

import (
	"context"
	"sync"

	id "calibra/pkg/domain"
	"calibra/pkg/platform/sentinel"
)

// Store persists per-org agreement histories. Save is conditional on
// Version, matching the reputation store's optimistic-concurrency contract.
type Store interface {
	// Get returns the org's record, or an empty record when none exists
	// yet; a fresh org starts with zero samples, not an error.
	Get(ctx context.Context, orgID id.OrgID) (*Record, error)
	// Save persists the record when the stored version still matches
	// record.Version. sentinel.ErrConflict on version miss.
	Save(ctx context.Context, record Record) error
}

// InMemoryStore keeps agreement histories in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.OrgID]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.OrgID]Record)}
}

func (s *InMemoryStore) Get(_ context.Context, orgID id.OrgID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[orgID]
	if !ok {
		return &Record{OrgID: orgID}, nil
	}
	out := Record{OrgID: record.OrgID, Version: record.Version}
	out.Samples = append(out.Samples, record.Samples...)
	return &out, nil
}

func (s *InMemoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[record.OrgID]
	if ok && existing.Version != record.Version {
		return sentinel.ErrConflict
	}
	if !ok && record.Version != 0 {
		return sentinel.ErrConflict
	}
	stored := Record{OrgID: record.OrgID, Version: record.Version + 1}
	stored.Samples = append(stored.Samples, record.Samples...)
	s.records[record.OrgID] = stored
	return nil
}
