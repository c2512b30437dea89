// Package lock provides per-key mutual exclusion for post-round updates.
package lock

import (
	"context"
	"sync"
)

// KeyedMutex serializes work per key within a single process. Suitable for
// single-instance deployments and tests; multi-instance deployments use
// the Redis locker.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Lock blocks until the key is held or ctx is done.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return func() {
			e.mu.Unlock()
			m.release(key, e)
		}, nil
	case <-ctx.Done():
		// The goroutine still acquires eventually; release immediately
		// so the entry cannot leak.
		go func() {
			<-acquired
			e.mu.Unlock()
			m.release(key, e)
		}()
		return nil, ctx.Err()
	}
}

func (m *KeyedMutex) release(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}
