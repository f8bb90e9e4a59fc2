package snapshot

import (
	"context"
	"sync"

	"reservas/internal/core"
	"reservas/internal/ledger"
)

// MemoryStore keeps the last saved state in memory only. Used by tests and
// by the memory backend, where losing state on restart is acceptable.
type MemoryStore struct {
	mu    sync.Mutex
	state map[string][]core.Booking
}

var _ ledger.Snapshotter = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (map[string][]core.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *MemoryStore) Save(_ context.Context, state map[string][]core.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	return nil
}
