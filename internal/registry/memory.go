package registry

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"tokenswap/internal/model"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu    sync.RWMutex
	pools map[model.AccountID]model.Pool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pools: make(map[model.AccountID]model.Pool)}
}

func (s *MemoryStore) InsertPool(_ context.Context, pool model.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pools[pool.Address]; exists {
		return ErrAlreadyExists
	}
	s.pools[pool.Address] = pool
	return nil
}

func (s *MemoryStore) GetPool(_ context.Context, address model.AccountID) (model.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool, ok := s.pools[address]
	if !ok {
		return model.Pool{}, ErrNotFound
	}
	return pool, nil
}

// Pools returns every record ordered by address.
func (s *MemoryStore) Pools() []model.Pool {
	s.mu.RLock()
	out := make([]model.Pool, 0, len(s.pools))
	for _, pool := range s.pools {
		out = append(out, pool)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out
}

// Restore replaces the store contents, used when loading a state file.
func (s *MemoryStore) Restore(pools []model.Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pools = make(map[model.AccountID]model.Pool, len(pools))
	for _, pool := range pools {
		s.pools[pool.Address] = pool
	}
}
