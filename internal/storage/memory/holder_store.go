package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
)

// HolderStore is an in-memory implementation of storage.HolderStore.
type HolderStore struct {
	mu   sync.RWMutex
	data map[holderKey]*domain.HolderBalance
}

type holderKey struct {
	contract string
	account  string
}

// NewHolderStore creates a new in-memory holder store.
func NewHolderStore() *HolderStore {
	return &HolderStore{
		data: make(map[holderKey]*domain.HolderBalance),
	}
}

// Upsert inserts or replaces the balance row. A zero balance removes it.
func (s *HolderStore) Upsert(_ context.Context, h *domain.HolderBalance) error {
	if h == nil || h.Contract == "" || h.AccountID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := holderKey{contract: h.Contract, account: h.AccountID}
	if h.Balance == "" || h.Balance == "0" {
		delete(s.data, key)
		return nil
	}

	balanceCopy := *h
	s.data[key] = &balanceCopy
	return nil
}

// Get retrieves the balance row for an account. Returns ErrNotFound if not exists.
func (s *HolderStore) Get(_ context.Context, contract, account string) (*domain.HolderBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.data[holderKey{contract: contract, account: account}]
	if !exists {
		return nil, storage.ErrNotFound
	}

	balanceCopy := *h
	return &balanceCopy, nil
}

// ListByContract retrieves all holders for a contract, ordered by account ASC.
func (s *HolderStore) ListByContract(_ context.Context, contract string) ([]*domain.HolderBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HolderBalance
	for _, h := range s.data {
		if h.Contract == contract {
			balanceCopy := *h
			result = append(result, &balanceCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].AccountID < result[j].AccountID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.HolderStore = (*HolderStore)(nil)
