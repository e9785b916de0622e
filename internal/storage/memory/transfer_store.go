// Package memory provides in-memory store implementations, used by
// tests and by the server's storage-free mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
)

// TransferStore is an in-memory implementation of storage.TransferStore.
type TransferStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransferRecord // keyed by transfer_id
}

// NewTransferStore creates a new in-memory transfer store.
func NewTransferStore() *TransferStore {
	return &TransferStore{
		data: make(map[string]*domain.TransferRecord),
	}
}

// Insert adds a new transfer. Returns ErrDuplicateKey if transfer_id exists.
func (s *TransferStore) Insert(_ context.Context, t *domain.TransferRecord) error {
	if t == nil || t.TransferID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TransferID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	recordCopy := *t
	s.data[t.TransferID] = &recordCopy
	return nil
}

// InsertBulk adds multiple transfers atomically. Fails entire batch on any duplicate.
func (s *TransferStore) InsertBulk(_ context.Context, transfers []*domain.TransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range transfers {
		if t == nil || t.TransferID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.TransferID]; exists {
			return storage.ErrDuplicateKey
		}
	}

	for _, t := range transfers {
		recordCopy := *t
		s.data[t.TransferID] = &recordCopy
	}
	return nil
}

// GetByID retrieves a transfer by its ID. Returns ErrNotFound if not exists.
func (s *TransferStore) GetByID(_ context.Context, transferID string) (*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[transferID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *t
	return &recordCopy, nil
}

// GetByContract retrieves all transfers for a contract in chain order.
func (s *TransferStore) GetByContract(_ context.Context, contract string) ([]*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferRecord
	for _, t := range s.data {
		if t.Contract == contract {
			recordCopy := *t
			result = append(result, &recordCopy)
		}
	}

	sortChainOrder(result)
	return result, nil
}

// GetByAccount retrieves all transfers touching an account in chain order.
func (s *TransferStore) GetByAccount(_ context.Context, contract, account string) ([]*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferRecord
	for _, t := range s.data {
		if t.Contract != contract {
			continue
		}
		if (t.FromAccount != nil && *t.FromAccount == account) ||
			(t.ToAccount != nil && *t.ToAccount == account) {
			recordCopy := *t
			result = append(result, &recordCopy)
		}
	}

	sortChainOrder(result)
	return result, nil
}

// GetByTimeRange retrieves transfers for a contract within [start, end] (inclusive, ms).
func (s *TransferStore) GetByTimeRange(_ context.Context, contract string, start, end int64) ([]*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferRecord
	for _, t := range s.data {
		if t.Contract == contract && t.Timestamp >= start && t.Timestamp <= end {
			recordCopy := *t
			result = append(result, &recordCopy)
		}
	}

	sortChainOrder(result)
	return result, nil
}

// sortChainOrder sorts by (block_height, receipt_id, event_index) ASC.
func sortChainOrder(transfers []*domain.TransferRecord) {
	sort.Slice(transfers, func(i, j int) bool {
		a, b := transfers[i], transfers[j]
		if a.BlockHeight != b.BlockHeight {
			return a.BlockHeight < b.BlockHeight
		}
		if a.ReceiptID != b.ReceiptID {
			return a.ReceiptID < b.ReceiptID
		}
		return a.EventIndex < b.EventIndex
	})
}

// Verify interface compliance at compile time.
var _ storage.TransferStore = (*TransferStore)(nil)
