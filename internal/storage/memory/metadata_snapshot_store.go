package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
)

// MetadataSnapshotStore is an in-memory implementation of
// storage.MetadataSnapshotStore.
type MetadataSnapshotStore struct {
	mu   sync.RWMutex
	data map[snapshotKey]*domain.MetadataSnapshot
}

type snapshotKey struct {
	contract  string
	fetchedAt int64
}

// NewMetadataSnapshotStore creates a new in-memory snapshot store.
func NewMetadataSnapshotStore() *MetadataSnapshotStore {
	return &MetadataSnapshotStore{
		data: make(map[snapshotKey]*domain.MetadataSnapshot),
	}
}

// Insert adds a new snapshot. Returns ErrDuplicateKey when the contract
// already has a snapshot at the same fetched_at.
func (s *MetadataSnapshotStore) Insert(_ context.Context, snap *domain.MetadataSnapshot) error {
	if snap == nil || snap.Contract == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := snapshotKey{contract: snap.Contract, fetchedAt: snap.FetchedAt}
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	snapCopy := *snap
	s.data[key] = &snapCopy
	return nil
}

// GetLatest retrieves the most recent snapshot for a contract.
func (s *MetadataSnapshotStore) GetLatest(_ context.Context, contract string) (*domain.MetadataSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.MetadataSnapshot
	for _, snap := range s.data {
		if snap.Contract != contract {
			continue
		}
		if latest == nil || snap.FetchedAt > latest.FetchedAt {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	snapCopy := *latest
	return &snapCopy, nil
}

// ListByContract retrieves all snapshots for a contract, ordered by fetched_at ASC.
func (s *MetadataSnapshotStore) ListByContract(_ context.Context, contract string) ([]*domain.MetadataSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MetadataSnapshot
	for _, snap := range s.data {
		if snap.Contract == contract {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FetchedAt < result[j].FetchedAt
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.MetadataSnapshotStore = (*MetadataSnapshotStore)(nil)
