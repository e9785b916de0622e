package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
)

// TransferTimeseriesStore is an in-memory implementation of
// storage.TransferTimeseriesStore.
type TransferTimeseriesStore struct {
	mu   sync.RWMutex
	data map[timeseriesKey]*domain.TransferTimeseriesPoint
}

type timeseriesKey struct {
	contract    string
	timestampMs int64
}

// NewTransferTimeseriesStore creates a new in-memory timeseries store.
func NewTransferTimeseriesStore() *TransferTimeseriesStore {
	return &TransferTimeseriesStore{
		data: make(map[timeseriesKey]*domain.TransferTimeseriesPoint),
	}
}

// InsertBulk adds multiple points. Fails entire batch on duplicate (contract, timestamp_ms).
func (s *TransferTimeseriesStore) InsertBulk(_ context.Context, points []*domain.TransferTimeseriesPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p == nil || p.Contract == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[timeseriesKey{contract: p.Contract, timestampMs: p.TimestampMs}]; exists {
			return storage.ErrDuplicateKey
		}
	}

	for _, p := range points {
		pointCopy := *p
		s.data[timeseriesKey{contract: p.Contract, timestampMs: p.TimestampMs}] = &pointCopy
	}
	return nil
}

// GetByContract retrieves all points for a contract, ordered by timestamp ASC.
func (s *TransferTimeseriesStore) GetByContract(_ context.Context, contract string) ([]*domain.TransferTimeseriesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferTimeseriesPoint
	for _, p := range s.data {
		if p.Contract == contract {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sortByTimestamp(result)
	return result, nil
}

// GetByTimeRange retrieves points within [start, end] (inclusive, ms).
func (s *TransferTimeseriesStore) GetByTimeRange(_ context.Context, contract string, start, end int64) ([]*domain.TransferTimeseriesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferTimeseriesPoint
	for _, p := range s.data {
		if p.Contract == contract && p.TimestampMs >= start && p.TimestampMs <= end {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sortByTimestamp(result)
	return result, nil
}

func sortByTimestamp(points []*domain.TransferTimeseriesPoint) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].TimestampMs < points[j].TimestampMs
	})
}

// Verify interface compliance at compile time.
var _ storage.TransferTimeseriesStore = (*TransferTimeseriesStore)(nil)
