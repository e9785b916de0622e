package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
)

// DeploymentStore is an in-memory implementation of storage.DeploymentStore.
type DeploymentStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DeploymentRecord // keyed by deployment_id
}

// NewDeploymentStore creates a new in-memory deployment store.
func NewDeploymentStore() *DeploymentStore {
	return &DeploymentStore{
		data: make(map[string]*domain.DeploymentRecord),
	}
}

// Insert adds a new deployment run. Returns ErrDuplicateKey if deployment_id exists.
func (s *DeploymentStore) Insert(_ context.Context, d *domain.DeploymentRecord) error {
	if d == nil || d.DeploymentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.DeploymentID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[d.DeploymentID] = copyDeployment(d)
	return nil
}

// Update replaces the stored record. Returns ErrNotFound if never inserted.
func (s *DeploymentStore) Update(_ context.Context, d *domain.DeploymentRecord) error {
	if d == nil || d.DeploymentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.DeploymentID]; !exists {
		return storage.ErrNotFound
	}

	s.data[d.DeploymentID] = copyDeployment(d)
	return nil
}

// GetByID retrieves a deployment run. Returns ErrNotFound if not exists.
func (s *DeploymentStore) GetByID(_ context.Context, deploymentID string) (*domain.DeploymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[deploymentID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyDeployment(d), nil
}

// ListByToken retrieves all runs for a token account, ordered by started_at ASC.
func (s *DeploymentStore) ListByToken(_ context.Context, tokenAccount string) ([]*domain.DeploymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DeploymentRecord
	for _, d := range s.data {
		if d.TokenAccount == tokenAccount {
			result = append(result, copyDeployment(d))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt != result[j].StartedAt {
			return result[i].StartedAt < result[j].StartedAt
		}
		return result[i].DeploymentID < result[j].DeploymentID
	})

	return result, nil
}

// copyDeployment deep-copies a record; the Steps slice would otherwise
// be shared with the caller.
func copyDeployment(d *domain.DeploymentRecord) *domain.DeploymentRecord {
	recordCopy := *d
	recordCopy.Steps = append([]domain.DeploymentStep(nil), d.Steps...)
	return &recordCopy
}

// Verify interface compliance at compile time.
var _ storage.DeploymentStore = (*DeploymentStore)(nil)
