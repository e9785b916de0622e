package storage

import (
	"context"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
)

// TransferStore provides access to token_transfers storage.
type TransferStore interface {
	// Insert adds a new transfer. Returns ErrDuplicateKey if transfer_id exists.
	Insert(ctx context.Context, t *domain.TransferRecord) error

	// InsertBulk adds multiple transfers atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, transfers []*domain.TransferRecord) error

	// GetByID retrieves a transfer by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, transferID string) (*domain.TransferRecord, error)

	// GetByContract retrieves all transfers for a contract, ordered by
	// (block_height, receipt_id, event_index) ASC.
	GetByContract(ctx context.Context, contract string) ([]*domain.TransferRecord, error)

	// GetByAccount retrieves all transfers where the account is sender or
	// receiver, ordered by (block_height, receipt_id, event_index) ASC.
	GetByAccount(ctx context.Context, contract, account string) ([]*domain.TransferRecord, error)

	// GetByTimeRange retrieves transfers for a contract within [start, end] (inclusive, ms).
	GetByTimeRange(ctx context.Context, contract string, start, end int64) ([]*domain.TransferRecord, error)
}

// HolderStore provides access to token_holders storage.
type HolderStore interface {
	// Upsert inserts or replaces the balance row for (contract, account).
	// A zero balance removes the row: unregistered and drained accounts
	// are not holders.
	Upsert(ctx context.Context, h *domain.HolderBalance) error

	// Get retrieves the balance row for an account. Returns ErrNotFound if not exists.
	Get(ctx context.Context, contract, account string) (*domain.HolderBalance, error)

	// ListByContract retrieves all holders for a contract, ordered by account ASC.
	ListByContract(ctx context.Context, contract string) ([]*domain.HolderBalance, error)
}

// DeploymentStore provides access to deployment_runs storage.
type DeploymentStore interface {
	// Insert adds a new deployment run. Returns ErrDuplicateKey if deployment_id exists.
	Insert(ctx context.Context, d *domain.DeploymentRecord) error

	// Update replaces the stored record for d.DeploymentID. Returns
	// ErrNotFound if the run was never inserted.
	Update(ctx context.Context, d *domain.DeploymentRecord) error

	// GetByID retrieves a deployment run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, deploymentID string) (*domain.DeploymentRecord, error)

	// ListByToken retrieves all runs for a token account, ordered by started_at ASC.
	ListByToken(ctx context.Context, tokenAccount string) ([]*domain.DeploymentRecord, error)
}

// MetadataSnapshotStore provides access to metadata_snapshots storage.
type MetadataSnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if (contract, fetched_at) exists.
	Insert(ctx context.Context, s *domain.MetadataSnapshot) error

	// GetLatest retrieves the most recent snapshot for a contract.
	// Returns ErrNotFound if no snapshot exists.
	GetLatest(ctx context.Context, contract string) (*domain.MetadataSnapshot, error)

	// ListByContract retrieves all snapshots for a contract, ordered by fetched_at ASC.
	ListByContract(ctx context.Context, contract string) ([]*domain.MetadataSnapshot, error)
}

// TransferTimeseriesStore provides access to transfer_timeseries storage.
type TransferTimeseriesStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (contract, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.TransferTimeseriesPoint) error

	// GetByContract retrieves all points for a contract, ordered by timestamp ASC.
	GetByContract(ctx context.Context, contract string) ([]*domain.TransferTimeseriesPoint, error)

	// GetByTimeRange retrieves points for a contract within [start, end] (inclusive, ms).
	GetByTimeRange(ctx context.Context, contract string, start, end int64) ([]*domain.TransferTimeseriesPoint, error)
}
