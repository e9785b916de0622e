package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
)

// MetadataSnapshotStore implements storage.MetadataSnapshotStore using PostgreSQL.
type MetadataSnapshotStore struct {
	pool *Pool
}

// NewMetadataSnapshotStore creates a new MetadataSnapshotStore.
func NewMetadataSnapshotStore(pool *Pool) *MetadataSnapshotStore {
	return &MetadataSnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MetadataSnapshotStore = (*MetadataSnapshotStore)(nil)

const snapshotColumns = `
	contract, block_height, spec, name, symbol, decimals,
	reference, reference_hash, fetched_at, created_at
`

// Insert adds a new snapshot. Returns ErrDuplicateKey on repeat observation.
func (s *MetadataSnapshotStore) Insert(ctx context.Context, snap *domain.MetadataSnapshot) error {
	query := `
		INSERT INTO metadata_snapshots (
			contract, block_height, spec, name, symbol, decimals,
			reference, reference_hash, fetched_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		snap.Contract, snap.BlockHeight, snap.Spec, snap.Name, snap.Symbol,
		snap.Decimals, snap.Reference, snap.ReferenceHash, snap.FetchedAt, snap.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert metadata snapshot: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent snapshot for a contract.
func (s *MetadataSnapshotStore) GetLatest(ctx context.Context, contract string) (*domain.MetadataSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM metadata_snapshots
		WHERE contract = $1
		ORDER BY fetched_at DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, contract)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest metadata snapshot: %w", err)
	}
	return snap, nil
}

// ListByContract retrieves all snapshots for a contract, ordered by fetched_at ASC.
func (s *MetadataSnapshotStore) ListByContract(ctx context.Context, contract string) ([]*domain.MetadataSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM metadata_snapshots
		WHERE contract = $1
		ORDER BY fetched_at ASC
	`

	rows, err := s.pool.Query(ctx, query, contract)
	if err != nil {
		return nil, fmt.Errorf("list metadata snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.MetadataSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snapshots, nil
}

// scanSnapshot scans a single row into a MetadataSnapshot.
func scanSnapshot(row pgx.Row) (*domain.MetadataSnapshot, error) {
	var snap domain.MetadataSnapshot
	err := row.Scan(
		&snap.Contract,
		&snap.BlockHeight,
		&snap.Spec,
		&snap.Name,
		&snap.Symbol,
		&snap.Decimals,
		&snap.Reference,
		&snap.ReferenceHash,
		&snap.FetchedAt,
		&snap.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
