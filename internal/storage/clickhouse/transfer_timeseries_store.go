package clickhouse

import (
	"context"
	"fmt"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
)

// TransferTimeseriesStore implements storage.TransferTimeseriesStore
// using ClickHouse.
type TransferTimeseriesStore struct {
	conn *Conn
}

// NewTransferTimeseriesStore creates a new TransferTimeseriesStore.
func NewTransferTimeseriesStore(conn *Conn) *TransferTimeseriesStore {
	return &TransferTimeseriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransferTimeseriesStore = (*TransferTimeseriesStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (contract, timestamp_ms). MergeTree does not enforce uniqueness, so
// duplicates are detected with explicit checks before the insert.
func (s *TransferTimeseriesStore) InsertBulk(ctx context.Context, points []*domain.TransferTimeseriesPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		contract    string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		k := key{p.Contract, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.Contract, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transfer_timeseries (
			contract, timestamp_ms, block_height, transfer_count, mint_count, burn_count, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.Contract, uint64(p.TimestampMs), uint64(p.BlockHeight),
			uint32(p.TransferCount), uint32(p.MintCount), uint32(p.BurnCount),
			p.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByContract retrieves all points for a contract, ordered by timestamp ASC.
func (s *TransferTimeseriesStore) GetByContract(ctx context.Context, contract string) ([]*domain.TransferTimeseriesPoint, error) {
	query := `
		SELECT contract, timestamp_ms, block_height, transfer_count, mint_count, burn_count, volume
		FROM transfer_timeseries
		WHERE contract = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, contract)
	if err != nil {
		return nil, fmt.Errorf("query by contract: %w", err)
	}
	defer rows.Close()

	return scanTransferTimeseries(rows)
}

// GetByTimeRange retrieves points within [start, end] (inclusive, ms).
func (s *TransferTimeseriesStore) GetByTimeRange(ctx context.Context, contract string, start, end int64) ([]*domain.TransferTimeseriesPoint, error) {
	query := `
		SELECT contract, timestamp_ms, block_height, transfer_count, mint_count, burn_count, volume
		FROM transfer_timeseries
		WHERE contract = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, contract, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTransferTimeseries(rows)
}

// exists checks if a point with the given key exists.
func (s *TransferTimeseriesStore) exists(ctx context.Context, contract string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM transfer_timeseries
		WHERE contract = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, contract, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanTransferTimeseries scans multiple rows.
func scanTransferTimeseries(rows chRows) ([]*domain.TransferTimeseriesPoint, error) {
	var points []*domain.TransferTimeseriesPoint

	for rows.Next() {
		var p domain.TransferTimeseriesPoint
		var timestampMs, blockHeight uint64
		var transferCount, mintCount, burnCount uint32

		err := rows.Scan(
			&p.Contract, &timestampMs, &blockHeight,
			&transferCount, &mintCount, &burnCount, &p.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer timeseries row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		p.BlockHeight = int64(blockHeight)
		p.TransferCount = int(transferCount)
		p.MintCount = int(mintCount)
		p.BurnCount = int(burnCount)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer timeseries rows: %w", err)
	}

	return points, nil
}
