package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
)

// TransferStore implements storage.TransferStore using PostgreSQL.
type TransferStore struct {
	pool *Pool
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(pool *Pool) *TransferStore {
	return &TransferStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

const transferColumns = `
	transfer_id, contract, kind, from_account, to_account, amount, memo,
	block_height, receipt_id, event_index, ts_ms, created_at
`

// Insert adds a new transfer. Returns ErrDuplicateKey if transfer_id exists.
func (s *TransferStore) Insert(ctx context.Context, t *domain.TransferRecord) error {
	query := `
		INSERT INTO transfers (
			transfer_id, contract, kind, from_account, to_account, amount, memo,
			block_height, receipt_id, event_index, ts_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TransferID,
		t.Contract,
		string(t.Kind),
		t.FromAccount,
		t.ToAccount,
		t.Amount,
		t.Memo,
		t.BlockHeight,
		t.ReceiptID,
		t.EventIndex,
		t.Timestamp,
		t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// InsertBulk adds multiple transfers in one transaction. Fails the
// entire batch on any duplicate.
func (s *TransferStore) InsertBulk(ctx context.Context, transfers []*domain.TransferRecord) error {
	if len(transfers) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transfer batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range transfers {
		_, err := tx.Exec(ctx, `
			INSERT INTO transfers (
				transfer_id, contract, kind, from_account, to_account, amount, memo,
				block_height, receipt_id, event_index, ts_ms, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			t.TransferID, t.Contract, string(t.Kind), t.FromAccount, t.ToAccount,
			t.Amount, t.Memo, t.BlockHeight, t.ReceiptID, t.EventIndex,
			t.Timestamp, t.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert transfer %s: %w", t.TransferID, err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a transfer by its ID. Returns ErrNotFound if not exists.
func (s *TransferStore) GetByID(ctx context.Context, transferID string) (*domain.TransferRecord, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE transfer_id = $1`

	row := s.pool.QueryRow(ctx, query, transferID)
	t, err := scanTransfer(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transfer by id: %w", err)
	}
	return t, nil
}

// GetByContract retrieves all transfers for a contract in chain order.
func (s *TransferStore) GetByContract(ctx context.Context, contract string) ([]*domain.TransferRecord, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE contract = $1
		ORDER BY block_height ASC, receipt_id ASC, event_index ASC
	`

	rows, err := s.pool.Query(ctx, query, contract)
	if err != nil {
		return nil, fmt.Errorf("get transfers by contract: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// GetByAccount retrieves all transfers touching an account in chain order.
func (s *TransferStore) GetByAccount(ctx context.Context, contract, account string) ([]*domain.TransferRecord, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE contract = $1 AND (from_account = $2 OR to_account = $2)
		ORDER BY block_height ASC, receipt_id ASC, event_index ASC
	`

	rows, err := s.pool.Query(ctx, query, contract, account)
	if err != nil {
		return nil, fmt.Errorf("get transfers by account: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// GetByTimeRange retrieves transfers within [start, end] (inclusive, ms).
func (s *TransferStore) GetByTimeRange(ctx context.Context, contract string, start, end int64) ([]*domain.TransferRecord, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE contract = $1 AND ts_ms >= $2 AND ts_ms <= $3
		ORDER BY block_height ASC, receipt_id ASC, event_index ASC
	`

	rows, err := s.pool.Query(ctx, query, contract, start, end)
	if err != nil {
		return nil, fmt.Errorf("get transfers by time range: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// scanTransfer scans a single row into a TransferRecord.
func scanTransfer(row pgx.Row) (*domain.TransferRecord, error) {
	var t domain.TransferRecord
	var kindStr string

	err := row.Scan(
		&t.TransferID,
		&t.Contract,
		&kindStr,
		&t.FromAccount,
		&t.ToAccount,
		&t.Amount,
		&t.Memo,
		&t.BlockHeight,
		&t.ReceiptID,
		&t.EventIndex,
		&t.Timestamp,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Kind = domain.EventKind(kindStr)
	return &t, nil
}

// scanTransfers scans multiple rows into a slice of TransferRecord.
func scanTransfers(rows pgx.Rows) ([]*domain.TransferRecord, error) {
	var transfers []*domain.TransferRecord

	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}
		transfers = append(transfers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}

	return transfers, nil
}
