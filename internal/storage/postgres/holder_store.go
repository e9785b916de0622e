package postgres

import (
	"context"
	"fmt"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
)

// HolderStore implements storage.HolderStore using PostgreSQL.
type HolderStore struct {
	pool *Pool
}

// NewHolderStore creates a new HolderStore.
func NewHolderStore(pool *Pool) *HolderStore {
	return &HolderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HolderStore = (*HolderStore)(nil)

// Upsert inserts or replaces the balance row. A zero balance deletes it.
func (s *HolderStore) Upsert(ctx context.Context, h *domain.HolderBalance) error {
	if h == nil || h.Contract == "" || h.AccountID == "" {
		return storage.ErrInvalidInput
	}

	if h.Balance == "" || h.Balance == "0" {
		_, err := s.pool.Exec(ctx,
			`DELETE FROM holders WHERE contract = $1 AND account_id = $2`,
			h.Contract, h.AccountID,
		)
		if err != nil {
			return fmt.Errorf("delete holder: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO holders (contract, account_id, balance, block_height, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (contract, account_id) DO UPDATE SET
			balance = EXCLUDED.balance,
			block_height = EXCLUDED.block_height,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		h.Contract, h.AccountID, h.Balance, h.BlockHeight, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert holder: %w", err)
	}
	return nil
}

// Get retrieves the balance row for an account. Returns ErrNotFound if not exists.
func (s *HolderStore) Get(ctx context.Context, contract, account string) (*domain.HolderBalance, error) {
	query := `
		SELECT contract, account_id, balance, block_height, updated_at
		FROM holders
		WHERE contract = $1 AND account_id = $2
	`

	var h domain.HolderBalance
	err := s.pool.QueryRow(ctx, query, contract, account).Scan(
		&h.Contract, &h.AccountID, &h.Balance, &h.BlockHeight, &h.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get holder: %w", err)
	}
	return &h, nil
}

// ListByContract retrieves all holders for a contract, ordered by account ASC.
func (s *HolderStore) ListByContract(ctx context.Context, contract string) ([]*domain.HolderBalance, error) {
	query := `
		SELECT contract, account_id, balance, block_height, updated_at
		FROM holders
		WHERE contract = $1
		ORDER BY account_id ASC
	`

	rows, err := s.pool.Query(ctx, query, contract)
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}
	defer rows.Close()

	var holders []*domain.HolderBalance
	for rows.Next() {
		var h domain.HolderBalance
		if err := rows.Scan(&h.Contract, &h.AccountID, &h.Balance, &h.BlockHeight, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan holder row: %w", err)
		}
		holders = append(holders, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holder rows: %w", err)
	}
	return holders, nil
}
