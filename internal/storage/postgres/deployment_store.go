package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
)

// DeploymentStore implements storage.DeploymentStore using PostgreSQL.
// Steps are stored as a JSONB column; runs are few and always read whole.
type DeploymentStore struct {
	pool *Pool
}

// NewDeploymentStore creates a new DeploymentStore.
func NewDeploymentStore(pool *Pool) *DeploymentStore {
	return &DeploymentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DeploymentStore = (*DeploymentStore)(nil)

// Insert adds a new deployment run. Returns ErrDuplicateKey if deployment_id exists.
func (s *DeploymentStore) Insert(ctx context.Context, d *domain.DeploymentRecord) error {
	steps, err := json.Marshal(d.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	query := `
		INSERT INTO deployments (
			deployment_id, network, token_account, owner_account, total_supply,
			wasm_sha256, steps, status, started_at, finished_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = s.pool.Exec(ctx, query,
		d.DeploymentID, d.Network, d.TokenAccount, d.OwnerAccount, d.TotalSupply,
		d.WasmSHA256, steps, string(d.Status), d.StartedAt, d.FinishedAt, d.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

// Update replaces the stored record. Returns ErrNotFound if never inserted.
func (s *DeploymentStore) Update(ctx context.Context, d *domain.DeploymentRecord) error {
	steps, err := json.Marshal(d.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	query := `
		UPDATE deployments SET
			steps = $2, status = $3, finished_at = $4
		WHERE deployment_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		d.DeploymentID, steps, string(d.Status), d.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update deployment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a deployment run. Returns ErrNotFound if not exists.
func (s *DeploymentStore) GetByID(ctx context.Context, deploymentID string) (*domain.DeploymentRecord, error) {
	query := `
		SELECT deployment_id, network, token_account, owner_account, total_supply,
		       wasm_sha256, steps, status, started_at, finished_at, created_at
		FROM deployments
		WHERE deployment_id = $1
	`

	row := s.pool.QueryRow(ctx, query, deploymentID)
	d, err := scanDeployment(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get deployment by id: %w", err)
	}
	return d, nil
}

// ListByToken retrieves all runs for a token account, ordered by started_at ASC.
func (s *DeploymentStore) ListByToken(ctx context.Context, tokenAccount string) ([]*domain.DeploymentRecord, error) {
	query := `
		SELECT deployment_id, network, token_account, owner_account, total_supply,
		       wasm_sha256, steps, status, started_at, finished_at, created_at
		FROM deployments
		WHERE token_account = $1
		ORDER BY started_at ASC, deployment_id ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenAccount)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	defer rows.Close()

	var deployments []*domain.DeploymentRecord
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment row: %w", err)
		}
		deployments = append(deployments, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployment rows: %w", err)
	}
	return deployments, nil
}

// scanDeployment scans a single row into a DeploymentRecord.
func scanDeployment(row pgx.Row) (*domain.DeploymentRecord, error) {
	var d domain.DeploymentRecord
	var statusStr string
	var steps []byte

	err := row.Scan(
		&d.DeploymentID,
		&d.Network,
		&d.TokenAccount,
		&d.OwnerAccount,
		&d.TotalSupply,
		&d.WasmSHA256,
		&steps,
		&statusStr,
		&d.StartedAt,
		&d.FinishedAt,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Status = domain.DeploymentStatus(statusStr)
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &d.Steps); err != nil {
			return nil, fmt.Errorf("unmarshal steps: %w", err)
		}
	}
	return &d, nil
}
