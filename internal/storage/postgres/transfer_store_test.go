package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
)

const testContract = "itlx.brainstems.testnet"

func testTransfer(id string, height int64, index int) *domain.TransferRecord {
	return &domain.TransferRecord{
		TransferID:  id,
		Contract:    testContract,
		Kind:        domain.EventTransfer,
		FromAccount: ptr("alice.testnet"),
		ToAccount:   ptr("bob.testnet"),
		Amount:      "1000000000000000000000000",
		BlockHeight: height,
		ReceiptID:   "receipt-" + id,
		EventIndex:  index,
		Timestamp:   height * 1000,
		CreatedAt:   height * 1000,
	}
}

func TestTransferStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	ctx := context.Background()

	transfer := testTransfer("pg-t1", 100, 0)
	transfer.Memo = ptr("treasury top-up")

	err := store.Insert(ctx, transfer)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "pg-t1")
	require.NoError(t, err)

	assert.Equal(t, transfer.TransferID, retrieved.TransferID)
	assert.Equal(t, transfer.Contract, retrieved.Contract)
	assert.Equal(t, domain.EventTransfer, retrieved.Kind)
	assert.Equal(t, *transfer.FromAccount, *retrieved.FromAccount)
	assert.Equal(t, *transfer.ToAccount, *retrieved.ToAccount)
	assert.Equal(t, transfer.Amount, retrieved.Amount)
	assert.Equal(t, *transfer.Memo, *retrieved.Memo)
	assert.Equal(t, transfer.BlockHeight, retrieved.BlockHeight)
	assert.Equal(t, transfer.EventIndex, retrieved.EventIndex)
	assert.Equal(t, transfer.Timestamp, retrieved.Timestamp)
}

func TestTransferStore_NullableAccounts(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	ctx := context.Background()

	mint := testTransfer("pg-mint", 100, 0)
	mint.Kind = domain.EventMint
	mint.FromAccount = nil

	require.NoError(t, store.Insert(ctx, mint))

	retrieved, err := store.GetByID(ctx, "pg-mint")
	require.NoError(t, err)
	assert.Nil(t, retrieved.FromAccount)
	assert.Equal(t, "bob.testnet", *retrieved.ToAccount)
	assert.Nil(t, retrieved.Memo)
}

func TestTransferStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	ctx := context.Background()

	transfer := testTransfer("pg-dup", 100, 0)
	require.NoError(t, store.Insert(ctx, transfer))

	err := store.Insert(ctx, transfer)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTransferStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTransferStore_InsertBulkRollback(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testTransfer("pg-b1", 100, 0)))

	batch := []*domain.TransferRecord{
		testTransfer("pg-b2", 101, 0),
		testTransfer("pg-b1", 100, 0), // duplicate
	}
	err := store.InsertBulk(ctx, batch)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The transaction must have rolled back the whole batch.
	_, err = store.GetByID(ctx, "pg-b2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTransferStore_GetByContractChainOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	ctx := context.Background()

	a := testTransfer("pg-o2", 100, 1)
	b := testTransfer("pg-o1", 100, 0)
	a.ReceiptID = "receipt-shared"
	b.ReceiptID = "receipt-shared"
	c := testTransfer("pg-o3", 101, 0)

	require.NoError(t, store.InsertBulk(ctx, []*domain.TransferRecord{c, a, b}))

	result, err := store.GetByContract(ctx, testContract)
	require.NoError(t, err)
	require.Len(t, result, 3)

	assert.Equal(t, "pg-o1", result[0].TransferID)
	assert.Equal(t, "pg-o2", result[1].TransferID)
	assert.Equal(t, "pg-o3", result[2].TransferID)
}

func TestTransferStore_GetByAccount(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	ctx := context.Background()

	in := testTransfer("pg-a1", 100, 0)
	in.FromAccount = ptr("carol.testnet")
	in.ToAccount = ptr("alice.testnet")
	out := testTransfer("pg-a2", 101, 0) // alice -> bob
	unrelated := testTransfer("pg-a3", 102, 0)
	unrelated.FromAccount = ptr("carol.testnet")
	unrelated.ToAccount = ptr("dave.testnet")

	require.NoError(t, store.InsertBulk(ctx, []*domain.TransferRecord{in, out, unrelated}))

	result, err := store.GetByAccount(ctx, testContract, "alice.testnet")
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "pg-a1", result[0].TransferID)
	assert.Equal(t, "pg-a2", result[1].TransferID)
}

func TestTransferStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTransferStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.TransferRecord{
		testTransfer("pg-r1", 1, 0), // ts 1000
		testTransfer("pg-r2", 2, 0), // ts 2000
		testTransfer("pg-r3", 3, 0), // ts 3000
	}))

	result, err := store.GetByTimeRange(ctx, testContract, 1000, 2000)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "pg-r1", result[0].TransferID)
	assert.Equal(t, "pg-r2", result[1].TransferID)
}
