package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
)

func testDeployment(id string, startedAt int64) *domain.DeploymentRecord {
	return &domain.DeploymentRecord{
		DeploymentID: id,
		Network:      "testnet",
		TokenAccount: testContract,
		OwnerAccount: "brainstems.testnet",
		TotalSupply:  "1000000000000000000000000000000000",
		Status:       domain.DeploymentRunning,
		StartedAt:    startedAt,
		CreatedAt:    startedAt,
	}
}

func TestDeploymentStore_InsertAndGet(t *testing.T) {
	store := NewDeploymentStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testDeployment("d1", 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	d, err := store.GetByID(ctx, "d1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if d.Status != domain.DeploymentRunning {
		t.Errorf("Status = %s", d.Status)
	}
}

func TestDeploymentStore_DuplicateKey(t *testing.T) {
	store := NewDeploymentStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testDeployment("d1", 1000)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, testDeployment("d1", 2000))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestDeploymentStore_Update(t *testing.T) {
	store := NewDeploymentStore()
	ctx := context.Background()

	record := testDeployment("d1", 1000)
	if err := store.Insert(ctx, record); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	record.Status = domain.DeploymentSucceeded
	record.FinishedAt = 2000
	record.Steps = []domain.DeploymentStep{
		{Name: "create-account", Status: "ok"},
		{Name: "deploy", Status: "ok"},
		{Name: "init", Status: "ok"},
	}
	if err := store.Update(ctx, record); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	d, err := store.GetByID(ctx, "d1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if d.Status != domain.DeploymentSucceeded || len(d.Steps) != 3 {
		t.Errorf("Status = %s, steps = %d", d.Status, len(d.Steps))
	}
}

func TestDeploymentStore_UpdateMissing(t *testing.T) {
	store := NewDeploymentStore()

	err := store.Update(context.Background(), testDeployment("d1", 1000))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeploymentStore_ListByTokenOrder(t *testing.T) {
	store := NewDeploymentStore()
	ctx := context.Background()

	for _, d := range []*domain.DeploymentRecord{
		testDeployment("d3", 3000),
		testDeployment("d1", 1000),
		testDeployment("d2", 2000),
	} {
		if err := store.Insert(ctx, d); err != nil {
			t.Fatalf("Insert %s failed: %v", d.DeploymentID, err)
		}
	}

	other := testDeployment("x1", 500)
	other.TokenAccount = "other.testnet"
	if err := store.Insert(ctx, other); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.ListByToken(ctx, testContract)
	if err != nil {
		t.Fatalf("ListByToken failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(result))
	}
	want := []string{"d1", "d2", "d3"}
	for i := range want {
		if result[i].DeploymentID != want[i] {
			t.Errorf("result[%d] = %s, want %s", i, result[i].DeploymentID, want[i])
		}
	}
}

func TestDeploymentStore_StepsNotAliased(t *testing.T) {
	store := NewDeploymentStore()
	ctx := context.Background()

	record := testDeployment("d1", 1000)
	record.Steps = []domain.DeploymentStep{{Name: "create-account", Status: "ok"}}
	if err := store.Insert(ctx, record); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	record.Steps[0].Status = "failed"

	d, err := store.GetByID(ctx, "d1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if d.Steps[0].Status != "ok" {
		t.Errorf("stored step mutated: %s", d.Steps[0].Status)
	}
}
