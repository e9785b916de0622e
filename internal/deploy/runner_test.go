package deploy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/storage/memory"
)

// fakeRunner records every invocation and fails the configured step.
type fakeRunner struct {
	calls    []string
	failStep string
	output   string
}

func (f *fakeRunner) Run(_ context.Context, bin string, args []string) (string, error) {
	name := args[0]
	f.calls = append(f.calls, name)
	if name == f.failStep {
		return "near error: " + f.failStep, errors.New("exit status 1")
	}
	if f.output != "" {
		return f.output, nil
	}
	return "ok", nil
}

func executablePlan(t *testing.T) *Plan {
	t.Helper()
	plan := testPlan()
	plan.WasmPath = writeWasm(t, validWasm())
	return plan
}

func TestExecutorExecute(t *testing.T) {
	runner := &fakeRunner{}
	exec := NewExecutor(runner, nil, zerolog.Nop())

	plan := executablePlan(t)
	record, err := exec.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if record.Status != domain.DeploymentSucceeded {
		t.Errorf("Status = %s", record.Status)
	}
	if len(record.Steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(record.Steps))
	}
	for _, step := range record.Steps {
		if step.Status != "ok" {
			t.Errorf("step %s status = %q", step.Name, step.Status)
		}
		if step.Command == "" {
			t.Errorf("step %s has no command", step.Name)
		}
	}

	want := []string{"create-account", "deploy", "call"}
	for i, call := range runner.calls {
		if call != want[i] {
			t.Errorf("call %d = %q, want %q", i, call, want[i])
		}
	}

	wasm := validWasm()
	sum := sha256.Sum256(wasm)
	if record.WasmSHA256 != hex.EncodeToString(sum[:]) {
		t.Errorf("WasmSHA256 = %s", record.WasmSHA256)
	}
	if record.DeploymentID == "" || len(record.DeploymentID) != 64 {
		t.Errorf("DeploymentID = %q", record.DeploymentID)
	}
	if record.FinishedAt < record.StartedAt {
		t.Errorf("FinishedAt %d before StartedAt %d", record.FinishedAt, record.StartedAt)
	}
}

func TestExecutorStopsOnFailure(t *testing.T) {
	runner := &fakeRunner{failStep: "deploy"}
	exec := NewExecutor(runner, nil, zerolog.Nop())

	record, err := exec.Execute(context.Background(), executablePlan(t))
	if err == nil {
		t.Fatal("Execute returned nil error with a failing step")
	}
	if record.Status != domain.DeploymentFailed {
		t.Errorf("Status = %s", record.Status)
	}
	if len(record.Steps) != 2 {
		t.Fatalf("got %d steps, want 2 (init must not run)", len(record.Steps))
	}
	if record.Steps[1].Status != "failed" {
		t.Errorf("deploy step status = %q", record.Steps[1].Status)
	}
	if !strings.Contains(record.Steps[1].Output, "near error") {
		t.Errorf("deploy step output = %q", record.Steps[1].Output)
	}
	if len(runner.calls) != 2 {
		t.Errorf("runner ran %d commands, want 2", len(runner.calls))
	}
}

func TestExecutorTruncatesStepOutput(t *testing.T) {
	runner := &fakeRunner{output: strings.Repeat("x", maxStepOutput+500)}
	exec := NewExecutor(runner, nil, zerolog.Nop())

	record, err := exec.Execute(context.Background(), executablePlan(t))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, step := range record.Steps {
		if len(step.Output) > maxStepOutput {
			t.Errorf("step %s output is %d bytes", step.Name, len(step.Output))
		}
	}
}

func TestExecutorPersistsRecord(t *testing.T) {
	store := memory.NewDeploymentStore()
	exec := NewExecutor(&fakeRunner{}, store, zerolog.Nop())

	record, err := exec.Execute(context.Background(), executablePlan(t))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	stored, err := store.GetByID(context.Background(), record.DeploymentID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.DeploymentSucceeded {
		t.Errorf("stored Status = %s", stored.Status)
	}
	if len(stored.Steps) != 3 {
		t.Errorf("stored %d steps, want 3", len(stored.Steps))
	}
}

func TestExecutorPersistsFailure(t *testing.T) {
	store := memory.NewDeploymentStore()
	exec := NewExecutor(&fakeRunner{failStep: "create-account"}, store, zerolog.Nop())

	record, err := exec.Execute(context.Background(), executablePlan(t))
	if err == nil {
		t.Fatal("Execute returned nil error")
	}

	stored, err := store.GetByID(context.Background(), record.DeploymentID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.DeploymentFailed {
		t.Errorf("stored Status = %s", stored.Status)
	}
}

func TestDryRunDefaultMeta(t *testing.T) {
	exec := NewExecutor(nil, nil, zerolog.Nop())

	record, err := exec.DryRun(executablePlan(t))
	if err != nil {
		t.Fatalf("DryRun: %v", err)
	}
	if record.Status != domain.DeploymentSucceeded {
		t.Errorf("Status = %s", record.Status)
	}
	if len(record.Steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(record.Steps))
	}
	if record.Steps[0].Status != "skipped" || record.Steps[1].Status != "skipped" {
		t.Errorf("pre-init steps = %q, %q", record.Steps[0].Status, record.Steps[1].Status)
	}
	if record.Steps[2].Status != "ok" {
		t.Errorf("init step = %q: %s", record.Steps[2].Status, record.Steps[2].Output)
	}
	if !strings.Contains(record.Steps[2].Output, "total_supply=1000000000000000000000000000000000") {
		t.Errorf("init output = %q", record.Steps[2].Output)
	}
}

func TestDryRunExplicitMetadata(t *testing.T) {
	plan := executablePlan(t)
	plan.Init.Method = InitMethodNew
	plan.Metadata = MetadataRef{
		DocumentPath: writeDoc(t, testDocJSON),
		HostedURL:    "https://example.com/metadata.json",
	}

	record, err := NewExecutor(nil, nil, zerolog.Nop()).DryRun(plan)
	if err != nil {
		t.Fatalf("DryRun: %v", err)
	}
	if record.Status != domain.DeploymentSucceeded {
		t.Errorf("Status = %s", record.Status)
	}
}

func TestDryRunBadDocument(t *testing.T) {
	plan := executablePlan(t)
	plan.Init.Method = InitMethodNew
	plan.Metadata.DocumentPath = writeDoc(t, `{"spec": "ft-2.0.0", "name": "x", "symbol": "X", "decimals": 24}`)

	record, err := NewExecutor(nil, nil, zerolog.Nop()).DryRun(plan)
	if err == nil {
		t.Fatal("DryRun returned nil error with a wrong spec document")
	}
	if record.Status != domain.DeploymentFailed {
		t.Errorf("Status = %s", record.Status)
	}
	if record.Steps[2].Status != "failed" {
		t.Errorf("init step = %q", record.Steps[2].Status)
	}
}
