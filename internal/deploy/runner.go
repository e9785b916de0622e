package deploy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/idhash"
	"github.com/brainstems/itlx-nep141-token/internal/metadata"
	"github.com/brainstems/itlx-nep141-token/internal/observability"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
	"github.com/brainstems/itlx-nep141-token/internal/token"
)

// maxStepOutput caps the combined output kept per step in the record.
const maxStepOutput = 16 * 1024

// CommandRunner executes one external command and returns its combined
// output. The boundary keeps the executor testable without the near
// binary installed.
type CommandRunner interface {
	Run(ctx context.Context, bin string, args []string) (string, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

// Run executes the command and returns combined stdout/stderr.
func (ExecRunner) Run(ctx context.Context, bin string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// Executor drives a deployment plan step by step through the near CLI,
// recording every step into a DeploymentRecord.
type Executor struct {
	runner CommandRunner
	store  storage.DeploymentStore // optional
	logger zerolog.Logger
}

// NewExecutor creates an executor. store may be nil, in which case runs
// are not persisted.
func NewExecutor(runner CommandRunner, store storage.DeploymentStore, logger zerolog.Logger) *Executor {
	return &Executor{
		runner: runner,
		store:  store,
		logger: logger.With().Str("component", "deploy").Logger(),
	}
}

// Execute runs the plan against the chain. Execution stops at the first
// failed step; the returned record always contains every attempted step.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*domain.DeploymentRecord, error) {
	commands, err := BuildCommands(plan)
	if err != nil {
		return nil, err
	}

	record := e.newRecord(plan)
	if err := e.persist(ctx, record, true); err != nil {
		return nil, err
	}

	var failed error
	for _, cmd := range commands {
		step := e.runStep(ctx, cmd)
		record.Steps = append(record.Steps, step)
		if step.Status != "ok" {
			failed = fmt.Errorf("step %s failed", cmd.Name)
			break
		}
	}

	record.FinishedAt = time.Now().UnixMilli()
	record.Status = domain.DeploymentSucceeded
	if failed != nil {
		record.Status = domain.DeploymentFailed
	}

	observability.RecordDeploymentRun(string(record.Status),
		float64(record.FinishedAt-record.StartedAt)/1000)

	if err := e.persist(ctx, record, false); err != nil {
		return record, err
	}
	return record, failed
}

// DryRun replays the init call against the in-process token engine
// instead of the chain. It proves the plan's init arguments produce a
// consistent ledger: metadata valid, owner registered, owner balance
// equal to total supply.
func (e *Executor) DryRun(plan *Plan) (*domain.DeploymentRecord, error) {
	commands, err := BuildCommands(plan)
	if err != nil {
		return nil, err
	}

	record := e.newRecord(plan)
	now := time.Now().UnixMilli()
	for _, cmd := range commands[:2] {
		record.Steps = append(record.Steps, domain.DeploymentStep{
			Name:      cmd.Name,
			Command:   cmd.String(),
			Status:    "skipped",
			StartedAt: now,
		})
	}

	initStep := domain.DeploymentStep{
		Name:      commands[2].Name,
		Command:   commands[2].String(),
		StartedAt: now,
	}

	md, err := e.planMetadata(plan)
	var ledger *token.Ledger
	if err == nil {
		ledger, err = token.New(domain.AccountID(plan.Init.OwnerID), plan.TotalSupply(), md)
	}
	if err != nil {
		initStep.Status = "failed"
		initStep.Output = err.Error()
		record.Steps = append(record.Steps, initStep)
		record.Status = domain.DeploymentFailed
		record.FinishedAt = time.Now().UnixMilli()
		return record, fmt.Errorf("dry-run init: %w", err)
	}

	ownerBalance := ledger.BalanceOf(domain.AccountID(plan.Init.OwnerID))
	initStep.Status = "ok"
	initStep.Output = fmt.Sprintf("simulated: total_supply=%s owner_balance=%s events=%d",
		ledger.TotalSupply(), ownerBalance, len(ledger.TakeEvents()))
	record.Steps = append(record.Steps, initStep)
	record.Status = domain.DeploymentSucceeded
	record.FinishedAt = time.Now().UnixMilli()

	if ownerBalance.Cmp(plan.TotalSupply()) != 0 {
		record.Status = domain.DeploymentFailed
		return record, fmt.Errorf("dry-run: owner balance %s != total supply %s", ownerBalance, plan.TotalSupply())
	}
	return record, nil
}

// runStep executes one command and captures its outcome.
func (e *Executor) runStep(ctx context.Context, cmd Command) domain.DeploymentStep {
	step := domain.DeploymentStep{
		Name:      cmd.Name,
		Command:   cmd.String(),
		StartedAt: time.Now().UnixMilli(),
	}

	e.logger.Info().Str("step", cmd.Name).Str("command", step.Command).Msg("running step")
	out, err := e.runner.Run(ctx, cmd.Bin, cmd.Args)
	step.DurationMs = time.Now().UnixMilli() - step.StartedAt

	if len(out) > maxStepOutput {
		out = out[:maxStepOutput]
	}
	step.Output = out

	if err != nil {
		step.Status = "failed"
		if step.Output == "" {
			step.Output = err.Error()
		}
		e.logger.Error().Err(err).Str("step", cmd.Name).Msg("step failed")
		return step
	}

	step.Status = "ok"
	e.logger.Info().Str("step", cmd.Name).Int64("duration_ms", step.DurationMs).Msg("step done")
	return step
}

// newRecord builds the initial RUNNING record for a plan.
func (e *Executor) newRecord(plan *Plan) *domain.DeploymentRecord {
	now := time.Now().UnixMilli()
	return &domain.DeploymentRecord{
		DeploymentID: idhash.ComputeDeploymentID(plan.Network, plan.TokenAccount, now),
		Network:      plan.Network,
		TokenAccount: plan.TokenAccount,
		OwnerAccount: plan.Init.OwnerID,
		TotalSupply:  plan.Init.TotalSupply,
		WasmSHA256:   wasmDigest(plan.WasmPath),
		Status:       domain.DeploymentRunning,
		StartedAt:    now,
		CreatedAt:    now,
	}
}

// persist inserts or updates the record, tolerating a nil store.
func (e *Executor) persist(ctx context.Context, record *domain.DeploymentRecord, insert bool) error {
	if e.store == nil {
		return nil
	}
	if insert {
		return e.store.Insert(ctx, record)
	}
	return e.store.Update(ctx, record)
}

// planMetadata resolves the metadata the init call would set.
func (e *Executor) planMetadata(plan *Plan) (domain.TokenMetadata, error) {
	if plan.Init.Method == InitMethodNewDefaultMeta {
		return metadata.DefaultITLX(), nil
	}
	doc, raw, err := metadata.LoadDocument(plan.Metadata.DocumentPath)
	if err != nil {
		return domain.TokenMetadata{}, err
	}
	if err := metadata.ValidateDocument(doc); err != nil {
		return domain.TokenMetadata{}, err
	}
	return metadata.OnChain(doc, plan.Metadata.HostedURL, raw), nil
}

// wasmDigest hashes the binary for the record; empty when unreadable,
// preflight reports the real error.
func wasmDigest(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
