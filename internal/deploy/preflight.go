package deploy

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/metadata"
	"github.com/brainstems/itlx-nep141-token/internal/nearrpc"
)

// wasmMagic is the header every compiled contract binary starts with.
var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// CheckResult is the outcome of one preflight check.
type CheckResult struct {
	Name   string
	Passed bool
	Detail string
}

// AccountViewer is the RPC surface preflight needs to probe accounts.
// *nearrpc.Client satisfies it.
type AccountViewer interface {
	ViewAccount(ctx context.Context, accountID string) (*nearrpc.AccountView, error)
}

// Preflight runs the pre-deployment checks the manual procedure lists
// as troubleshooting items, so they fail before any chain mutation
// instead of after.
type Preflight struct {
	rpc     AccountViewer
	fetcher *metadata.Fetcher
}

// NewPreflight creates a preflight checker. rpc and fetcher may be nil,
// which skips the chain and hosted-document probes (offline mode).
func NewPreflight(rpc AccountViewer, fetcher *metadata.Fetcher) *Preflight {
	return &Preflight{rpc: rpc, fetcher: fetcher}
}

// Run executes all checks for the plan. It never stops early: the
// operator gets the full picture in one pass. The error is non-nil when
// at least one check failed.
func (p *Preflight) Run(ctx context.Context, plan *Plan) ([]CheckResult, error) {
	var results []CheckResult

	results = append(results, p.checkWasm(plan))
	results = append(results, p.checkAccounts(ctx, plan)...)

	if plan.Init.Method == InitMethodNew {
		results = append(results, p.checkMetadata(ctx, plan)...)
	}

	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("%d of %d preflight checks failed", failed, len(results))
	}
	return results, nil
}

// checkWasm verifies the contract binary exists and looks like wasm.
func (p *Preflight) checkWasm(plan *Plan) CheckResult {
	check := CheckResult{Name: "wasm_binary"}

	raw, err := os.ReadFile(plan.WasmPath)
	if err != nil {
		check.Detail = fmt.Sprintf("read %s: %v", plan.WasmPath, err)
		return check
	}
	if len(raw) == 0 {
		check.Detail = fmt.Sprintf("%s is empty", plan.WasmPath)
		return check
	}
	if len(raw) < len(wasmMagic) || !bytes.Equal(raw[:len(wasmMagic)], wasmMagic) {
		check.Detail = fmt.Sprintf("%s has no wasm magic header, wrong build artifact?", plan.WasmPath)
		return check
	}

	check.Passed = true
	check.Detail = fmt.Sprintf("%s, %d bytes", plan.WasmPath, len(raw))
	return check
}

// checkAccounts verifies account relationships and on-chain state.
func (p *Preflight) checkAccounts(ctx context.Context, plan *Plan) []CheckResult {
	var results []CheckResult

	token := domain.AccountID(plan.TokenAccount)
	master := domain.AccountID(plan.MasterAccount)

	sub := CheckResult{Name: "token_subaccount"}
	if token.IsSubaccountOf(master) {
		sub.Passed = true
		sub.Detail = fmt.Sprintf("%s is a subaccount of %s", token, master)
	} else {
		sub.Detail = fmt.Sprintf("%s is not a subaccount of %s: create-account will be rejected", token, master)
	}
	results = append(results, sub)

	if p.rpc == nil {
		return results
	}

	// The master account must exist and hold funds for the new account.
	masterCheck := CheckResult{Name: "master_account_exists"}
	if view, err := p.rpc.ViewAccount(ctx, plan.MasterAccount); err != nil {
		masterCheck.Detail = fmt.Sprintf("view %s: %v", plan.MasterAccount, err)
	} else {
		masterCheck.Passed = true
		masterCheck.Detail = fmt.Sprintf("balance %s yocto", view.Amount)
	}
	results = append(results, masterCheck)

	// A token account that already carries a contract means a redeploy,
	// worth surfacing before the operator overwrites it.
	tokenCheck := CheckResult{Name: "token_account_fresh", Passed: true}
	if view, err := p.rpc.ViewAccount(ctx, plan.TokenAccount); err == nil {
		if view.HasContract() {
			tokenCheck.Passed = false
			tokenCheck.Detail = fmt.Sprintf("%s already has code deployed (hash %s)", plan.TokenAccount, view.CodeHash)
		} else {
			tokenCheck.Detail = fmt.Sprintf("%s exists without code", plan.TokenAccount)
		}
	} else {
		tokenCheck.Detail = fmt.Sprintf("%s does not exist yet, will be created", plan.TokenAccount)
	}
	results = append(results, tokenCheck)

	return results
}

// checkMetadata validates the local document, its supply consistency
// with the plan, and the hosted copy's hash.
func (p *Preflight) checkMetadata(ctx context.Context, plan *Plan) []CheckResult {
	var results []CheckResult

	docCheck := CheckResult{Name: "metadata_document"}
	doc, raw, err := metadata.LoadDocument(plan.Metadata.DocumentPath)
	if err != nil {
		docCheck.Detail = err.Error()
		return append(results, docCheck)
	}
	if err := metadata.ValidateDocument(doc); err != nil {
		docCheck.Detail = err.Error()
		return append(results, docCheck)
	}
	docCheck.Passed = true
	docCheck.Detail = fmt.Sprintf("%s %s, %d decimals", doc.Name, doc.Symbol, doc.Decimals)
	results = append(results, docCheck)

	supplyCheck := CheckResult{Name: "supply_consistency"}
	if doc.TotalSupply == "" {
		supplyCheck.Passed = true
		supplyCheck.Detail = "document does not state a total supply"
	} else if doc.TotalSupply == plan.Init.TotalSupply {
		supplyCheck.Passed = true
		supplyCheck.Detail = plan.Init.TotalSupply
	} else {
		supplyCheck.Detail = fmt.Sprintf("document says %s, plan says %s", doc.TotalSupply, plan.Init.TotalSupply)
	}
	results = append(results, supplyCheck)

	// A supply not divisible by 10^decimals was almost certainly written
	// in whole tokens instead of smallest units.
	decimalsCheck := CheckResult{Name: "supply_decimals"}
	if supply, err := domain.ParseBalance(plan.Init.TotalSupply); err != nil {
		decimalsCheck.Detail = fmt.Sprintf("plan supply: %v", err)
	} else if whole, ok := supply.WholeTokens(doc.Decimals); !ok {
		decimalsCheck.Detail = fmt.Sprintf("plan supply %s is not a multiple of 10^%d, wrong decimal-place count?", plan.Init.TotalSupply, doc.Decimals)
	} else {
		decimalsCheck.Passed = true
		decimalsCheck.Detail = fmt.Sprintf("%s whole tokens at %d decimals", whole, doc.Decimals)
	}
	results = append(results, decimalsCheck)

	if p.fetcher == nil || plan.Metadata.HostedURL == "" {
		return results
	}

	hostedCheck := CheckResult{Name: "hosted_document"}
	if _, err := p.fetcher.FetchAndVerify(ctx, plan.Metadata.HostedURL, metadata.ReferenceHash(raw)); err != nil {
		hostedCheck.Detail = fmt.Sprintf("%s: %v", plan.Metadata.HostedURL, err)
	} else {
		hostedCheck.Passed = true
		hostedCheck.Detail = fmt.Sprintf("hash %s", metadata.ReferenceHashBase64(raw))
	}
	results = append(results, hostedCheck)

	return results
}
