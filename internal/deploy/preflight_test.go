package deploy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brainstems/itlx-nep141-token/internal/metadata"
	"github.com/brainstems/itlx-nep141-token/internal/nearrpc"
)

// fakeAccountViewer serves canned account views keyed by account id.
type fakeAccountViewer struct {
	accounts map[string]*nearrpc.AccountView
}

func (f *fakeAccountViewer) ViewAccount(_ context.Context, accountID string) (*nearrpc.AccountView, error) {
	view, ok := f.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s does not exist", accountID)
	}
	return view, nil
}

func writeWasm(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contract.wasm")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write wasm: %v", err)
	}
	return path
}

func validWasm() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
}

func findCheck(t *testing.T, results []CheckResult, name string) CheckResult {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("check %q not in results: %+v", name, results)
	return CheckResult{}
}

func TestPreflightOfflinePass(t *testing.T) {
	plan := testPlan()
	plan.WasmPath = writeWasm(t, validWasm())

	results, err := NewPreflight(nil, nil).Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d offline checks, want 2", len(results))
	}
	if c := findCheck(t, results, "wasm_binary"); !c.Passed {
		t.Errorf("wasm_binary failed: %s", c.Detail)
	}
	if c := findCheck(t, results, "token_subaccount"); !c.Passed {
		t.Errorf("token_subaccount failed: %s", c.Detail)
	}
}

func TestPreflightWasmFailures(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "absent.wasm")
		}},
		{"empty file", func(t *testing.T) string {
			return writeWasm(t, nil)
		}},
		{"no magic header", func(t *testing.T) string {
			return writeWasm(t, []byte("#!/bin/sh\necho not wasm\n"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := testPlan()
			plan.WasmPath = tt.path(t)

			results, err := NewPreflight(nil, nil).Run(context.Background(), plan)
			if err == nil {
				t.Error("Run returned nil error with a bad wasm binary")
			}
			if c := findCheck(t, results, "wasm_binary"); c.Passed {
				t.Error("wasm_binary passed")
			}
		})
	}
}

func TestPreflightNotSubaccount(t *testing.T) {
	plan := testPlan()
	plan.WasmPath = writeWasm(t, validWasm())
	plan.TokenAccount = "itlx.other.testnet"

	results, err := NewPreflight(nil, nil).Run(context.Background(), plan)
	if err == nil {
		t.Error("Run returned nil error for a non-subaccount token account")
	}
	if c := findCheck(t, results, "token_subaccount"); c.Passed {
		t.Error("token_subaccount passed")
	}
}

func TestPreflightChainChecks(t *testing.T) {
	plan := testPlan()
	plan.WasmPath = writeWasm(t, validWasm())

	rpc := &fakeAccountViewer{accounts: map[string]*nearrpc.AccountView{
		"brainstems.testnet": {Amount: "50000000000000000000000000", CodeHash: "11111111111111111111111111111111"},
	}}

	results, err := NewPreflight(rpc, nil).Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c := findCheck(t, results, "master_account_exists"); !c.Passed {
		t.Errorf("master_account_exists failed: %s", c.Detail)
	}
	if c := findCheck(t, results, "token_account_fresh"); !c.Passed {
		t.Errorf("token_account_fresh failed: %s", c.Detail)
	}
}

func TestPreflightTokenAccountHasCode(t *testing.T) {
	plan := testPlan()
	plan.WasmPath = writeWasm(t, validWasm())

	rpc := &fakeAccountViewer{accounts: map[string]*nearrpc.AccountView{
		"brainstems.testnet":      {Amount: "50000000000000000000000000"},
		"itlx.brainstems.testnet": {Amount: "3000000000000000000000000", CodeHash: "9wVFMRgq1XWsBroGE5iZxNc3Hp36VdopX4PPqaydzdcE"},
	}}

	results, err := NewPreflight(rpc, nil).Run(context.Background(), plan)
	if err == nil {
		t.Error("Run returned nil error with code already deployed")
	}
	if c := findCheck(t, results, "token_account_fresh"); c.Passed {
		t.Error("token_account_fresh passed for an account with code")
	}
}

func TestPreflightMissingMaster(t *testing.T) {
	plan := testPlan()
	plan.WasmPath = writeWasm(t, validWasm())

	rpc := &fakeAccountViewer{accounts: map[string]*nearrpc.AccountView{}}

	results, err := NewPreflight(rpc, nil).Run(context.Background(), plan)
	if err == nil {
		t.Error("Run returned nil error with a missing master account")
	}
	if c := findCheck(t, results, "master_account_exists"); c.Passed {
		t.Error("master_account_exists passed")
	}
}

func TestPreflightMetadataChecks(t *testing.T) {
	plan := testPlan()
	plan.WasmPath = writeWasm(t, validWasm())
	plan.Init.Method = InitMethodNew
	plan.Metadata.DocumentPath = writeDoc(t, testDocJSON)

	results, err := NewPreflight(nil, nil).Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c := findCheck(t, results, "metadata_document"); !c.Passed {
		t.Errorf("metadata_document failed: %s", c.Detail)
	}
	if c := findCheck(t, results, "supply_consistency"); !c.Passed {
		t.Errorf("supply_consistency failed: %s", c.Detail)
	}
}

func TestPreflightSupplyMismatch(t *testing.T) {
	plan := testPlan()
	plan.WasmPath = writeWasm(t, validWasm())
	plan.Init.Method = InitMethodNew
	plan.Init.TotalSupply = "42"
	plan.Metadata.DocumentPath = writeDoc(t, testDocJSON)

	results, err := NewPreflight(nil, nil).Run(context.Background(), plan)
	if err == nil {
		t.Error("Run returned nil error with supply mismatch")
	}
	if c := findCheck(t, results, "supply_consistency"); c.Passed {
		t.Error("supply_consistency passed with differing supplies")
	}
}

func TestPreflightSupplyDecimals(t *testing.T) {
	// Document states decimals but no supply, so only the decimals
	// check can catch a plan supply written in whole tokens.
	doc := `{
  "spec": "ft-1.0.0",
  "name": "Intellex AI Protocol Token",
  "symbol": "ITLX",
  "decimals": 24
}`

	plan := testPlan()
	plan.WasmPath = writeWasm(t, validWasm())
	plan.Init.Method = InitMethodNew
	plan.Init.TotalSupply = "1000000000"
	plan.Metadata.DocumentPath = writeDoc(t, doc)

	results, err := NewPreflight(nil, nil).Run(context.Background(), plan)
	if err == nil {
		t.Error("Run returned nil error for a whole-token supply on a 24-decimals document")
	}
	if c := findCheck(t, results, "supply_decimals"); c.Passed {
		t.Errorf("supply_decimals passed: %s", c.Detail)
	}
	if c := findCheck(t, results, "supply_consistency"); !c.Passed {
		t.Errorf("supply_consistency failed: %s", c.Detail)
	}
}

func TestPreflightSupplyDecimalsPass(t *testing.T) {
	plan := testPlan()
	plan.WasmPath = writeWasm(t, validWasm())
	plan.Init.Method = InitMethodNew
	plan.Metadata.DocumentPath = writeDoc(t, testDocJSON)

	results, err := NewPreflight(nil, nil).Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	c := findCheck(t, results, "supply_decimals")
	if !c.Passed {
		t.Fatalf("supply_decimals failed: %s", c.Detail)
	}
	if c.Detail != "1000000000 whole tokens at 24 decimals" {
		t.Errorf("detail %q", c.Detail)
	}
}

func TestPreflightHostedDocument(t *testing.T) {
	docBytes := []byte(testDocJSON)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(docBytes)
	}))
	defer srv.Close()

	plan := testPlan()
	plan.WasmPath = writeWasm(t, validWasm())
	plan.Init.Method = InitMethodNew
	plan.Metadata.DocumentPath = writeDoc(t, testDocJSON)
	plan.Metadata.HostedURL = srv.URL

	fetcher := metadata.NewFetcher(5 * time.Second)
	results, err := NewPreflight(nil, fetcher).Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c := findCheck(t, results, "hosted_document"); !c.Passed {
		t.Errorf("hosted_document failed: %s", c.Detail)
	}
}

func TestPreflightHostedDocumentDrift(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testDocJSON + "\n"))
	}))
	defer srv.Close()

	plan := testPlan()
	plan.WasmPath = writeWasm(t, validWasm())
	plan.Init.Method = InitMethodNew
	plan.Metadata.DocumentPath = writeDoc(t, testDocJSON)
	plan.Metadata.HostedURL = srv.URL

	fetcher := metadata.NewFetcher(5 * time.Second)
	results, err := NewPreflight(nil, fetcher).Run(context.Background(), plan)
	if err == nil {
		t.Error("Run returned nil error when the hosted copy drifted")
	}
	if c := findCheck(t, results, "hosted_document"); c.Passed {
		t.Error("hosted_document passed with a trailing-newline hosted copy")
	}
}
