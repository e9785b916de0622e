package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/brainstems/itlx-nep141-token/internal/deploy"
	"github.com/brainstems/itlx-nep141-token/internal/metadata"
	"github.com/brainstems/itlx-nep141-token/internal/nearrpc"
)

const (
	testSupply = "1000000000000000000000000000000000"
	testOwner  = "brainstems.testnet"
)

// fakeViewer answers view calls from a fixed method-to-result table.
type fakeViewer struct {
	results map[string][]byte
	errs    map[string]error
}

func (f *fakeViewer) CallFunction(_ context.Context, _, method string, _ []byte, _ string) (*nearrpc.CallResult, error) {
	if err, ok := f.errs[method]; ok {
		return nil, err
	}
	res, ok := f.results[method]
	if !ok {
		return nil, fmt.Errorf("method %s not stubbed", method)
	}
	return &nearrpc.CallResult{Result: res}, nil
}

func defaultMetaPlan() *deploy.Plan {
	return &deploy.Plan{
		Network:       "testnet",
		MasterAccount: "brainstems.testnet",
		TokenAccount:  "itlx.brainstems.testnet",
		Init: deploy.InitCall{
			Method:      deploy.InitMethodNewDefaultMeta,
			OwnerID:     testOwner,
			TotalSupply: testSupply,
		},
	}
}

func quoted(s string) []byte {
	raw, _ := json.Marshal(s)
	return raw
}

func healthyViewer(t *testing.T) *fakeViewer {
	t.Helper()
	md, err := json.Marshal(metadata.DefaultITLX())
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	return &fakeViewer{results: map[string][]byte{
		nearrpc.MethodFTTotalSupply: quoted(testSupply),
		nearrpc.MethodFTBalanceOf:   quoted(testSupply),
		nearrpc.MethodFTMetadata:    md,
	}}
}

func findCheck(t *testing.T, report *Report, name string) Check {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not in report: %+v", name, report.Checks)
	return Check{}
}

func TestVerifierAllPass(t *testing.T) {
	v := NewVerifier(healthyViewer(t), nil, zerolog.Nop())

	report, err := v.Run(context.Background(), defaultMetaPlan())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Passed() {
		t.Fatalf("failed checks: %v", report.Failed())
	}
	if report.Contract != "itlx.brainstems.testnet" {
		t.Errorf("Contract = %q", report.Contract)
	}

	supply := findCheck(t, report, "total_supply")
	if supply.Got != testSupply {
		t.Errorf("total_supply got = %q", supply.Got)
	}
	owner := findCheck(t, report, "owner_balance")
	if owner.Want != testSupply {
		t.Errorf("owner_balance want = %q", owner.Want)
	}
	md := findCheck(t, report, "metadata")
	if !md.Passed {
		t.Errorf("metadata check failed: got %q", md.Got)
	}
}

func TestVerifierSupplyMismatch(t *testing.T) {
	viewer := healthyViewer(t)
	viewer.results[nearrpc.MethodFTTotalSupply] = quoted("5")

	report, err := NewVerifier(viewer, nil, zerolog.Nop()).Run(context.Background(), defaultMetaPlan())
	if err == nil {
		t.Fatal("Run returned nil error with a wrong supply")
	}
	if c := findCheck(t, report, "total_supply"); c.Passed {
		t.Error("total_supply passed")
	}
	// The owner cannot hold the planned supply either once supply reads 5.
	if c := findCheck(t, report, "owner_balance"); c.Passed {
		t.Error("owner_balance passed against the wrong supply")
	}
}

func TestVerifierOwnerNotFunded(t *testing.T) {
	viewer := healthyViewer(t)
	viewer.results[nearrpc.MethodFTBalanceOf] = quoted("0")

	report, err := NewVerifier(viewer, nil, zerolog.Nop()).Run(context.Background(), defaultMetaPlan())
	if err == nil {
		t.Fatal("Run returned nil error with an unfunded owner")
	}
	if c := findCheck(t, report, "owner_balance"); c.Passed {
		t.Error("owner_balance passed with balance 0")
	}
}

func TestVerifierQueryErrorsDoNotAbort(t *testing.T) {
	viewer := healthyViewer(t)
	viewer.errs = map[string]error{
		nearrpc.MethodFTTotalSupply: fmt.Errorf("rpc: contract not initialized"),
	}

	report, err := NewVerifier(viewer, nil, zerolog.Nop()).Run(context.Background(), defaultMetaPlan())
	if err == nil {
		t.Fatal("Run returned nil error")
	}
	// Later checks still ran.
	findCheck(t, report, "owner_balance")
	findCheck(t, report, "metadata")
}

func TestVerifierExplicitMetadataFields(t *testing.T) {
	docJSON := `{
  "spec": "ft-1.0.0",
  "name": "Intellex AI Protocol Token",
  "symbol": "ITLX",
  "decimals": 24
}`
	dir := t.TempDir()
	docPath := dir + "/metadata.json"
	if err := writeFile(docPath, docJSON); err != nil {
		t.Fatalf("write doc: %v", err)
	}

	plan := defaultMetaPlan()
	plan.Init.Method = deploy.InitMethodNew
	plan.Metadata = deploy.MetadataRef{
		DocumentPath: docPath,
		HostedURL:    "https://example.com/metadata.json",
	}

	doc, raw, err := metadata.LoadDocument(docPath)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	onChain := metadata.OnChain(doc, plan.Metadata.HostedURL, raw)
	mdJSON, _ := json.Marshal(onChain)

	viewer := healthyViewer(t)
	viewer.results[nearrpc.MethodFTMetadata] = mdJSON

	report, err := NewVerifier(viewer, nil, zerolog.Nop()).Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, name := range []string{
		"metadata_spec", "metadata_name", "metadata_symbol",
		"metadata_decimals", "metadata_reference", "metadata_reference_hash",
	} {
		if c := findCheck(t, report, name); !c.Passed {
			t.Errorf("%s failed: want %q got %q", name, c.Want, c.Got)
		}
	}
}

func TestVerifierMetadataFieldMismatch(t *testing.T) {
	docJSON := `{"spec": "ft-1.0.0", "name": "Intellex AI Protocol Token", "symbol": "ITLX", "decimals": 24}`
	docPath := t.TempDir() + "/metadata.json"
	if err := writeFile(docPath, docJSON); err != nil {
		t.Fatalf("write doc: %v", err)
	}

	plan := defaultMetaPlan()
	plan.Init.Method = deploy.InitMethodNew
	plan.Metadata.DocumentPath = docPath

	// The chain reports default metadata while the plan expects the
	// authored document; symbol matches, the hash binding does not.
	report, err := NewVerifier(healthyViewer(t), nil, zerolog.Nop()).Run(context.Background(), plan)
	if err == nil {
		t.Fatal("Run returned nil error")
	}
	if c := findCheck(t, report, "metadata_symbol"); !c.Passed {
		t.Errorf("metadata_symbol failed: got %q", c.Got)
	}
	if c := findCheck(t, report, "metadata_reference_hash"); c.Passed {
		t.Error("metadata_reference_hash passed against differing documents")
	}
}

func TestVerifierHostedReference(t *testing.T) {
	docJSON := `{"spec": "ft-1.0.0", "name": "Intellex AI Protocol Token", "symbol": "ITLX", "decimals": 24}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(docJSON))
	}))
	defer srv.Close()

	ref := srv.URL
	md := metadata.DefaultITLX()
	md.Reference = &ref
	md.ReferenceHash = metadata.ReferenceHash([]byte(docJSON))
	mdJSON, _ := json.Marshal(md)

	viewer := healthyViewer(t)
	viewer.results[nearrpc.MethodFTMetadata] = mdJSON

	fetcher := metadata.NewFetcher(5 * time.Second)
	report, err := NewVerifier(viewer, fetcher, zerolog.Nop()).Run(context.Background(), defaultMetaPlan())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c := findCheck(t, report, "hosted_reference"); !c.Passed {
		t.Errorf("hosted_reference failed: want %q got %q", c.Want, c.Got)
	}
}

func TestVerifierHostedReferenceDrift(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tampered": true}`))
	}))
	defer srv.Close()

	ref := srv.URL
	md := metadata.DefaultITLX()
	md.Reference = &ref
	mdJSON, _ := json.Marshal(md)

	viewer := healthyViewer(t)
	viewer.results[nearrpc.MethodFTMetadata] = mdJSON

	fetcher := metadata.NewFetcher(5 * time.Second)
	report, err := NewVerifier(viewer, fetcher, zerolog.Nop()).Run(context.Background(), defaultMetaPlan())
	if err == nil {
		t.Fatal("Run returned nil error with a tampered hosted document")
	}
	if c := findCheck(t, report, "hosted_reference"); c.Passed {
		t.Error("hosted_reference passed")
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
