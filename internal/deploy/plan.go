// Package deploy turns the manual token deployment procedure into a
// plan-driven workflow: a YAML plan, preflight checks, and an executor
// that drives the near CLI step by step.
package deploy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/nearkey"
	"github.com/brainstems/itlx-nep141-token/internal/nearrpc"
)

// Init methods the contract exposes.
const (
	InitMethodNew            = "new"
	InitMethodNewDefaultMeta = "new_default_meta"
)

// InitCall describes the contract initialization call.
type InitCall struct {
	// Method is "new" or "new_default_meta". new takes explicit metadata
	// built from the hosted document; new_default_meta uses the metadata
	// compiled into the contract.
	Method      string `yaml:"method"`
	OwnerID     string `yaml:"owner_id"`
	TotalSupply string `yaml:"total_supply"`
}

// MetadataRef points at the hosted metadata document.
type MetadataRef struct {
	// DocumentPath is the local copy of the hosted document. Its exact
	// bytes produce the reference hash passed to the init call.
	DocumentPath string `yaml:"document_path"`
	// HostedURL is where the document is published. Goes on chain as
	// metadata.reference.
	HostedURL string `yaml:"hosted_url"`
}

// LedgerSigning configures hardware-wallet signing for the CLI steps.
type LedgerSigning struct {
	Enabled bool `yaml:"enabled"`
	// HDPath selects the key on the device. Empty means the device default.
	HDPath string `yaml:"hd_path"`
}

// Plan is a declarative deployment plan, loaded from YAML.
type Plan struct {
	Network       string `yaml:"network"` // testnet | mainnet
	NodeURL       string `yaml:"node_url"`
	MasterAccount string `yaml:"master_account"`
	TokenAccount  string `yaml:"token_account"`
	WasmPath      string `yaml:"wasm_path"`
	// InitialBalance is the NEAR amount transferred to the new token
	// account at creation, as a decimal string the CLI accepts.
	InitialBalance string        `yaml:"initial_balance"`
	Init           InitCall      `yaml:"init"`
	Metadata       MetadataRef   `yaml:"metadata"`
	Ledger         LedgerSigning `yaml:"ledger"`
}

// LoadPlan reads and validates a deployment plan file.
func LoadPlan(path string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var plan Plan
	if err := yaml.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}

	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return &plan, nil
}

// Validate checks structural plan errors that no preflight can recover from.
func (p *Plan) Validate() error {
	switch p.Network {
	case "testnet", "mainnet":
	default:
		return fmt.Errorf("network %q: want testnet or mainnet", p.Network)
	}

	if err := domain.AccountID(p.MasterAccount).Validate(); err != nil {
		return fmt.Errorf("master_account: %w", err)
	}
	if err := domain.AccountID(p.TokenAccount).Validate(); err != nil {
		return fmt.Errorf("token_account: %w", err)
	}
	if p.WasmPath == "" {
		return fmt.Errorf("wasm_path is required")
	}

	switch p.Init.Method {
	case InitMethodNew, InitMethodNewDefaultMeta:
	default:
		return fmt.Errorf("init.method %q: want %s or %s", p.Init.Method, InitMethodNew, InitMethodNewDefaultMeta)
	}
	if err := domain.AccountID(p.Init.OwnerID).Validate(); err != nil {
		return fmt.Errorf("init.owner_id: %w", err)
	}
	if _, err := domain.ParseBalance(p.Init.TotalSupply); err != nil {
		return fmt.Errorf("init.total_supply: %w", err)
	}

	if p.Init.Method == InitMethodNew && p.Metadata.DocumentPath == "" {
		return fmt.Errorf("init.method new requires metadata.document_path")
	}

	if p.Ledger.Enabled && p.Ledger.HDPath != "" {
		if err := nearkey.ValidateHDPath(p.Ledger.HDPath); err != nil {
			return fmt.Errorf("ledger.hd_path: %w", err)
		}
	}
	return nil
}

// ResolveNodeURL returns the plan's node_url, falling back to the
// well-known public endpoint for the plan's network when unset.
func (p *Plan) ResolveNodeURL() string {
	if p.NodeURL != "" {
		return p.NodeURL
	}
	if p.Network == "mainnet" {
		return nearrpc.MainnetEndpoint
	}
	return nearrpc.TestnetEndpoint
}

// TotalSupply returns the parsed planned supply. Validate must have passed.
func (p *Plan) TotalSupply() domain.Balance {
	supply, err := domain.ParseBalance(p.Init.TotalSupply)
	if err != nil {
		panic(fmt.Sprintf("unvalidated plan: %v", err))
	}
	return supply
}
