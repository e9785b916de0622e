package deploy

import (
	"encoding/json"
	"fmt"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/metadata"
)

// NearBinary is the CLI executable every step invokes.
const NearBinary = "near"

// Command is one CLI invocation of a deployment step.
type Command struct {
	Name string // step name, stable across runs
	Bin  string
	Args []string
}

// String renders the command the way an operator would type it.
func (c Command) String() string {
	out := c.Bin
	for _, a := range c.Args {
		out += " " + a
	}
	return out
}

// BuildCommands translates a plan into the ordered CLI steps: account
// creation, code deploy, and the init call.
func BuildCommands(plan *Plan) ([]Command, error) {
	initArgs, err := initArgsJSON(plan)
	if err != nil {
		return nil, err
	}

	common := []string{"--networkId", plan.Network}
	if plan.NodeURL != "" {
		common = append(common, "--nodeUrl", plan.NodeURL)
	}

	create := Command{
		Name: "create-account",
		Bin:  NearBinary,
		Args: []string{"create-account", plan.TokenAccount, "--masterAccount", plan.MasterAccount},
	}
	if plan.InitialBalance != "" {
		create.Args = append(create.Args, "--initialBalance", plan.InitialBalance)
	}
	create.Args = appendLedger(create.Args, plan)
	create.Args = append(create.Args, common...)

	deployCmd := Command{
		Name: "deploy",
		Bin:  NearBinary,
		Args: []string{"deploy", plan.TokenAccount, plan.WasmPath},
	}
	deployCmd.Args = appendLedger(deployCmd.Args, plan)
	deployCmd.Args = append(deployCmd.Args, common...)

	initCmd := Command{
		Name: "init",
		Bin:  NearBinary,
		Args: []string{
			"call", plan.TokenAccount, plan.Init.Method, initArgs,
			"--accountId", plan.Init.OwnerID,
		},
	}
	initCmd.Args = appendLedger(initCmd.Args, plan)
	initCmd.Args = append(initCmd.Args, common...)

	return []Command{create, deployCmd, initCmd}, nil
}

// appendLedger adds hardware-wallet signing flags when the plan asks for it.
func appendLedger(args []string, plan *Plan) []string {
	if !plan.Ledger.Enabled {
		return args
	}
	args = append(args, "--useLedgerKey")
	if plan.Ledger.HDPath != "" {
		args = append(args, plan.Ledger.HDPath)
	}
	return args
}

// initArgsJSON builds the JSON argument of the init call.
func initArgsJSON(plan *Plan) (string, error) {
	if plan.Init.Method == InitMethodNewDefaultMeta {
		args := map[string]string{
			"owner_id":     plan.Init.OwnerID,
			"total_supply": plan.Init.TotalSupply,
		}
		raw, err := json.Marshal(args)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	doc, raw, err := metadata.LoadDocument(plan.Metadata.DocumentPath)
	if err != nil {
		return "", fmt.Errorf("init args: %w", err)
	}
	md := metadata.OnChain(doc, plan.Metadata.HostedURL, raw)

	args := struct {
		OwnerID     string               `json:"owner_id"`
		TotalSupply string               `json:"total_supply"`
		Metadata    domain.TokenMetadata `json:"metadata"`
	}{
		OwnerID:     plan.Init.OwnerID,
		TotalSupply: plan.Init.TotalSupply,
		Metadata:    md,
	}
	out, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
