package nearrpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
)

// Finality levels accepted by the query endpoint.
const (
	FinalityFinal      = "final"
	FinalityOptimistic = "optimistic"
)

// CallResult is the outcome of a call_function view.
type CallResult struct {
	Result      []byte   // raw return value, usually JSON
	Logs        []string // execution logs
	BlockHeight int64    // block the view resolved at
	BlockHash   string   // base58 block hash
}

// byteInts decodes the query endpoint's result encoding: a JSON array of
// byte values rather than a base64 string.
type byteInts []byte

func (b *byteInts) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte value %d out of range", v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// callFunctionResult is the raw RPC result for call_function queries.
type callFunctionResult struct {
	Result      byteInts `json:"result"`
	Logs        []string `json:"logs"`
	BlockHeight int64    `json:"block_height"`
	BlockHash   string   `json:"block_hash"`
}

// CallFunction executes a read-only contract method via the query
// endpoint. args is the method's JSON argument object ({} for none).
func (c *Client) CallFunction(ctx context.Context, accountID, method string, args []byte, finality string) (*CallResult, error) {
	if finality == "" {
		finality = FinalityFinal
	}
	if len(args) == 0 {
		args = []byte("{}")
	}

	params := map[string]interface{}{
		"request_type": "call_function",
		"finality":     finality,
		"account_id":   accountID,
		"method_name":  method,
		"args_base64":  base64.StdEncoding.EncodeToString(args),
	}

	var result callFunctionResult
	if err := c.call(ctx, "query", params, &result); err != nil {
		return nil, err
	}

	return &CallResult{
		Result:      []byte(result.Result),
		Logs:        result.Logs,
		BlockHeight: result.BlockHeight,
		BlockHash:   result.BlockHash,
	}, nil
}

// AccountView is the state of an account.
type AccountView struct {
	Amount        string `json:"amount"` // yoctoNEAR balance
	Locked        string `json:"locked"`
	CodeHash      string `json:"code_hash"` // base58, all-ones hash when no contract
	StorageUsage  int64  `json:"storage_usage"`
	BlockHeight   int64  `json:"block_height"`
	BlockHash     string `json:"block_hash"`
}

// noCodeHash is the code_hash of an account with no deployed contract.
const noCodeHash = "11111111111111111111111111111111"

// HasContract reports whether the account has contract code deployed.
func (a *AccountView) HasContract() bool {
	return a.CodeHash != "" && a.CodeHash != noCodeHash
}

// ViewAccount retrieves the current state of an account.
func (c *Client) ViewAccount(ctx context.Context, accountID string) (*AccountView, error) {
	params := map[string]interface{}{
		"request_type": "view_account",
		"finality":     FinalityFinal,
		"account_id":   accountID,
	}

	var result AccountView
	if err := c.call(ctx, "query", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AccessKeyView is one access key on an account.
type AccessKeyView struct {
	Nonce      uint64 `json:"nonce"`
	Permission any    `json:"permission"` // "FullAccess" or a FunctionCall object
}

// ViewAccessKey retrieves a single access key by its public key
// ("ed25519:<base58>").
func (c *Client) ViewAccessKey(ctx context.Context, accountID, publicKey string) (*AccessKeyView, error) {
	params := map[string]interface{}{
		"request_type": "view_access_key",
		"finality":     FinalityFinal,
		"account_id":   accountID,
		"public_key":   publicKey,
	}

	var result AccessKeyView
	if err := c.call(ctx, "query", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StatusResult is the node status subset the platform cares about.
type StatusResult struct {
	ChainID           string `json:"chain_id"`
	LatestBlockHeight int64  `json:"latest_block_height"`
	LatestBlockHash   string `json:"latest_block_hash"`
	Syncing           bool   `json:"syncing"`
}

type statusResult struct {
	ChainID  string `json:"chain_id"`
	SyncInfo struct {
		LatestBlockHeight int64  `json:"latest_block_height"`
		LatestBlockHash   string `json:"latest_block_hash"`
		Syncing           bool   `json:"syncing"`
	} `json:"sync_info"`
}

// Status retrieves node and chain status.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var result statusResult
	if err := c.call(ctx, "status", nil, &result); err != nil {
		return nil, err
	}
	return &StatusResult{
		ChainID:           result.ChainID,
		LatestBlockHeight: result.SyncInfo.LatestBlockHeight,
		LatestBlockHash:   result.SyncInfo.LatestBlockHash,
		Syncing:           result.SyncInfo.Syncing,
	}, nil
}

// GasPrice retrieves the gas price at the latest block.
func (c *Client) GasPrice(ctx context.Context) (string, error) {
	var result struct {
		GasPrice string `json:"gas_price"`
	}
	if err := c.call(ctx, "gas_price", []interface{}{nil}, &result); err != nil {
		return "", err
	}
	return result.GasPrice, nil
}

// ValidateCryptoHash checks a base58 block/tx/receipt hash decodes to
// 32 bytes.
func ValidateCryptoHash(s string) error {
	data, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("decode hash %q: %w", s, err)
	}
	if len(data) != 32 {
		return fmt.Errorf("hash %q: %d bytes, want 32", s, len(data))
	}
	return nil
}
