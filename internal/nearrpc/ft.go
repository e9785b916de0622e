package nearrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
)

// FT view method names defined by NEP-141/145/148.
const (
	MethodFTTotalSupply    = "ft_total_supply"
	MethodFTBalanceOf      = "ft_balance_of"
	MethodFTMetadata       = "ft_metadata"
	MethodStorageBalanceOf = "storage_balance_of"
)

// Viewer executes read-only contract calls. *Client implements it; tests
// and the view cache substitute their own.
type Viewer interface {
	CallFunction(ctx context.Context, accountID, method string, args []byte, finality string) (*CallResult, error)
}

// FTTotalSupply queries the token's total supply.
func FTTotalSupply(ctx context.Context, v Viewer, contract string) (domain.Balance, error) {
	res, err := v.CallFunction(ctx, contract, MethodFTTotalSupply, nil, FinalityFinal)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("%s: %w", MethodFTTotalSupply, err)
	}

	var supply domain.Balance
	if err := json.Unmarshal(res.Result, &supply); err != nil {
		return domain.Balance{}, fmt.Errorf("%s: %w", MethodFTTotalSupply, err)
	}
	return supply, nil
}

// FTBalanceOf queries one account's token balance.
func FTBalanceOf(ctx context.Context, v Viewer, contract, accountID string) (domain.Balance, error) {
	args, _ := json.Marshal(map[string]string{"account_id": accountID})

	res, err := v.CallFunction(ctx, contract, MethodFTBalanceOf, args, FinalityFinal)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("%s(%s): %w", MethodFTBalanceOf, accountID, err)
	}

	var balance domain.Balance
	if err := json.Unmarshal(res.Result, &balance); err != nil {
		return domain.Balance{}, fmt.Errorf("%s(%s): %w", MethodFTBalanceOf, accountID, err)
	}
	return balance, nil
}

// FTMetadata queries the token's NEP-148 metadata.
func FTMetadata(ctx context.Context, v Viewer, contract string) (*domain.TokenMetadata, error) {
	res, err := v.CallFunction(ctx, contract, MethodFTMetadata, nil, FinalityFinal)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MethodFTMetadata, err)
	}

	var md domain.TokenMetadata
	if err := json.Unmarshal(res.Result, &md); err != nil {
		return nil, fmt.Errorf("%s: %w", MethodFTMetadata, err)
	}
	return &md, nil
}

// StorageBalanceView is the storage_balance_of result.
type StorageBalanceView struct {
	Total     string `json:"total"`
	Available string `json:"available"`
}

// StorageBalanceOf queries one account's storage balance. Returns nil for
// unregistered accounts (the contract returns JSON null).
func StorageBalanceOf(ctx context.Context, v Viewer, contract, accountID string) (*StorageBalanceView, error) {
	args, _ := json.Marshal(map[string]string{"account_id": accountID})

	res, err := v.CallFunction(ctx, contract, MethodStorageBalanceOf, args, FinalityFinal)
	if err != nil {
		return nil, fmt.Errorf("%s(%s): %w", MethodStorageBalanceOf, accountID, err)
	}

	var sb *StorageBalanceView
	if err := json.Unmarshal(res.Result, &sb); err != nil {
		return nil, fmt.Errorf("%s(%s): %w", MethodStorageBalanceOf, accountID, err)
	}
	return sb, nil
}
