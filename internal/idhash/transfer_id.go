// Package idhash derives the deterministic primary keys the stores use.
// The same event indexed twice must produce the same ID so duplicate
// inserts are rejected instead of double-counted.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTransferID computes a deterministic transfer ID using SHA256.
// Formula: SHA256(contract|receipt_id|event_index|block_height)
// Returns hex-encoded hash (64 characters).
func ComputeTransferID(contract, receiptID string, eventIndex int, blockHeight int64) string {
	data := fmt.Sprintf("%s|%s|%d|%d", contract, receiptID, eventIndex, blockHeight)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeDeploymentID computes a deterministic deployment-run ID.
// Formula: SHA256(network|token_account|started_at_ms)
func ComputeDeploymentID(network, tokenAccount string, startedAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", network, tokenAccount, startedAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
