package nearrpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// TxOutcome is the subset of a transaction status result the platform
// consumes: overall success, the decoded return value, and every log line
// across all receipts (where EVENT_JSON lines live).
type TxOutcome struct {
	Succeeded    bool
	SuccessValue []byte   // decoded return value on success
	FailureMsg   string   // compact failure description otherwise
	Logs         []string // logs of all receipts, in receipt order
	ReceiptIDs   []string
}

// TxStatus looks up a transaction by its base58 hash. senderID routes the
// lookup to the right shard.
func (c *Client) TxStatus(ctx context.Context, txHash, senderID string) (*TxOutcome, error) {
	if err := ValidateCryptoHash(txHash); err != nil {
		return nil, err
	}

	params := []interface{}{txHash, senderID}
	var raw json.RawMessage
	if err := c.call(ctx, "tx", params, &raw); err != nil {
		return nil, err
	}

	return parseTxOutcome(raw)
}

// parseTxOutcome picks the needed fields out of the deeply nested tx
// result. The shape varies by outcome kind, so a loose document walk
// beats a full struct mapping here.
func parseTxOutcome(raw []byte) (*TxOutcome, error) {
	doc := gjson.ParseBytes(raw)
	out := &TxOutcome{}

	status := doc.Get("status")
	if !status.Exists() {
		return nil, fmt.Errorf("tx result has no status")
	}

	if sv := status.Get("SuccessValue"); sv.Exists() {
		out.Succeeded = true
		if sv.String() != "" {
			decoded, err := base64.StdEncoding.DecodeString(sv.String())
			if err != nil {
				return nil, fmt.Errorf("decode SuccessValue: %w", err)
			}
			out.SuccessValue = decoded
		}
	} else if f := status.Get("Failure"); f.Exists() {
		out.FailureMsg = f.Raw
	}

	doc.Get("receipts_outcome").ForEach(func(_, receipt gjson.Result) bool {
		out.ReceiptIDs = append(out.ReceiptIDs, receipt.Get("id").String())
		receipt.Get("outcome.logs").ForEach(func(_, logLine gjson.Result) bool {
			out.Logs = append(out.Logs, logLine.String())
			return true
		})
		return true
	})

	return out, nil
}
