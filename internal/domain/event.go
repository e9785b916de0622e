package domain

// NEP-297 event envelope constants for NEP-141 tokens.
const (
	EventStandard = "nep141"
	EventVersion  = "1.0.0"
)

// EventKind identifies a NEP-141 event type.
type EventKind string

const (
	EventMint     EventKind = "ft_mint"
	EventTransfer EventKind = "ft_transfer"
	EventBurn     EventKind = "ft_burn"
)

// TokenEvent is a single NEP-297 token event extracted from an
// EVENT_JSON execution log line.
type TokenEvent struct {
	Kind     EventKind
	Contract AccountID // emitting contract

	// From is the debited account: old_owner_id for transfers,
	// owner_id for burns, empty for mints.
	From AccountID
	// To is the credited account: new_owner_id for transfers,
	// owner_id for mints, empty for burns.
	To AccountID

	Amount Balance
	Memo   *string

	// Chain position of the emitting receipt.
	BlockHeight int64
	ReceiptID   string // base58 receipt hash
	EventIndex  int    // index within the receipt's logs
	Timestamp   int64  // block timestamp (ms)
}
