package domain

// TransferRecord is a persisted token movement (mint, transfer or burn).
// Corresponds to the transfers table in PostgreSQL.
type TransferRecord struct {
	TransferID  string    // PRIMARY KEY, deterministic hash
	Contract    string    // token contract account id
	Kind        EventKind // ft_mint | ft_transfer | ft_burn
	FromAccount *string   // debited account (nullable for mints)
	ToAccount   *string   // credited account (nullable for burns)
	Amount      string    // u128 base-10 string
	Memo        *string   // optional transfer memo
	BlockHeight int64     // block of the emitting receipt
	ReceiptID   string    // base58 receipt hash
	EventIndex  int       // index within the receipt's logs
	Timestamp   int64     // block timestamp (ms)
	CreatedAt   int64     // record creation timestamp (ms)
}

// HolderBalance is the indexer's view of one account's token balance.
// Corresponds to the holders table in PostgreSQL.
type HolderBalance struct {
	Contract    string // token contract account id
	AccountID   string // holder account
	Balance     string // u128 base-10 string
	BlockHeight int64  // block the balance was last updated at
	UpdatedAt   int64  // Unix timestamp in milliseconds
}

// TransferTimeseriesPoint is an analytics rollup of token movements
// within one aggregation interval. Stored in ClickHouse.
type TransferTimeseriesPoint struct {
	Contract      string
	TimestampMs   int64 // interval start
	BlockHeight   int64 // highest block in the interval
	TransferCount int
	MintCount     int
	BurnCount     int
	Volume        float64 // transferred amount, approximate, smallest units
}
