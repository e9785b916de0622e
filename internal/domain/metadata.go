package domain

import "fmt"

// FTMetadataSpec is the metadata standard version the contract reports.
const FTMetadataSpec = "ft-1.0.0"

// TokenMetadata is the on-chain NEP-148 fungible token metadata,
// as returned by the ft_metadata view call.
type TokenMetadata struct {
	Spec          string  `json:"spec"`
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	Icon          *string `json:"icon"`
	Reference     *string `json:"reference"`
	ReferenceHash []byte  `json:"reference_hash"` // 32-byte SHA-256, base64 on the wire
	Decimals      int     `json:"decimals"`
}

// Validate applies the contract's assert_valid rules: the spec version must
// match, reference and reference_hash must be paired, and the hash must be
// exactly 32 bytes.
func (m TokenMetadata) Validate() error {
	if m.Spec != FTMetadataSpec {
		return fmt.Errorf("metadata spec %q: want %q", m.Spec, FTMetadataSpec)
	}
	if m.Name == "" {
		return fmt.Errorf("metadata name is empty")
	}
	if m.Symbol == "" {
		return fmt.Errorf("metadata symbol is empty")
	}
	if (m.Reference == nil) != (m.ReferenceHash == nil) {
		return fmt.Errorf("reference and reference_hash must be set together")
	}
	if m.ReferenceHash != nil && len(m.ReferenceHash) != 32 {
		return fmt.Errorf("reference_hash is %d bytes, want 32", len(m.ReferenceHash))
	}
	if m.Decimals < 0 || m.Decimals > 38 {
		return fmt.Errorf("decimals %d out of range", m.Decimals)
	}
	return nil
}

// Socials holds the social links section of the hosted metadata document.
type Socials struct {
	Twitter  string `json:"twitter,omitempty"`
	Telegram string `json:"telegram,omitempty"`
	Discord  string `json:"discord,omitempty"`
	Github   string `json:"github,omitempty"`
}

// MetadataDocument is the full hosted metadata JSON the on-chain
// reference/reference_hash pair points at. It is a superset of the
// on-chain metadata with display-only fields.
type MetadataDocument struct {
	Spec        string   `json:"spec"`
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	Description string   `json:"description,omitempty"`
	Decimals    int      `json:"decimals"`
	TotalSupply string   `json:"totalSupply,omitempty"`
	Website     string   `json:"website,omitempty"`
	Socials     *Socials `json:"socials,omitempty"`
	Links       []string `json:"links,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Reference   string   `json:"reference,omitempty"`
}

// MetadataSnapshot is an on-chain metadata observation at a block height.
// Corresponds to the metadata_snapshots table in PostgreSQL.
type MetadataSnapshot struct {
	Contract      string  // token contract account id
	BlockHeight   int64   // block the view call was resolved at
	Spec          string  //
	Name          string  //
	Symbol        string  //
	Decimals      int     //
	Reference     *string // hosted document URL (nullable)
	ReferenceHash *string // base64 SHA-256 of the hosted document (nullable)
	FetchedAt     int64   // Unix timestamp in milliseconds
	CreatedAt     int64   // record creation timestamp (ms)
}
