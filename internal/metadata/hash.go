package metadata

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
)

// ReferenceHash computes the SHA-256 of the exact hosted document bytes.
// The chain stores this as reference_hash, binding the on-chain metadata
// to one specific hosted copy. Whitespace matters: hash the file as
// published, not a re-serialization.
func ReferenceHash(doc []byte) []byte {
	sum := sha256.Sum256(doc)
	return sum[:]
}

// ReferenceHashBase64 is ReferenceHash encoded the way the init call and
// block explorers expect it.
func ReferenceHashBase64(doc []byte) string {
	return base64.StdEncoding.EncodeToString(ReferenceHash(doc))
}

// LoadDocument reads and parses a metadata document file, returning both
// the parsed form and the raw bytes the reference hash must cover.
func LoadDocument(path string) (*domain.MetadataDocument, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read metadata document: %w", err)
	}

	var doc domain.MetadataDocument
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("parse metadata document %s: %w", path, err)
	}

	return &doc, raw, nil
}

// ValidateDocument checks the hosted document for the mistakes the
// deployment guide warns about: wrong spec string, missing name/symbol,
// and a decimal count that does not match the planned supply encoding.
func ValidateDocument(doc *domain.MetadataDocument) error {
	if doc.Spec != domain.FTMetadataSpec {
		return fmt.Errorf("document spec %q: want %q", doc.Spec, domain.FTMetadataSpec)
	}
	if doc.Name == "" {
		return fmt.Errorf("document name is empty")
	}
	if doc.Symbol == "" {
		return fmt.Errorf("document symbol is empty")
	}
	if doc.Decimals < 0 || doc.Decimals > 38 {
		return fmt.Errorf("document decimals %d out of range", doc.Decimals)
	}
	if doc.TotalSupply != "" {
		if _, err := domain.ParseBalance(doc.TotalSupply); err != nil {
			return fmt.Errorf("document totalSupply: %w", err)
		}
	}
	return nil
}

// OnChain builds the NEP-148 metadata for an init call from the hosted
// document, its published URL and its raw bytes.
func OnChain(doc *domain.MetadataDocument, referenceURL string, raw []byte) domain.TokenMetadata {
	md := domain.TokenMetadata{
		Spec:     doc.Spec,
		Name:     doc.Name,
		Symbol:   doc.Symbol,
		Decimals: doc.Decimals,
	}
	if doc.Icon != "" {
		icon := doc.Icon
		md.Icon = &icon
	}
	if referenceURL != "" {
		ref := referenceURL
		md.Reference = &ref
		md.ReferenceHash = ReferenceHash(raw)
	}
	return md
}
