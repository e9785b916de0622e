package domain

import (
	"strings"
	"testing"
)

func validMetadata() TokenMetadata {
	ref := "https://meta.intellex.xyz/itlx.json"
	hash := make([]byte, 32)
	return TokenMetadata{
		Spec:          FTMetadataSpec,
		Name:          "Intellex AI Protocol Token",
		Symbol:        "ITLX",
		Reference:     &ref,
		ReferenceHash: hash,
		Decimals:      24,
	}
}

func TestTokenMetadata_Valid(t *testing.T) {
	if err := validMetadata().Validate(); err != nil {
		t.Errorf("expected valid metadata: %v", err)
	}

	// Reference pair fully absent is also valid
	md := validMetadata()
	md.Reference = nil
	md.ReferenceHash = nil
	if err := md.Validate(); err != nil {
		t.Errorf("metadata without reference should be valid: %v", err)
	}
}

func TestTokenMetadata_WrongSpec(t *testing.T) {
	md := validMetadata()
	md.Spec = "ft-2.0.0"
	if err := md.Validate(); err == nil || !strings.Contains(err.Error(), "spec") {
		t.Errorf("expected spec error, got %v", err)
	}
}

func TestTokenMetadata_ReferencePairing(t *testing.T) {
	md := validMetadata()
	md.ReferenceHash = nil
	if err := md.Validate(); err == nil {
		t.Error("reference without hash must fail")
	}

	md = validMetadata()
	md.Reference = nil
	if err := md.Validate(); err == nil {
		t.Error("hash without reference must fail")
	}
}

func TestTokenMetadata_HashLength(t *testing.T) {
	md := validMetadata()
	md.ReferenceHash = make([]byte, 31)
	if err := md.Validate(); err == nil {
		t.Error("31-byte hash must fail")
	}
}

func TestTokenMetadata_EmptyFields(t *testing.T) {
	md := validMetadata()
	md.Name = ""
	if err := md.Validate(); err == nil {
		t.Error("empty name must fail")
	}

	md = validMetadata()
	md.Symbol = ""
	if err := md.Validate(); err == nil {
		t.Error("empty symbol must fail")
	}
}
