// Package metadata handles the ITLX token metadata document: validation,
// reference hashing, and verification of the hosted copy against the
// on-chain reference_hash.
package metadata

import (
	"encoding/base64"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
)

// ITLXIconDataURI is the token icon embedded directly in on-chain metadata.
const ITLXIconDataURI = "data:image/svg+xml,%3Csvg version='1.0' xmlns='http://www.w3.org/2000/svg' width='721.000000pt' height='399.000000pt' viewBox='0 0 721.000000 399.000000' preserveAspectRatio='xMidYMid meet'%3E%3Cg transform='translate(0.000000,399.000000) scale(0.100000,-0.100000)' fill='%23000000' stroke='none'%3E%3Cpath d='M0 1995 l0 -1995 3605 0 3605 0 0 1995 0 1995 -3605 0 -3605 0 0 -1995z m2888 1200 c110 -22 190 -64 252 -132 183 -200 178 -507 -15 -830 -75 -126 -101 -152 -50 -49 163 327 192 597 83 769 -58 91 -160 160 -277 187 -81 19 -231 15 -351 -10 -134 -27 -260 -74 -438 -161 l-143 -71 46 -50 c57 -63 109 -151 137 -231 32 -89 32 -263 1 -362 -70 -221 -249 -381 -473 -421 -129 -23 -268 -7 -325 38 -34 27 -65 92 -65 138 0 83 188 426 362 660 l33 45 -64 -50 c-342 -266 -660 -644 -817 -970 -168 -350 -171 -585 -9 -734 65 -59 135 -87 243 -100 307 -34 733 104 1261 408 60 34 45 14 -42 -57 -438 -358 -1180 -536 -1521 -365 -69 34 -140 111 -167 181 -34 85 -32 269 4 405 66 249 202 520 394 786 9 12 8 31 -3 81 -18 85 -17 229 1 309 38 159 150 298 298 370 178 87 378 93 570 16 l68 -28 97 46 c345 161 680 228 910 182z'/%3E%3C/g%3E%3C/svg%3E"

// ITLX deployment constants.
const (
	ITLXName         = "Intellex AI Protocol Token"
	ITLXSymbol       = "ITLX"
	ITLXDecimals     = 24
	ITLXReferenceURL = "https://raw.githubusercontent.com/brainstems/itlx_nep141_token/refs/heads/master/metadata.json"

	// itlxReferenceHashB64 is the SHA-256 of the hosted metadata.json,
	// baked into the contract's new_default_meta.
	itlxReferenceHashB64 = "K29udivYwweOUnCZPFt/KhcMmm0DQLvzYoVdKXN41P8="
)

// ITLXTotalSupplyWhole is the planned supply in whole tokens.
const ITLXTotalSupplyWhole = 1_000_000_000

// DefaultITLX returns the on-chain metadata the contract bakes into
// new_default_meta.
func DefaultITLX() domain.TokenMetadata {
	hash, err := base64.StdEncoding.DecodeString(itlxReferenceHashB64)
	if err != nil {
		panic("itlx reference hash: " + err.Error())
	}

	icon := ITLXIconDataURI
	ref := ITLXReferenceURL
	return domain.TokenMetadata{
		Spec:          domain.FTMetadataSpec,
		Name:          ITLXName,
		Symbol:        ITLXSymbol,
		Icon:          &icon,
		Reference:     &ref,
		ReferenceHash: hash,
		Decimals:      ITLXDecimals,
	}
}

// ITLXTotalSupply returns the planned supply in smallest units,
// 1,000,000,000 × 10^24.
func ITLXTotalSupply() domain.Balance {
	return domain.SupplyUnits(ITLXTotalSupplyWhole, ITLXDecimals)
}
