// Package nearkey handles NEAR key and account conventions: ed25519 public
// keys in their "ed25519:<base58>" text form, implicit account derivation,
// and the Ledger HD path used by hardware signing.
package nearkey

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
)

// ed25519Prefix is the key-type prefix NEAR CLI and RPC use.
const ed25519Prefix = "ed25519:"

// PublicKey is a 32-byte ed25519 public key.
type PublicKey [32]byte

// ParsePublicKey parses "ed25519:<base58>" (the prefix is optional) and
// rejects encodings that are not canonical curve points.
func ParsePublicKey(s string) (PublicKey, error) {
	raw := strings.TrimPrefix(s, ed25519Prefix)

	data, err := base58.Decode(raw)
	if err != nil {
		return PublicKey{}, fmt.Errorf("decode public key %q: %w", s, err)
	}
	if len(data) != 32 {
		return PublicKey{}, fmt.Errorf("public key %q: %d bytes, want 32", s, len(data))
	}

	// Reject non-canonical or off-curve encodings up front; such keys can
	// never sign anything and always indicate operator error.
	if _, err := new(edwards25519.Point).SetBytes(data); err != nil {
		return PublicKey{}, fmt.Errorf("public key %q: not a valid curve point: %w", s, err)
	}

	var pk PublicKey
	copy(pk[:], data)
	return pk, nil
}

// String returns the "ed25519:<base58>" form.
func (pk PublicKey) String() string {
	return ed25519Prefix + base58.Encode(pk[:])
}

// ImplicitAccountID derives the 64-character hex implicit account this key
// controls.
func (pk PublicKey) ImplicitAccountID() domain.AccountID {
	return domain.AccountID(hex.EncodeToString(pk[:]))
}

// DefaultHDPath is the Ledger derivation path the deployment guide uses.
const DefaultHDPath = "44'/397'/0'/0'/1'"

var hdPathRe = regexp.MustCompile(`^44'/397'(/\d+'){1,3}$`)

// ValidateHDPath checks a Ledger HD derivation path against the NEAR
// convention (coin type 397).
func ValidateHDPath(path string) error {
	if !hdPathRe.MatchString(path) {
		return fmt.Errorf("hd path %q: want 44'/397'/<account>'/<change>'/<index>'", path)
	}
	return nil
}
