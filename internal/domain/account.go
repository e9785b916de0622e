package domain

import (
	"fmt"
	"strings"
)

// Account ID length bounds enforced by the NEAR protocol.
const (
	MinAccountIDLen = 2
	MaxAccountIDLen = 64
)

// AccountID is a NEAR account identifier, e.g. "itlx.testnet" or a
// 64-character hex implicit account.
type AccountID string

// Validate checks the account ID against NEAR naming rules:
// lowercase alphanumeric parts with '-' or '_' inside them, joined by dots.
func (a AccountID) Validate() error {
	s := string(a)
	if len(s) < MinAccountIDLen || len(s) > MaxAccountIDLen {
		return fmt.Errorf("account id %q: length must be %d..%d", s, MinAccountIDLen, MaxAccountIDLen)
	}

	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return fmt.Errorf("account id %q: empty part", s)
		}
		if part[0] == '-' || part[0] == '_' || part[len(part)-1] == '-' || part[len(part)-1] == '_' {
			return fmt.Errorf("account id %q: part %q starts or ends with separator", s, part)
		}
		for _, c := range part {
			switch {
			case c >= 'a' && c <= 'z':
			case c >= '0' && c <= '9':
			case c == '-' || c == '_':
			default:
				return fmt.Errorf("account id %q: invalid character %q", s, c)
			}
		}
	}

	return nil
}

// IsImplicit reports whether the account is a 64-character hex implicit account.
func (a AccountID) IsImplicit() bool {
	s := string(a)
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// IsSubaccountOf reports whether a is a direct or indirect subaccount of parent,
// e.g. "itlx.brainstems.testnet" is a subaccount of "brainstems.testnet".
func (a AccountID) IsSubaccountOf(parent AccountID) bool {
	return strings.HasSuffix(string(a), "."+string(parent))
}

func (a AccountID) String() string {
	return string(a)
}
