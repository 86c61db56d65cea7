package model

import (
	"strings"

	"github.com/emperorhan/chainaudit/internal/domain/apperr"
	"github.com/ethereum/go-ethereum/common"
)

// Address is a 20-byte account or contract identifier.
type Address = common.Address

// ZeroAddress is the sentinel for "no address".
var ZeroAddress = Address{}

// FallbackOwner is substituted when a token's owner() read fails.
var FallbackOwner = common.HexToAddress("0x000000000000000000000000000000000000dEaD")

// ParseAddress parses a 0x-prefixed 40 hex character address.
func ParseAddress(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return ZeroAddress, apperr.Validation("address", "malformed address "+quote(raw))
	}
	return common.HexToAddress(raw), nil
}

// ParseAddresses parses every entry of raw, failing on the first malformed one.
func ParseAddresses(raw []string) ([]Address, error) {
	out := make([]Address, 0, len(raw))
	for _, r := range raw {
		addr, err := ParseAddress(r)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// IsZero reports whether a is the zero-address sentinel.
func IsZero(a Address) bool {
	return a == ZeroAddress
}

func quote(s string) string {
	if len(s) > 64 {
		s = s[:64] + "..."
	}
	return `"` + s + `"`
}
