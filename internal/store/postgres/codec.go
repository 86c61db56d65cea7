package postgres

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/ethereum/go-ethereum/common"
)

// Addresses are stored lower-case so lookups do not depend on checksum casing.
func addrKey(a model.Address) string {
	return strings.ToLower(a.Hex())
}

func parseAddr(s string) model.Address {
	return common.HexToAddress(s)
}

func bigToNumeric(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func numericToBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("parse numeric %q", s)
	}
	return v, nil
}

func uintToNumeric(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func numericToUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return v, nil
}
