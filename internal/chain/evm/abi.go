package evm

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrEmptyReturn is returned when a contract call yields no data, which is what
// calling a missing function on a contract without a fallback looks like.
var ErrEmptyReturn = errors.New("contract returned no data")

var (
	stringArgs  = mustArguments("string")
	bytes32Args = mustArguments("bytes32")
	uint256Args = mustArguments("uint256")
	addressArgs = mustArguments("address")
)

func mustArguments(typ string) abi.Arguments {
	t, err := abi.NewType(typ, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %s: %v", typ, err))
	}
	return abi.Arguments{{Type: t}}
}

// Selector returns the 4-byte function selector of a canonical signature such as "name()".
func Selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

func encodeCall(signature string, args ...common.Address) []byte {
	sel := Selector(signature)
	data := append([]byte{}, sel[:]...)
	for _, a := range args {
		packed, _ := addressArgs.Pack(a)
		data = append(data, packed...)
	}
	return data
}

// decodeString accepts both ABI strings and the bytes32 names some early tokens return.
func decodeString(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyReturn
	}
	if vals, err := stringArgs.Unpack(data); err == nil {
		return strings.TrimSpace(vals[0].(string)), nil
	}
	vals, err := bytes32Args.Unpack(data)
	if err != nil {
		return "", fmt.Errorf("decode string: %w", err)
	}
	raw := vals[0].([32]byte)
	return strings.TrimSpace(string(bytes.TrimRight(raw[:], "\x00"))), nil
}

func decodeUint8(data []byte) (uint8, error) {
	if len(data) == 0 {
		return 0, ErrEmptyReturn
	}
	// Some tokens declare decimals as uint256; accept any word whose value fits.
	vals, err := uint256Args.Unpack(data)
	if err != nil {
		return 0, fmt.Errorf("decode uint8: %w", err)
	}
	v := vals[0].(*big.Int)
	if !v.IsUint64() || v.Uint64() > 255 {
		return 0, fmt.Errorf("decode uint8: value %s out of range", v)
	}
	return uint8(v.Uint64()), nil
}

func decodeUint256(data []byte) (*big.Int, error) {
	if len(data) == 0 {
		return nil, ErrEmptyReturn
	}
	vals, err := uint256Args.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("decode uint256: %w", err)
	}
	return vals[0].(*big.Int), nil
}

func decodeAddress(data []byte) (common.Address, error) {
	if len(data) == 0 {
		return common.Address{}, ErrEmptyReturn
	}
	vals, err := addressArgs.Unpack(data)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode address: %w", err)
	}
	return vals[0].(common.Address), nil
}
