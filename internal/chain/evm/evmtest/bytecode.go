// Package evmtest builds contract bytecode fixtures for tests.
package evmtest

import (
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
)

// Dispatcher assembles a minimal selector-dispatch table for the given
// function signatures, as solc emits at the top of a contract.
func Dispatcher(signatures ...string) []byte {
	code := []byte{byte(vm.PUSH1), 0x80, byte(vm.PUSH1), 0x40, byte(vm.MSTORE)}
	for _, sig := range signatures {
		sel := crypto.Keccak256([]byte(sig))[:4]
		code = append(code, byte(vm.DUP1), byte(vm.PUSH4))
		code = append(code, sel...)
		code = append(code, byte(vm.EQ), byte(vm.PUSH2), 0x01, 0x00, byte(vm.JUMPI))
	}
	return append(code, byte(vm.STOP))
}

// WithSelfDestruct appends a SELFDESTRUCT opcode after the dispatch table.
func WithSelfDestruct(code []byte) []byte {
	out := append([]byte{}, code...)
	return append(out, byte(vm.CALLER), byte(vm.SELFDESTRUCT))
}
