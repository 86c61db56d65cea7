package evm

import (
	"github.com/ethereum/go-ethereum/core/vm"
)

// Profile summarises what a deployed contract can do, read from its bytecode.
type Profile struct {
	selectors       map[[4]byte]struct{}
	HasSelfDestruct bool
	HasDelegateCall bool
	Size            int
}

// ScanBytecode walks the instruction stream, collecting PUSH4 operands as
// candidate function selectors and skipping push data so that immediate bytes
// are never read as opcodes.
func ScanBytecode(code []byte) Profile {
	p := Profile{selectors: make(map[[4]byte]struct{}), Size: len(code)}
	for pc := 0; pc < len(code); pc++ {
		op := vm.OpCode(code[pc])
		switch {
		case op == vm.SELFDESTRUCT:
			p.HasSelfDestruct = true
		case op == vm.DELEGATECALL:
			p.HasDelegateCall = true
		case op >= vm.PUSH1 && op <= vm.PUSH32:
			n := int(op-vm.PUSH1) + 1
			if op == vm.PUSH4 && pc+4 < len(code) {
				var sel [4]byte
				copy(sel[:], code[pc+1:pc+5])
				p.selectors[sel] = struct{}{}
			}
			pc += n
		}
	}
	return p
}

// Empty reports whether there was no code to scan.
func (p Profile) Empty() bool { return p.Size == 0 }

// Has reports whether the contract dispatches any of the given signatures.
func (p Profile) Has(signatures ...string) bool {
	for _, sig := range signatures {
		if _, ok := p.selectors[Selector(sig)]; ok {
			return true
		}
	}
	return false
}

func (p Profile) SelectorCount() int { return len(p.selectors) }
