package evm

import (
	"testing"

	"github.com/emperorhan/chainaudit/internal/chain/evm/evmtest"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/stretchr/testify/assert"
)

func TestScanBytecode_CollectsSelectors(t *testing.T) {
	p := ScanBytecode(evmtest.Dispatcher("mint(address,uint256)", "owner()"))

	assert.False(t, p.Empty())
	assert.Equal(t, 2, p.SelectorCount())
	assert.True(t, p.Has("mint(address,uint256)"))
	assert.True(t, p.Has("burn(uint256)", "owner()"))
	assert.False(t, p.Has("burn(uint256)"))
	assert.False(t, p.HasSelfDestruct)
}

func TestScanBytecode_SkipsPushData(t *testing.T) {
	// SELFDESTRUCT and DELEGATECALL bytes appear only as PUSH2 immediates.
	code := []byte{byte(vm.PUSH2), byte(vm.SELFDESTRUCT), byte(vm.DELEGATECALL), byte(vm.STOP)}
	p := ScanBytecode(code)
	assert.False(t, p.HasSelfDestruct)
	assert.False(t, p.HasDelegateCall)

	code = append(evmtest.Dispatcher("withdraw()"), byte(vm.SELFDESTRUCT))
	p = ScanBytecode(code)
	assert.True(t, p.HasSelfDestruct)
}

func TestScanBytecode_TruncatedPush(t *testing.T) {
	p := ScanBytecode([]byte{byte(vm.PUSH4), 0x01, 0x02})
	assert.Equal(t, 0, p.SelectorCount())
}

func TestProfile_ZeroValue(t *testing.T) {
	var p Profile
	assert.True(t, p.Empty())
	assert.False(t, p.Has("owner()"))
}
