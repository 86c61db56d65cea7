package model

import (
	"math/big"
	"testing"

	"github.com/emperorhan/chainaudit/internal/domain/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress(" 0x00000000000000000000000000000000000000aa ")
	require.NoError(t, err)
	assert.Equal(t, byte(0xaa), addr[19])

	_, err = ParseAddress("0x1234")
	assert.True(t, apperr.IsValidation(err))

	_, err = ParseAddress("")
	assert.True(t, apperr.IsValidation(err))
}

func TestParseAddresses_FailsOnFirstMalformed(t *testing.T) {
	_, err := ParseAddresses([]string{"0x00000000000000000000000000000000000000aa", "nope"})
	assert.True(t, apperr.IsValidation(err))
}

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero(ZeroAddress))
	assert.False(t, IsZero(FallbackOwner))
}

func TestDefaultTotalSupply(t *testing.T) {
	want, ok := new(big.Int).SetString("1000000000000000000000000", 10)
	require.True(t, ok)
	assert.Equal(t, 0, want.Cmp(DefaultTotalSupply()))
}

func TestTokenRecord_CloneDoesNotShareSupply(t *testing.T) {
	r := TokenRecord{TotalSupply: big.NewInt(5)}
	c := r.Clone()
	c.TotalSupply.SetInt64(9)
	assert.Equal(t, int64(5), r.TotalSupply.Int64())
}

func TestScamFlags_Issues(t *testing.T) {
	f := ScamFlags{HasBlacklist: true, HasLiquidityDrain: true, IsHoneypot: true}
	assert.Equal(t, []string{
		"holder blacklist function",
		"liquidity can be withdrawn by a privileged account",
		"honeypot risk",
	}, f.Issues())
	assert.Empty(t, ScamFlags{}.Issues())
}
