package model

import (
	"math/big"
	"time"
)

// DefaultDecimals is used when decimals() cannot be read.
const DefaultDecimals uint8 = 18

// DefaultTotalSupply returns one million whole tokens at 18 decimals.
func DefaultTotalSupply() *big.Int {
	return new(big.Int).Mul(big.NewInt(1_000_000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// TokenRecord is the identity snapshot of a token contract.
type TokenRecord struct {
	Address     Address   `json:"address"`
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol"`
	Decimals    uint8     `json:"decimals"`
	TotalSupply *big.Int  `json:"total_supply"`
	Owner       Address   `json:"owner"`
	Exists      bool      `json:"exists"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
}

// Clone returns a deep copy; TotalSupply is not shared.
func (r TokenRecord) Clone() TokenRecord {
	if r.TotalSupply != nil {
		r.TotalSupply = new(big.Int).Set(r.TotalSupply)
	}
	return r
}

// SecurityFlags describes which privileged capabilities a token's logic exposes.
type SecurityFlags struct {
	HasOwner             bool      `json:"has_owner"`
	HasMintFunction      bool      `json:"has_mint_function"`
	HasBurnFunction      bool      `json:"has_burn_function"`
	HasPauseFunction     bool      `json:"has_pause_function"`
	HasBlacklistFunction bool      `json:"has_blacklist_function"`
	OwnershipRenounced   bool      `json:"ownership_renounced"`
	SetBy                Address   `json:"set_by"`
	SetAt                time.Time `json:"set_at"`
}
