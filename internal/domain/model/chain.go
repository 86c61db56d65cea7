package model

type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainBase     Chain = "base"
	ChainPolygon  Chain = "polygon"
	ChainArbitrum Chain = "arbitrum"
	ChainBSC      Chain = "bsc"
	ChainHardhat  Chain = "hardhat"
)

func (c Chain) String() string {
	return string(c)
}

// Valid reports whether c is one of the supported EVM chains.
func (c Chain) Valid() bool {
	switch c {
	case ChainEthereum, ChainBase, ChainPolygon, ChainArbitrum, ChainBSC, ChainHardhat:
		return true
	}
	return false
}

// DexScreenerID returns the chain identifier used by the DexScreener API.
func (c Chain) DexScreenerID() string {
	if c == ChainHardhat {
		return ""
	}
	return string(c)
}
