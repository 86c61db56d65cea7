package heuristic

import (
	"crypto/sha256"

	"github.com/emperorhan/chainaudit/internal/chain/evm"
	"github.com/emperorhan/chainaudit/internal/domain/model"
)

// Weights of the five checks. All five together sum to 125.
const (
	WeightHiddenMint      = 25
	WeightBlacklist       = 30
	WeightHighTax         = 20
	WeightLiquidityDrain  = 35
	WeightOwnershipIssues = 15

	// HoneypotThreshold is the clamped score from which a token counts as a honeypot.
	HoneypotThreshold = 70
)

var (
	mintSignatures = []string{
		"mint(address,uint256)",
		"mint(uint256)",
		"mintTo(address,uint256)",
		"issue(uint256)",
	}
	supplyCapSignatures = []string{
		"cap()",
		"maxSupply()",
		"MAX_SUPPLY()",
	}
	blacklistSignatures = []string{
		"blacklist(address)",
		"addToBlacklist(address)",
		"setBlacklist(address,bool)",
		"blacklistAddress(address,bool)",
		"addBot(address)",
		"setBots(address[],bool)",
		"blockAddress(address)",
	}
	feeSetterSignatures = []string{
		"setFee(uint256)",
		"setTaxFee(uint256)",
		"setSellFee(uint256)",
		"setBuyFee(uint256)",
		"setFees(uint256,uint256)",
		"updateFees(uint256,uint256)",
		"setTaxes(uint256,uint256)",
	}
	drainSignatures = []string{
		"withdraw()",
		"withdrawETH()",
		"emergencyWithdraw()",
		"withdrawTokens(address,uint256)",
		"rescueTokens(address,uint256)",
		"removeLiquidityETH(address,uint256,uint256,uint256,address,uint256)",
	}
	upgradeSignatures = []string{
		"upgradeTo(address)",
		"upgradeToAndCall(address,bytes)",
	}
)

// checkBytecode evaluates the five checks against a contract profile.
func checkBytecode(p evm.Profile) model.ScamFlags {
	return model.ScamFlags{
		HasHiddenMint:      p.Has(mintSignatures...) && !p.Has(supplyCapSignatures...),
		HasBlacklist:       p.Has(blacklistSignatures...),
		HasHighTax:         p.Has(feeSetterSignatures...),
		HasLiquidityDrain:  p.HasSelfDestruct || p.Has(drainSignatures...),
		HasOwnershipIssues: (p.Has("owner()") && !p.Has("renounceOwnership()")) || p.Has(upgradeSignatures...),
		Source:             model.ScamSourceBytecode,
	}
}

// checkSeeded is the reproducible placeholder used when no bytecode can be
// read. Each flag is raised when its byte of SHA-256(seed || address) falls
// in the lowest quarter. It is a placeholder, not a security assessment.
func checkSeeded(seed []byte, addr model.Address) model.ScamFlags {
	h := sha256.New()
	h.Write(seed)
	h.Write(addr.Bytes())
	sum := h.Sum(nil)
	raised := func(i int) bool { return sum[i] < 0x40 }
	return model.ScamFlags{
		HasHiddenMint:      raised(0),
		HasBlacklist:       raised(1),
		HasHighTax:         raised(2),
		HasLiquidityDrain:  raised(3),
		HasOwnershipIssues: raised(4),
		Source:             model.ScamSourceSeededPlaceholder,
	}
}

// RawScore sums the weights of the raised flags without clamping.
func RawScore(f model.ScamFlags) int {
	score := 0
	if f.HasHiddenMint {
		score += WeightHiddenMint
	}
	if f.HasBlacklist {
		score += WeightBlacklist
	}
	if f.HasHighTax {
		score += WeightHighTax
	}
	if f.HasLiquidityDrain {
		score += WeightLiquidityDrain
	}
	if f.HasOwnershipIssues {
		score += WeightOwnershipIssues
	}
	return score
}

// scored fills RawScore, the clamped RiskScore and IsHoneypot.
func scored(f model.ScamFlags) model.ScamFlags {
	f.RawScore = RawScore(f)
	f.RiskScore = model.ClampScore(f.RawScore)
	f.IsHoneypot = int(f.RiskScore) >= HoneypotThreshold
	return f
}
