package metadata

import (
	"github.com/emperorhan/chainaudit/internal/chain/evm"
	"github.com/emperorhan/chainaudit/internal/domain/model"
)

var (
	mintSelectors      = []string{"mint(address,uint256)", "mint(uint256)", "mintTo(address,uint256)"}
	burnSelectors      = []string{"burn(uint256)", "burnFrom(address,uint256)", "burn(address,uint256)"}
	pauseSelectors     = []string{"pause()", "unpause()"}
	blacklistSelectors = []string{"blacklist(address)", "addToBlacklist(address)", "setBlacklist(address,bool)", "addBot(address)"}
)

// deriveFlags maps a bytecode profile and the owner read to capability flags.
// Ownership counts as renounced only when owner() answered the zero address.
func deriveFlags(p evm.Profile, ownerRead bool, owner model.Address) model.SecurityFlags {
	return model.SecurityFlags{
		HasOwner:             ownerRead,
		HasMintFunction:      p.Has(mintSelectors...),
		HasBurnFunction:      p.Has(burnSelectors...),
		HasPauseFunction:     p.Has(pauseSelectors...),
		HasBlacklistFunction: p.Has(blacklistSelectors...),
		OwnershipRenounced:   ownerRead && model.IsZero(owner),
	}
}
