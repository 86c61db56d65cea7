package chain

import (
	"context"
	"math/big"

	"github.com/emperorhan/chainaudit/internal/domain/model"
)

//go:generate mockgen -destination=mocks/mock_adapter.go -package=mocks . MetadataReader,TokenReader,HolderReader,CodeReader,AccountReader

// MetadataReader reads the minimal identity fields of a fungible token.
type MetadataReader interface {
	Name(ctx context.Context, token model.Address) (string, error)
	Symbol(ctx context.Context, token model.Address) (string, error)
	Decimals(ctx context.Context, token model.Address) (uint8, error)
}

// TokenReader reads every token field the metadata store records.
type TokenReader interface {
	MetadataReader
	TotalSupply(ctx context.Context, token model.Address) (*big.Int, error)
	// Owner returns the address reported by owner() or getOwner().
	Owner(ctx context.Context, token model.Address) (model.Address, error)
}

// HolderReader reads balanceOf(holder) of a token.
type HolderReader interface {
	BalanceOf(ctx context.Context, token, holder model.Address) (*big.Int, error)
}

// CodeReader returns deployed contract bytecode. Accounts without code yield an empty slice.
type CodeReader interface {
	Code(ctx context.Context, addr model.Address) ([]byte, error)
}

// AccountReader reads account-level state used for owner reputation and activity stats.
type AccountReader interface {
	TransactionCount(ctx context.Context, addr model.Address) (uint64, error)
	Balance(ctx context.Context, addr model.Address) (*big.Int, error)
}
