package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/emperorhan/chainaudit/internal/chain"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/shopspring/decimal"
)

// LiquiditySource reports on-market liquidity for a token.
type LiquiditySource interface {
	Liquidity(ctx context.Context, token model.Address) (model.LiquidityAnalysis, error)
}

// OwnerQuery identifies the owner to rate. Owner is the zero address when
// stage one could not read it; sources may resolve it themselves.
type OwnerQuery struct {
	Token       model.Address
	Owner       model.Address
	OwnerKnown  bool
	TotalSupply *big.Int
}

// OwnerSource rates the account controlling a token.
type OwnerSource interface {
	Reputation(ctx context.Context, q OwnerQuery) (model.OwnerReputation, error)
}

// TxStatsSource reports token activity.
type TxStatsSource interface {
	Stats(ctx context.Context, token model.Address) (model.TransactionStats, error)
}

const neutralOwnerScore = 50

func defaultLiquidity() model.LiquidityAnalysis {
	return model.LiquidityAnalysis{LiquidityUSD: decimal.Zero, Volume24hUSD: decimal.Zero, Source: "default"}
}

func defaultOwner(q OwnerQuery) model.OwnerReputation {
	return model.OwnerReputation{Owner: q.Owner, SupplyShare: decimal.Zero, Score: neutralOwnerScore, Source: "default"}
}

func defaultTxStats() model.TransactionStats {
	return model.TransactionStats{Source: "default"}
}

// ChainOwnerSource rates owners from on-chain account state. Every reader is
// optional; a missing reader leaves its signal neutral.
type ChainOwnerSource struct {
	Tokens   chain.TokenReader
	Holders  chain.HolderReader
	Accounts chain.AccountReader
	Code     chain.CodeReader
}

func (s ChainOwnerSource) Reputation(ctx context.Context, q OwnerQuery) (model.OwnerReputation, error) {
	owner := q.Owner
	if !q.OwnerKnown {
		if s.Tokens == nil {
			return model.OwnerReputation{}, errors.New("owner unknown and no token reader configured")
		}
		read, err := s.Tokens.Owner(ctx, q.Token)
		if err != nil {
			return model.OwnerReputation{}, fmt.Errorf("read owner: %w", err)
		}
		owner = read
	}

	rep := model.OwnerReputation{Owner: owner, SupplyShare: decimal.Zero, Source: "chain"}
	if model.IsZero(owner) || owner == model.FallbackOwner {
		rep.Renounced = true
		rep.Score = ownerScore(rep)
		return rep, nil
	}

	if s.Accounts != nil {
		n, err := s.Accounts.TransactionCount(ctx, owner)
		if err != nil {
			return model.OwnerReputation{}, fmt.Errorf("owner nonce: %w", err)
		}
		rep.TransactionCount = n
		bal, err := s.Accounts.Balance(ctx, owner)
		if err != nil {
			return model.OwnerReputation{}, fmt.Errorf("owner balance: %w", err)
		}
		rep.BalanceWei = bal
	}
	if s.Code != nil {
		code, err := s.Code.Code(ctx, owner)
		if err != nil {
			return model.OwnerReputation{}, fmt.Errorf("owner code: %w", err)
		}
		rep.IsContract = len(code) > 0
	}
	if s.Holders != nil && q.TotalSupply != nil && q.TotalSupply.Sign() > 0 {
		held, err := s.Holders.BalanceOf(ctx, q.Token, owner)
		if err != nil {
			return model.OwnerReputation{}, fmt.Errorf("owner holdings: %w", err)
		}
		rep.SupplyShare = decimal.NewFromBigInt(held, 0).DivRound(decimal.NewFromBigInt(q.TotalSupply, 0), 6)
	}
	rep.Score = ownerScore(rep)
	return rep, nil
}

// ownerScore rates an owner from 0 (hostile) to 100 (no control). Audited
// tokens by the same owner are not known here and count as neutral.
func ownerScore(rep model.OwnerReputation) uint8 {
	if rep.Renounced {
		return 90
	}
	score := neutralOwnerScore
	if rep.IsContract {
		score += 10
	}
	switch {
	case rep.TransactionCount == 0 && !rep.IsContract:
		score -= 20
	case rep.TransactionCount > 1000:
		score += 10
	}
	if rep.BalanceWei != nil && rep.BalanceWei.Sign() == 0 && !rep.IsContract {
		score -= 10
	}
	switch {
	case rep.SupplyShare.GreaterThan(decimal.NewFromFloat(0.5)):
		score -= 25
	case rep.SupplyShare.GreaterThan(decimal.NewFromFloat(0.2)):
		score -= 10
	}
	return model.ClampScore(score)
}

// RegistryMetrics is the registry view TxStats reads from.
type RegistryMetrics interface {
	GetTokenMetrics(ctx context.Context, token model.Address) (model.TokenMetrics, error)
}

// ErrNoMetrics is returned when the registry holds no metrics for a token.
var ErrNoMetrics = errors.New("no registry metrics")

// RegistryTxStats reads the last committed token metrics.
type RegistryTxStats struct {
	Registry RegistryMetrics
}

func (s RegistryTxStats) Stats(ctx context.Context, token model.Address) (model.TransactionStats, error) {
	m, err := s.Registry.GetTokenMetrics(ctx, token)
	if err != nil {
		return model.TransactionStats{}, err
	}
	if m.LastUpdated.IsZero() {
		return model.TransactionStats{}, ErrNoMetrics
	}
	return model.TransactionStats{
		TotalTransactions: m.TotalTransactions,
		UniqueHolders:     m.UniqueHolders,
		Source:            "registry",
	}, nil
}

// NonceTxStats uses the token contract's own nonce as a lower bound on activity.
type NonceTxStats struct {
	Accounts chain.AccountReader
}

func (s NonceTxStats) Stats(ctx context.Context, token model.Address) (model.TransactionStats, error) {
	n, err := s.Accounts.TransactionCount(ctx, token)
	if err != nil {
		return model.TransactionStats{}, err
	}
	return model.TransactionStats{TotalTransactions: n, Source: "rpc_nonce"}, nil
}

// FirstTxStats returns the first source that answers.
type FirstTxStats []TxStatsSource

func (fs FirstTxStats) Stats(ctx context.Context, token model.Address) (model.TransactionStats, error) {
	var errs []error
	for _, s := range fs {
		st, err := s.Stats(ctx, token)
		if err == nil {
			return st, nil
		}
		errs = append(errs, err)
	}
	return model.TransactionStats{}, fmt.Errorf("no transaction stats source answered: %w", errors.Join(errs...))
}
