package evm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/emperorhan/chainaudit/internal/cache"
	"github.com/emperorhan/chainaudit/internal/chain"
	"github.com/emperorhan/chainaudit/internal/chain/evm/rpc"
	"github.com/emperorhan/chainaudit/internal/chain/ratelimit"
	"github.com/emperorhan/chainaudit/internal/circuitbreaker"
	"github.com/emperorhan/chainaudit/internal/domain/apperr"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/metrics"
	"github.com/ethereum/go-ethereum/common"
)

const (
	upstreamName = "rpc"

	defaultCodeCacheSize = 2048
	defaultCodeCacheTTL  = 10 * time.Minute
)

// Reader serves token, bytecode and account reads from one EVM endpoint.
type Reader struct {
	client    rpc.RPCClient
	limiter   *ratelimit.Limiter
	breaker   *circuitbreaker.Breaker
	codeCache *cache.LRU[common.Address, []byte]
	logger    *slog.Logger
}

var (
	_ chain.TokenReader   = (*Reader)(nil)
	_ chain.HolderReader  = (*Reader)(nil)
	_ chain.CodeReader    = (*Reader)(nil)
	_ chain.AccountReader = (*Reader)(nil)
)

type Options struct {
	Chain        model.Chain
	RPS          float64
	Burst        int
	Breaker      circuitbreaker.Config
	CodeCacheLen int
	CodeCacheTTL time.Duration
}

func NewReader(client rpc.RPCClient, opts Options, logger *slog.Logger) *Reader {
	if opts.CodeCacheLen <= 0 {
		opts.CodeCacheLen = defaultCodeCacheSize
	}
	if opts.CodeCacheTTL <= 0 {
		opts.CodeCacheTTL = defaultCodeCacheTTL
	}
	if opts.Breaker.Name == "" {
		opts.Breaker.Name = upstreamName
	}
	logger = logger.With("component", "evm_reader", "chain", string(opts.Chain))
	if opts.Breaker.OnStateChange == nil {
		opts.Breaker.OnStateChange = func(from, to circuitbreaker.State) {
			logger.Warn("rpc circuit breaker transition", "from", from.String(), "to", to.String())
		}
	}
	return &Reader{
		client:    client,
		limiter:   ratelimit.NewLimiter(opts.RPS, opts.Burst, string(opts.Chain)),
		breaker:   circuitbreaker.New(opts.Breaker),
		codeCache: cache.NewLRU[common.Address, []byte](opts.CodeCacheLen, opts.CodeCacheTTL, func(a common.Address) string { return a.Hex() }),
		logger:    logger,
	}
}

// invoke applies rate limiting and circuit breaking to one RPC round trip.
// Contract-level answers (reverts, empty returns) do not count against the breaker.
func (r *Reader) invoke(ctx context.Context, method string, fn func(context.Context) error) error {
	err := r.breaker.Execute(func() error {
		return r.limiter.Do(ctx, method, fn)
	}, func(err error) bool {
		return ctx.Err() == nil && !isContractAnswer(err)
	})
	if err != nil {
		return apperr.Upstream(upstreamName, fmt.Errorf("%s: %w", method, err))
	}
	return nil
}

func isContractAnswer(err error) bool {
	if errors.Is(err, ErrEmptyReturn) {
		return true
	}
	var rpcErr *rpc.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code == 3 || strings.Contains(strings.ToLower(rpcErr.Message), "revert")
	}
	return false
}

func (r *Reader) callContract(ctx context.Context, token common.Address, signature string, args ...common.Address) ([]byte, error) {
	var out []byte
	err := r.invoke(ctx, "eth_call", func(ctx context.Context) error {
		data, err := r.client.Call(ctx, token, encodeCall(signature, args...))
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return ErrEmptyReturn
		}
		out = data
		return nil
	})
	return out, err
}

func (r *Reader) Name(ctx context.Context, token model.Address) (string, error) {
	data, err := r.callContract(ctx, token, "name()")
	if err != nil {
		return "", err
	}
	return decodeString(data)
}

func (r *Reader) Symbol(ctx context.Context, token model.Address) (string, error) {
	data, err := r.callContract(ctx, token, "symbol()")
	if err != nil {
		return "", err
	}
	return decodeString(data)
}

func (r *Reader) Decimals(ctx context.Context, token model.Address) (uint8, error) {
	data, err := r.callContract(ctx, token, "decimals()")
	if err != nil {
		return 0, err
	}
	return decodeUint8(data)
}

func (r *Reader) TotalSupply(ctx context.Context, token model.Address) (*big.Int, error) {
	data, err := r.callContract(ctx, token, "totalSupply()")
	if err != nil {
		return nil, err
	}
	return decodeUint256(data)
}

func (r *Reader) BalanceOf(ctx context.Context, token, holder model.Address) (*big.Int, error) {
	data, err := r.callContract(ctx, token, "balanceOf(address)", holder)
	if err != nil {
		return nil, err
	}
	return decodeUint256(data)
}

// Owner tries the Ownable owner() first and falls back to the BEP-20 getOwner().
func (r *Reader) Owner(ctx context.Context, token model.Address) (model.Address, error) {
	data, err := r.callContract(ctx, token, "owner()")
	if err != nil {
		var fallbackErr error
		data, fallbackErr = r.callContract(ctx, token, "getOwner()")
		if fallbackErr != nil {
			return model.ZeroAddress, err
		}
	}
	return decodeAddress(data)
}

// Code returns deployed bytecode through a TTL cache.
func (r *Reader) Code(ctx context.Context, addr model.Address) ([]byte, error) {
	code, cached, err := r.codeCache.GetOrLoad(ctx, addr, func(ctx context.Context) ([]byte, error) {
		var code []byte
		err := r.invoke(ctx, "eth_getCode", func(ctx context.Context) error {
			var err error
			code, err = r.client.GetCode(ctx, addr)
			return err
		})
		return code, err
	})
	if err != nil {
		return nil, err
	}
	if cached {
		metrics.BytecodeCacheHits.Inc()
	} else {
		metrics.BytecodeCacheMisses.Inc()
	}
	return code, nil
}

func (r *Reader) TransactionCount(ctx context.Context, addr model.Address) (uint64, error) {
	var n uint64
	err := r.invoke(ctx, "eth_getTransactionCount", func(ctx context.Context) error {
		var err error
		n, err = r.client.GetTransactionCount(ctx, addr)
		return err
	})
	return n, err
}

func (r *Reader) Balance(ctx context.Context, addr model.Address) (*big.Int, error) {
	var b *big.Int
	err := r.invoke(ctx, "eth_getBalance", func(ctx context.Context) error {
		var err error
		b, err = r.client.GetBalance(ctx, addr)
		return err
	})
	return b, err
}

// Ping checks the endpoint answers eth_blockNumber.
func (r *Reader) Ping(ctx context.Context) (uint64, error) {
	var n uint64
	err := r.invoke(ctx, "eth_blockNumber", func(ctx context.Context) error {
		var err error
		n, err = r.client.BlockNumber(ctx)
		return err
	})
	return n, err
}
