// Package dexscreener reads pair liquidity from the DexScreener public API.
package dexscreener

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emperorhan/chainaudit/internal/circuitbreaker"
	"github.com/emperorhan/chainaudit/internal/domain/apperr"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/source"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.dexscreener.com"
	defaultTimeout = 10 * time.Second
	// The public API allows 300 token lookups per minute.
	defaultRPS = 5
)

// Pair is the subset of a DexScreener pair the auditor reads.
type Pair struct {
	ChainID     string   `json:"chainId"`
	DexID       string   `json:"dexId"`
	PairAddress string   `json:"pairAddress"`
	Labels      []string `json:"labels"`
	Liquidity   struct {
		USD decimal.Decimal `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 decimal.Decimal `json:"h24"`
	} `json:"volume"`
}

type tokenPairsResponse struct {
	Pairs []Pair `json:"pairs"`
}

type Options struct {
	BaseURL string
	// Chain restricts pairs to one DexScreener chain id; empty accepts all.
	Chain   model.Chain
	Timeout time.Duration
	RPS     float64
	Breaker circuitbreaker.Config
}

type Client struct {
	baseURL string
	chainID string
	getter  source.Getter
	logger  *slog.Logger
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RPS <= 0 {
		opts.RPS = defaultRPS
	}
	if opts.Breaker.Name == "" {
		opts.Breaker.Name = "dexscreener"
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		chainID: opts.Chain.DexScreenerID(),
		getter: source.Getter{
			HTTP:    &http.Client{Timeout: opts.Timeout},
			Limiter: rate.NewLimiter(rate.Limit(opts.RPS), 1),
			Breaker: circuitbreaker.New(opts.Breaker),
		},
		logger: logger.With("component", "dexscreener"),
	}
}

// Pairs returns every pair listing token on the configured chain.
func (c *Client) Pairs(ctx context.Context, token model.Address) ([]Pair, error) {
	var resp tokenPairsResponse
	url := c.baseURL + "/latest/dex/tokens/" + token.Hex()
	if err := c.getter.GetJSON(ctx, url, &resp); err != nil {
		return nil, apperr.Upstream("dexscreener", err)
	}
	if c.chainID == "" {
		return resp.Pairs, nil
	}
	out := resp.Pairs[:0]
	for _, p := range resp.Pairs {
		if p.ChainID == c.chainID {
			out = append(out, p)
		}
	}
	return out, nil
}

// Liquidity sums liquidity and 24h volume across the token's pairs. A token
// without pairs is a valid answer with zero liquidity. DexScreener does not
// report LP locks, so Locked is only set for pairs labelled as locked.
func (c *Client) Liquidity(ctx context.Context, token model.Address) (model.LiquidityAnalysis, error) {
	pairs, err := c.Pairs(ctx, token)
	if err != nil {
		return model.LiquidityAnalysis{}, err
	}
	res := model.LiquidityAnalysis{
		LiquidityUSD: decimal.Zero,
		Volume24hUSD: decimal.Zero,
		PairCount:    len(pairs),
		Source:       "dexscreener",
	}
	for _, p := range pairs {
		res.LiquidityUSD = res.LiquidityUSD.Add(p.Liquidity.USD)
		res.Volume24hUSD = res.Volume24hUSD.Add(p.Volume.H24)
		for _, l := range p.Labels {
			if strings.EqualFold(l, "locked") {
				res.Locked = true
			}
		}
	}
	c.logger.Debug("liquidity read", "token", token.Hex(), "pairs", res.PairCount, "liquidity_usd", res.LiquidityUSD.String())
	return res, nil
}
