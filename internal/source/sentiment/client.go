// Package sentiment reads a community sentiment signal from an HTTP endpoint
// that aggregates social mentions per token.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emperorhan/chainaudit/internal/circuitbreaker"
	"github.com/emperorhan/chainaudit/internal/domain/apperr"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/source"
	"golang.org/x/time/rate"
)

const defaultTimeout = 5 * time.Second

// Signal is the sentiment attached to an audit.
type Signal struct {
	// Score ranges from -1 (negative) to 1 (positive).
	Score     float64   `json:"score"`
	Mentions  int       `json:"mentions"`
	Label     string    `json:"label"`
	UpdatedAt time.Time `json:"updated_at"`
}

type response struct {
	Score     *float64  `json:"score"`
	Mentions  int       `json:"mentions"`
	UpdatedAt time.Time `json:"updated_at"`
}

var errNoSignal = errors.New("no sentiment signal for token")

type Options struct {
	BaseURL string
	Timeout time.Duration
	RPS     float64
	Breaker circuitbreaker.Config
}

type Client struct {
	baseURL string
	getter  source.Getter
	logger  *slog.Logger
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}
	if opts.Breaker.Name == "" {
		opts.Breaker.Name = "sentiment"
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		getter: source.Getter{
			HTTP:    &http.Client{Timeout: opts.Timeout},
			Limiter: limiter,
			Breaker: circuitbreaker.New(opts.Breaker),
		},
		logger: logger.With("component", "sentiment"),
	}
}

// Signal fetches the sentiment for a token. A token with no mentions has no
// signal and yields an error so that callers omit it.
func (c *Client) Signal(ctx context.Context, token model.Address, symbol string) (Signal, error) {
	q := url.Values{}
	q.Set("address", token.Hex())
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	var resp response
	if err := c.getter.GetJSON(ctx, fmt.Sprintf("%s/v1/sentiment?%s", c.baseURL, q.Encode()), &resp); err != nil {
		return Signal{}, apperr.Upstream("sentiment", err)
	}
	if resp.Score == nil || resp.Mentions == 0 {
		return Signal{}, errNoSignal
	}
	score := *resp.Score
	if score < -1 {
		score = -1
	}
	if score > 1 {
		score = 1
	}
	return Signal{Score: score, Mentions: resp.Mentions, Label: label(score), UpdatedAt: resp.UpdatedAt}, nil
}

// Sentiment adapts Signal to the pipeline enricher.
func (c *Client) Sentiment(ctx context.Context, token model.Address, symbol string) (any, error) {
	return c.Signal(ctx, token, symbol)
}

func label(score float64) string {
	switch {
	case score <= -0.25:
		return "negative"
	case score >= 0.25:
		return "positive"
	default:
		return "neutral"
	}
}
