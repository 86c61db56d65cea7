package pipeline

import (
	"context"
	"errors"
	"math"

	"github.com/emperorhan/chainaudit/internal/chain"
	"github.com/emperorhan/chainaudit/internal/chain/evm"
	"github.com/emperorhan/chainaudit/internal/domain/model"
)

// Enricher attaches an optional value to a composed audit. A failing
// enricher is omitted from the result.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, res model.AuditResult) (any, error)
}

// Prediction is the output of the predictive scorer.
type Prediction struct {
	ScamProbability float64 `json:"scam_probability"`
	Model           string  `json:"model"`
}

// PredictiveScorer combines the composed signals into a probability with a
// fixed logistic model.
type PredictiveScorer struct{}

func (PredictiveScorer) Name() string { return "predictive_score" }

func (PredictiveScorer) Enrich(_ context.Context, res model.AuditResult) (any, error) {
	liquidity, _ := res.Liquidity.LiquidityUSD.Float64()
	z := -3.0 +
		0.06*float64(res.Security.RiskScore) -
		0.025*float64(res.Owner.Score) -
		0.35*math.Log10(1+liquidity)
	if res.Security.Honeypot {
		z += 1.5
	}
	if res.Liquidity.Locked {
		z -= 0.5
	}
	p := 1 / (1 + math.Exp(-z))
	return Prediction{ScamProbability: math.Round(p*1e4) / 1e4, Model: "logistic-v1"}, nil
}

// SentimentReader fetches a community sentiment signal for a token.
type SentimentReader interface {
	Sentiment(ctx context.Context, token model.Address, symbol string) (any, error)
}

// SentimentEnricher adapts a SentimentReader.
type SentimentEnricher struct {
	Reader SentimentReader
}

func (SentimentEnricher) Name() string { return "community_sentiment" }

func (e SentimentEnricher) Enrich(ctx context.Context, res model.AuditResult) (any, error) {
	return e.Reader.Sentiment(ctx, res.Token.Address, res.Token.Symbol)
}

// VulnerabilityReport is the output of the deeper bytecode scan.
type VulnerabilityReport struct {
	CodeSize        int      `json:"code_size"`
	SelectorCount   int      `json:"selector_count"`
	HasSelfDestruct bool     `json:"has_selfdestruct"`
	HasDelegateCall bool     `json:"has_delegatecall"`
	Upgradeable     bool     `json:"upgradeable"`
	Findings        []string `json:"findings"`
}

var errNoBytecode = errors.New("no bytecode deployed")

// VulnerabilityScanner inspects the deployed bytecode for dangerous opcodes
// and privileged entry points.
type VulnerabilityScanner struct {
	Code chain.CodeReader
}

func (VulnerabilityScanner) Name() string { return "vulnerability_scan" }

func (s VulnerabilityScanner) Enrich(ctx context.Context, res model.AuditResult) (any, error) {
	code, err := s.Code.Code(ctx, res.Token.Address)
	if err != nil {
		return nil, err
	}
	p := evm.ScanBytecode(code)
	if p.Empty() {
		return nil, errNoBytecode
	}

	report := VulnerabilityReport{
		CodeSize:        p.Size,
		SelectorCount:   p.SelectorCount(),
		HasSelfDestruct: p.HasSelfDestruct,
		HasDelegateCall: p.HasDelegateCall,
		Upgradeable:     p.Has("upgradeTo(address)", "upgradeToAndCall(address,bytes)"),
		Findings:        []string{},
	}
	if p.HasSelfDestruct {
		report.Findings = append(report.Findings, "contract can self-destruct")
	}
	if p.HasDelegateCall {
		report.Findings = append(report.Findings, "executes delegatecall")
	}
	if report.Upgradeable {
		report.Findings = append(report.Findings, "implementation is upgradeable")
	}
	if p.Has("setApprovalForAll(address,bool)", "approveMax(address)") {
		report.Findings = append(report.Findings, "bulk approval entry point")
	}
	if p.Has("transferFrom(address,address,uint256)") && !p.Has("allowance(address,address)") {
		report.Findings = append(report.Findings, "transferFrom without allowance accessor")
	}
	return report, nil
}
