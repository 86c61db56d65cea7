package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	chainmocks "github.com/emperorhan/chainaudit/internal/chain/mocks"
	"github.com/emperorhan/chainaudit/internal/domain/apperr"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/heuristic"
	"github.com/emperorhan/chainaudit/internal/metadata"
	"github.com/emperorhan/chainaudit/internal/registry"
	"github.com/emperorhan/chainaudit/internal/store/memory"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	admin = common.HexToAddress("0x00000000000000000000000000000000000000AD")
	token = common.HexToAddress("0xC0FFEE0000000000000000000000000000000001")
)

var _ AuditRegistry = (*registry.Registry)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type tokenAnalyzerFunc func(context.Context, model.Address) (model.TokenRecord, error)

func (f tokenAnalyzerFunc) Analyze(ctx context.Context, a model.Address) (model.TokenRecord, error) {
	return f(ctx, a)
}

type scamAnalyzerFunc func(context.Context, model.Address) (model.ScamFlags, error)

func (f scamAnalyzerFunc) Analyze(ctx context.Context, a model.Address) (model.ScamFlags, error) {
	return f(ctx, a)
}

type flagsFunc func(context.Context, model.Address) (model.SecurityFlags, error)

func (f flagsFunc) SecurityFlags(ctx context.Context, a model.Address) (model.SecurityFlags, error) {
	return f(ctx, a)
}

type liquidityFunc func(context.Context, model.Address) (model.LiquidityAnalysis, error)

func (f liquidityFunc) Liquidity(ctx context.Context, a model.Address) (model.LiquidityAnalysis, error) {
	return f(ctx, a)
}

type ownerFunc func(context.Context, OwnerQuery) (model.OwnerReputation, error)

func (f ownerFunc) Reputation(ctx context.Context, q OwnerQuery) (model.OwnerReputation, error) {
	return f(ctx, q)
}

type txStatsFunc func(context.Context, model.Address) (model.TransactionStats, error)

func (f txStatsFunc) Stats(ctx context.Context, a model.Address) (model.TransactionStats, error) {
	return f(ctx, a)
}

type enricherFunc struct {
	name string
	fn   func(context.Context, model.AuditResult) (any, error)
}

func (e enricherFunc) Name() string { return e.name }
func (e enricherFunc) Enrich(ctx context.Context, r model.AuditResult) (any, error) {
	return e.fn(ctx, r)
}

type fakeRegistry struct {
	mu        sync.Mutex
	prior     model.AuditRecord
	priorErr  error
	submitErr error
	submits   []registry.SubmitRequest
	updates   []registry.MetricsUpdate
}

func (f *fakeRegistry) GetAuditRecord(context.Context, model.Address) (model.AuditRecord, error) {
	return f.prior, f.priorErr
}

func (f *fakeRegistry) GetTokenMetrics(context.Context, model.Address) (model.TokenMetrics, error) {
	return model.TokenMetrics{}, nil
}

func (f *fakeRegistry) SubmitAuditResult(_ context.Context, _ model.Address, req registry.SubmitRequest) (model.AuditRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, req)
	return model.AuditRecord{}, f.submitErr
}

func (f *fakeRegistry) UpdateTokenMetrics(_ context.Context, _, _ model.Address, upd registry.MetricsUpdate) (model.TokenMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, upd)
	return model.TokenMetrics{}, nil
}

func (f *fakeRegistry) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

type recordingCache struct {
	mu   sync.Mutex
	puts []*model.AuditResult
}

func (c *recordingCache) Put(_ context.Context, res *model.AuditResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts = append(c.puts, res)
	return nil
}

var errDown = errors.New("upstream down")

func honourCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errDown
}

func failingComponents(reg AuditRegistry) Components {
	return Components{
		Metadata: tokenAnalyzerFunc(func(ctx context.Context, _ model.Address) (model.TokenRecord, error) {
			return model.TokenRecord{}, honourCtx(ctx)
		}),
		Heuristics: scamAnalyzerFunc(func(ctx context.Context, _ model.Address) (model.ScamFlags, error) {
			return model.ScamFlags{}, honourCtx(ctx)
		}),
		SecurityFlags: flagsFunc(func(ctx context.Context, _ model.Address) (model.SecurityFlags, error) {
			return model.SecurityFlags{}, honourCtx(ctx)
		}),
		Registry: reg,
		Liquidity: liquidityFunc(func(ctx context.Context, _ model.Address) (model.LiquidityAnalysis, error) {
			return model.LiquidityAnalysis{}, honourCtx(ctx)
		}),
		Owner: ownerFunc(func(ctx context.Context, _ OwnerQuery) (model.OwnerReputation, error) {
			return model.OwnerReputation{}, honourCtx(ctx)
		}),
		TxStats: txStatsFunc(func(ctx context.Context, _ model.Address) (model.TransactionStats, error) {
			return model.TransactionStats{}, honourCtx(ctx)
		}),
	}
}

func TestRunAudit_EndToEndWithUnreadableToken(t *testing.T) {
	st := memory.New()
	reg, err := registry.New(admin, st, st, nil, testLogger())
	require.NoError(t, err)
	meta := metadata.NewStore(st, nil, nil, reg, nil, metadata.Config{}, testLogger())
	eng := heuristic.NewEngine(st, nil, reg, nil, heuristic.Config{Seed: []byte("e2e")}, testLogger())
	cache := &recordingCache{}

	p := New(Config{Auditor: admin}, Components{
		Metadata:      meta,
		Heuristics:    eng,
		SecurityFlags: meta,
		Registry:      reg,
		Cache:         cache,
	}, testLogger())

	res, err := p.RunAudit(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, model.MetadataTierOnChain, res.MetadataTier)
	assert.Equal(t, token.Hex(), res.Token.Name)
	assert.Equal(t, "c0ffee", res.Token.Symbol)
	assert.Equal(t, uint8(18), res.Token.Decimals)
	assert.True(t, res.Token.Exists)

	flags, err := eng.ScamFlags(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, model.ScamSourceSeededPlaceholder, flags.Source)
	assert.Equal(t, model.ClampScore(heuristic.RawScore(flags)), res.Security.RiskScore)
	assert.Equal(t, model.RiskLevelFor(int(res.Security.RiskScore)), res.Security.RiskLevel)

	assert.Nil(t, res.PriorAudit)
	assert.True(t, res.WriteBack.Attempted)
	assert.True(t, res.WriteBack.Succeeded)
	assert.Empty(t, res.Degraded)

	audited, err := reg.IsAudited(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, audited)

	again, err := p.RunAudit(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, again.PriorAudit)
	assert.Equal(t, res.Security.RiskScore, again.PriorAudit.RiskScore)
	assert.Equal(t, admin, again.PriorAudit.Auditor)

	cache.mu.Lock()
	assert.Len(t, cache.puts, 2)
	cache.mu.Unlock()
	assert.Equal(t, string(HealthStatusHealthy), p.Health().Snapshot().Status)
}

func TestRunAudit_EveryUpstreamDown(t *testing.T) {
	reg := &fakeRegistry{priorErr: errDown, submitErr: errDown}
	p := New(Config{Auditor: admin}, failingComponents(reg), testLogger())

	res, err := p.RunAudit(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, model.MetadataTierSynthetic, res.MetadataTier)
	assert.Equal(t, token.Hex(), res.Token.Name)
	assert.Equal(t, uint8(50), res.Security.RiskScore)
	assert.Equal(t, model.RiskLevelHigh, res.Security.RiskLevel)
	assert.Equal(t, []string{"analysis unavailable"}, res.Security.Issues)
	assert.True(t, res.Liquidity.LiquidityUSD.IsZero())
	assert.Equal(t, uint8(neutralOwnerScore), res.Owner.Score)
	assert.Equal(t, "default", res.Transactions.Source)

	assert.Equal(t, SecuritySourceDefault, res.Security.Source)
	assert.False(t, res.WriteBack.Attempted)
	assert.Equal(t, "skipped: no security signal", res.WriteBack.Error)
	assert.Zero(t, reg.submitCount(), "a placeholder score is never submitted")

	assert.ElementsMatch(t, []string{
		StageOnChainMetadata, StageHeuristics, StagePriorAudit, StageSecurity,
		StageLiquidity, StageOwnerReputation, StageTransactionStats,
	}, res.Degraded)
	assert.Equal(t, string(HealthStatusDegraded), p.Health().Snapshot().Status)
}

func TestRunAudit_CancelledCallerSkipsWriteBack(t *testing.T) {
	reg := &fakeRegistry{}
	cache := &recordingCache{}
	comp := failingComponents(reg)
	comp.Cache = cache
	p := New(Config{Auditor: admin}, comp, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.RunAudit(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, model.MetadataTierSynthetic, res.MetadataTier)
	assert.False(t, res.WriteBack.Attempted)
	assert.Contains(t, res.WriteBack.Error, "skipped")
	assert.Zero(t, reg.submitCount())
	assert.Empty(t, cache.puts)
}

func TestRunAudit_StageTimeoutFallsBack(t *testing.T) {
	p := New(Config{StageTimeout: 30 * time.Millisecond}, Components{
		Liquidity: liquidityFunc(func(ctx context.Context, _ model.Address) (model.LiquidityAnalysis, error) {
			<-ctx.Done()
			return model.LiquidityAnalysis{}, ctx.Err()
		}),
		TxStats: txStatsFunc(func(context.Context, model.Address) (model.TransactionStats, error) {
			return model.TransactionStats{TotalTransactions: 7, Source: "test"}, nil
		}),
	}, testLogger())

	start := time.Now()
	res, err := p.RunAudit(context.Background(), token)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, "default", res.Liquidity.Source)
	assert.Equal(t, uint64(7), res.Transactions.TotalTransactions)
	assert.Contains(t, res.Degraded, StageLiquidity)
	assert.NotContains(t, res.Degraded, StageTransactionStats)
}

func TestRunAudit_DirectTierWhenOnChainFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	direct := chainmocks.NewMockMetadataReader(ctrl)
	direct.EXPECT().Name(gomock.Any(), token).Return("Coffee", nil)
	direct.EXPECT().Symbol(gomock.Any(), token).Return("CAF", nil)
	direct.EXPECT().Decimals(gomock.Any(), token).Return(uint8(9), nil)

	p := New(Config{}, Components{
		Metadata: tokenAnalyzerFunc(func(context.Context, model.Address) (model.TokenRecord, error) {
			return model.TokenRecord{}, errDown
		}),
		Providers: DefaultProviders(direct),
	}, testLogger())

	res, err := p.RunAudit(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, model.MetadataTierDirect, res.MetadataTier)
	assert.Equal(t, "CAF", res.Token.Symbol)
	assert.Equal(t, uint8(9), res.Token.Decimals)
	assert.Equal(t, model.FallbackOwner, res.Token.Owner)
}

func TestRunAudit_MetadataExhaustionIsPipelineError(t *testing.T) {
	p := New(Config{}, Components{Providers: []MetadataProvider{OnChainProvider{}}}, testLogger())

	res, err := p.RunAudit(context.Background(), token)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperr.ErrPipeline)
	assert.ErrorIs(t, err, ErrNoOnChainRecord)
	assert.Equal(t, 1, p.Health().Snapshot().ConsecutiveFailures)
}

func TestRunAudit_UnhealthyHookFiresOnce(t *testing.T) {
	var calls int
	p := New(Config{}, Components{
		Providers: []MetadataProvider{OnChainProvider{}},
		OnUnhealthy: func(snap HealthSnapshot) {
			calls++
			assert.Equal(t, string(HealthStatusUnhealthy), snap.Status)
		},
	}, testLogger())

	for i := 0; i < DefaultUnhealthyThreshold+2; i++ {
		_, err := p.RunAudit(context.Background(), token)
		require.Error(t, err)
	}
	assert.Equal(t, 1, calls)
}

func TestRunAudit_RejectsZeroAddress(t *testing.T) {
	p := New(Config{}, Components{}, testLogger())
	_, err := p.RunAudit(context.Background(), model.ZeroAddress)
	assert.True(t, apperr.IsValidation(err))
}

func TestRunAudit_SecurityFromStoredFlags(t *testing.T) {
	p := New(Config{}, Components{
		SecurityFlags: flagsFunc(func(context.Context, model.Address) (model.SecurityFlags, error) {
			return model.SecurityFlags{HasMintFunction: true, HasOwner: true, SetAt: time.Now()}, nil
		}),
	}, testLogger())

	res, err := p.RunAudit(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "security_flags", res.Security.Source)
	assert.Equal(t, uint8(40), res.Security.RiskScore)
	assert.Equal(t, model.RiskLevelMedium, res.Security.RiskLevel)
	assert.Len(t, res.Security.Issues, 2)
}

func TestRunAudit_HeuristicVerdictWins(t *testing.T) {
	p := New(Config{}, Components{
		Heuristics: scamAnalyzerFunc(func(context.Context, model.Address) (model.ScamFlags, error) {
			return model.ScamFlags{RiskScore: 100, RawScore: 100, IsHoneypot: true, Source: model.ScamSourceKnownScam}, nil
		}),
		SecurityFlags: flagsFunc(func(context.Context, model.Address) (model.SecurityFlags, error) {
			t.Error("stored flags must not be consulted when a verdict exists")
			return model.SecurityFlags{}, nil
		}),
	}, testLogger())

	res, err := p.RunAudit(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, model.RiskLevelCritical, res.Security.RiskLevel)
	assert.True(t, res.Security.IsScam)
	assert.True(t, res.Security.Honeypot)
	assert.Contains(t, res.Security.Issues, "token is on the known scam list")
}

func lowRiskVerdict() ScamAnalyzer {
	return scamAnalyzerFunc(func(context.Context, model.Address) (model.ScamFlags, error) {
		return model.ScamFlags{RiskScore: 15, RawScore: 15, HasOwnershipIssues: true, Source: model.ScamSourceBytecode}, nil
	})
}

func TestRunAudit_WriteBackSendsMetricsWhenKnown(t *testing.T) {
	reg := &fakeRegistry{}
	p := New(Config{Auditor: admin}, Components{
		Heuristics: lowRiskVerdict(),
		Registry:   reg,
		Liquidity: liquidityFunc(func(context.Context, model.Address) (model.LiquidityAnalysis, error) {
			return model.LiquidityAnalysis{LiquidityUSD: decimal.RequireFromString("1234.5"), Locked: true, Source: "test"}, nil
		}),
	}, testLogger())

	res, err := p.RunAudit(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, res.WriteBack.Succeeded)

	reg.mu.Lock()
	defer reg.mu.Unlock()
	require.Len(t, reg.submits, 1)
	assert.Equal(t, token, reg.submits[0].Token)
	assert.Equal(t, int(res.Security.RiskScore), reg.submits[0].RiskScore)
	require.Len(t, reg.updates, 1)
	assert.True(t, reg.updates[0].LiquidityUSD.Equal(decimal.RequireFromString("1234.5")))
	assert.True(t, reg.updates[0].LiquidityLocked)
}

func TestRunAudit_EnrichmentsAttachedOnlyOnSuccess(t *testing.T) {
	p := New(Config{EnrichmentTimeout: 20 * time.Millisecond}, Components{
		Enrichers: []Enricher{
			PredictiveScorer{},
			enricherFunc{name: "broken", fn: func(context.Context, model.AuditResult) (any, error) {
				return nil, errDown
			}},
			enricherFunc{name: "slow", fn: func(ctx context.Context, _ model.AuditResult) (any, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}},
		},
	}, testLogger())

	res, err := p.RunAudit(context.Background(), token)
	require.NoError(t, err)
	require.Contains(t, res.Enrichments, "predictive_score")
	assert.NotContains(t, res.Enrichments, "broken")
	assert.NotContains(t, res.Enrichments, "slow")
	assert.Empty(t, res.Degraded, "optional enrichments never degrade a run")
}

func TestRunAudit_OutageKeepsPriorAuditIntact(t *testing.T) {
	st := memory.New()
	reg, err := registry.New(admin, st, st, nil, testLogger())
	require.NoError(t, err)
	manual, err := reg.SubmitAuditResult(context.Background(), admin, registry.SubmitRequest{
		Token:      token,
		RiskScore:  95,
		IsScam:     true,
		IsHoneypot: true,
		ReportRef:  "ipfs://manual",
	})
	require.NoError(t, err)

	p := New(Config{Auditor: admin}, failingComponents(reg), testLogger())
	res, err := p.RunAudit(context.Background(), token)
	require.NoError(t, err)

	require.NotNil(t, res.PriorAudit)
	assert.Equal(t, SecuritySourcePriorAudit, res.Security.Source)
	assert.Equal(t, uint8(95), res.Security.RiskScore)
	assert.Equal(t, model.RiskLevelCritical, res.Security.RiskLevel)
	assert.True(t, res.Security.IsScam)
	assert.True(t, res.Security.Honeypot)
	assert.False(t, res.WriteBack.Attempted)
	assert.Contains(t, res.Degraded, StageSecurity)

	stored, err := reg.GetAuditRecord(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, manual.ID, stored.ID)
	assert.Equal(t, "ipfs://manual", stored.ReportRef)
	assert.Equal(t, uint8(95), stored.RiskScore)
	assert.True(t, stored.IsScam)
}

func TestRunAudit_WriteBackFailureIsRecorded(t *testing.T) {
	reg := &fakeRegistry{submitErr: errDown}
	p := New(Config{Auditor: admin}, Components{
		Heuristics: lowRiskVerdict(),
		Registry:   reg,
	}, testLogger())

	res, err := p.RunAudit(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, res.WriteBack.Attempted)
	assert.False(t, res.WriteBack.Succeeded)
	assert.Contains(t, res.WriteBack.Error, "upstream down")
	assert.Equal(t, []string{StageWriteBack}, res.Degraded)
}

func TestRunAudit_NoSecuritySourcesIsNotDegraded(t *testing.T) {
	p := New(Config{}, Components{}, testLogger())

	res, err := p.RunAudit(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, SecuritySourceDefault, res.Security.Source)
	assert.Empty(t, res.Degraded)
}
