package pipeline

import (
	"context"
	"testing"

	"github.com/emperorhan/chainaudit/internal/chain/evm/evmtest"
	chainmocks "github.com/emperorhan/chainaudit/internal/chain/mocks"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestPredictiveScorer_OrdersByRisk(t *testing.T) {
	risky := model.AuditResult{
		Security: model.SecurityAnalysis{RiskScore: 95, Honeypot: true},
		Owner:    model.OwnerReputation{Score: 20},
	}
	safe := model.AuditResult{
		Security:  model.SecurityAnalysis{RiskScore: 5},
		Owner:     model.OwnerReputation{Score: 90},
		Liquidity: model.LiquidityAnalysis{LiquidityUSD: decimal.NewFromInt(5_000_000), Locked: true},
	}

	hi, err := PredictiveScorer{}.Enrich(context.Background(), risky)
	require.NoError(t, err)
	lo, err := PredictiveScorer{}.Enrich(context.Background(), safe)
	require.NoError(t, err)

	pHi := hi.(Prediction).ScamProbability
	pLo := lo.(Prediction).ScamProbability
	assert.Greater(t, pHi, pLo)
	assert.Greater(t, pHi, 0.5)
	assert.Less(t, pLo, 0.05)
	assert.GreaterOrEqual(t, pLo, 0.0)
}

func TestVulnerabilityScanner_Findings(t *testing.T) {
	ctrl := gomock.NewController(t)
	code := chainmocks.NewMockCodeReader(ctrl)
	code.EXPECT().Code(gomock.Any(), token).Return(
		evmtest.WithSelfDestruct(evmtest.Dispatcher("upgradeTo(address)", "transfer(address,uint256)")), nil)

	v, err := VulnerabilityScanner{Code: code}.Enrich(context.Background(), model.AuditResult{Token: model.TokenRecord{Address: token}})
	require.NoError(t, err)
	report := v.(VulnerabilityReport)
	assert.True(t, report.HasSelfDestruct)
	assert.True(t, report.Upgradeable)
	assert.Equal(t, 2, report.SelectorCount)
	assert.Contains(t, report.Findings, "contract can self-destruct")
	assert.Contains(t, report.Findings, "implementation is upgradeable")
}

func TestVulnerabilityScanner_NoCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	code := chainmocks.NewMockCodeReader(ctrl)
	code.EXPECT().Code(gomock.Any(), token).Return(nil, nil)

	_, err := VulnerabilityScanner{Code: code}.Enrich(context.Background(), model.AuditResult{Token: model.TokenRecord{Address: token}})
	assert.ErrorIs(t, err, errNoBytecode)
}
