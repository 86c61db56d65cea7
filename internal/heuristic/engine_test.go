package heuristic

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/emperorhan/chainaudit/internal/chain/evm/evmtest"
	"github.com/emperorhan/chainaudit/internal/chain/mocks"
	"github.com/emperorhan/chainaudit/internal/domain/apperr"
	"github.com/emperorhan/chainaudit/internal/domain/event"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/store"
	"github.com/emperorhan/chainaudit/internal/store/memory"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	admin    = common.HexToAddress("0x00000000000000000000000000000000000000AD")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000E1")
	token    = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

type adminSet map[model.Address]bool

func (a adminSet) IsAdministrator(addr model.Address) bool { return a[addr] }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, code []byte) (*Engine, *memory.Store, *event.Recorder) {
	t.Helper()
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockCodeReader(ctrl)
	reader.EXPECT().Code(gomock.Any(), gomock.Any()).Return(code, nil).AnyTimes()

	st := memory.New()
	rec := &event.Recorder{}
	e := NewEngine(st, reader, adminSet{admin: true}, rec, Config{Seed: []byte("test-seed")}, testLogger())
	e.nowFn = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return e, st, rec
}

func TestAnalyze_AllChecksClampToMaximum(t *testing.T) {
	code := evmtest.WithSelfDestruct(evmtest.Dispatcher(
		"mint(address,uint256)",
		"blacklist(address)",
		"setFee(uint256)",
		"withdrawETH()",
		"owner()",
	))
	e, st, rec := newTestEngine(t, code)

	flags, err := e.Analyze(context.Background(), token)
	require.NoError(t, err)

	assert.True(t, flags.HasHiddenMint)
	assert.True(t, flags.HasBlacklist)
	assert.True(t, flags.HasHighTax)
	assert.True(t, flags.HasLiquidityDrain)
	assert.True(t, flags.HasOwnershipIssues)
	assert.Equal(t, 125, flags.RawScore)
	assert.Equal(t, uint8(100), flags.RiskScore)
	assert.True(t, flags.IsHoneypot)
	assert.Equal(t, model.ScamSourceBytecode, flags.Source)

	stored, ok, err := st.GetScamFlags(context.Background(), token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, flags, stored)

	detected := rec.OfType(event.TypeScamDetected)
	require.Len(t, detected, 1)
	assert.Equal(t, event.ActionFlagged, detected[0].Action)
	assert.Equal(t, uint8(100), detected[0].RiskScore)
}

func TestAnalyze_CleanContractScoresZero(t *testing.T) {
	code := evmtest.Dispatcher(
		"name()", "symbol()", "transfer(address,uint256)",
		"owner()", "renounceOwnership()",
		"mint(address,uint256)", "cap()",
	)
	e, _, rec := newTestEngine(t, code)

	flags, err := e.Analyze(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, 0, flags.RawScore)
	assert.False(t, flags.IsHoneypot)
	assert.Empty(t, rec.Events())
}

func TestAnalyze_HoneypotThresholdIsInclusive(t *testing.T) {
	// drain 35 + tax 20 + ownership 15
	code := evmtest.Dispatcher("emergencyWithdraw()", "setTaxFee(uint256)", "owner()")
	e, _, _ := newTestEngine(t, code)

	flags, err := e.Analyze(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, 70, flags.RawScore)
	assert.True(t, flags.IsHoneypot)
}

func TestRawScore_Weights(t *testing.T) {
	tests := []struct {
		name  string
		flags model.ScamFlags
		want  int
	}{
		{"none", model.ScamFlags{}, 0},
		{"mint", model.ScamFlags{HasHiddenMint: true}, 25},
		{"blacklist", model.ScamFlags{HasBlacklist: true}, 30},
		{"tax", model.ScamFlags{HasHighTax: true}, 20},
		{"drain", model.ScamFlags{HasLiquidityDrain: true}, 35},
		{"ownership", model.ScamFlags{HasOwnershipIssues: true}, 15},
		{"drain and blacklist", model.ScamFlags{HasLiquidityDrain: true, HasBlacklist: true}, 65},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RawScore(tt.flags))
		})
	}

	f := scored(model.ScamFlags{HasLiquidityDrain: true, HasBlacklist: true})
	assert.False(t, f.IsHoneypot)
}

func TestAnalyze_KnownScamWinsOverTrusted(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockCodeReader(ctrl) // must not be called
	st := memory.New()
	rec := &event.Recorder{}
	e := NewEngine(st, reader, adminSet{admin: true}, rec, Config{}, testLogger())
	ctx := context.Background()

	require.NoError(t, e.AddTrustedToken(ctx, admin, token))
	require.NoError(t, e.AddKnownScam(ctx, admin, token))

	flags, err := e.Analyze(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, model.ScamSourceKnownScam, flags.Source)
	assert.Equal(t, uint8(100), flags.RiskScore)
	assert.True(t, flags.IsHoneypot)

	trusted, err := e.IsTrusted(ctx, token)
	require.NoError(t, err)
	assert.True(t, trusted, "adding to one list leaves the other untouched")
}

func TestAnalyze_TrustedSkipsBytecode(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockCodeReader(ctrl)
	st := memory.New()
	e := NewEngine(st, reader, adminSet{admin: true}, nil, Config{}, testLogger())
	ctx := context.Background()

	require.NoError(t, e.AddTrustedToken(ctx, admin, token))
	flags, err := e.Analyze(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, model.ScamSourceTrusted, flags.Source)
	assert.Zero(t, flags.RiskScore)
	assert.False(t, flags.IsHoneypot)
}

func TestAnalyze_SeededPlaceholderIsReproducible(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockCodeReader(ctrl)
	reader.EXPECT().Code(gomock.Any(), token).Return(nil, errors.New("dial tcp: refused")).Times(1)

	cfg := Config{Seed: []byte("seed-1")}
	withFailingReader := NewEngine(memory.New(), reader, nil, nil, cfg, testLogger())
	withoutReader := NewEngine(memory.New(), nil, nil, nil, cfg, testLogger())

	a, err := withFailingReader.Analyze(context.Background(), token)
	require.NoError(t, err)
	b, err := withoutReader.Analyze(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, model.ScamSourceSeededPlaceholder, a.Source)
	a.AnalyzedAt, b.AnalyzedAt = time.Time{}, time.Time{}
	assert.Equal(t, a, b)
	assert.Equal(t, checkSeeded(cfg.Seed, token).HasBlacklist, a.HasBlacklist)
}

func TestAnalyze_EmptyCodeUsesPlaceholder(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	flags, err := e.Analyze(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, model.ScamSourceSeededPlaceholder, flags.Source)
}

func TestAnalyze_ScamDetectedOnlyOnTransition(t *testing.T) {
	code := evmtest.Dispatcher("blacklist(address)", "withdraw()", "setFee(uint256)")
	e, _, rec := newTestEngine(t, code)

	for i := 0; i < 3; i++ {
		_, err := e.Analyze(context.Background(), token)
		require.NoError(t, err)
	}
	assert.Len(t, rec.OfType(event.TypeScamDetected), 1)
}

func TestAnalyze_ConcurrentCallsFlagOnce(t *testing.T) {
	code := evmtest.Dispatcher("blacklist(address)", "withdraw()", "setFee(uint256)")
	e, st, rec := newTestEngine(t, code)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Analyze(context.Background(), token)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, rec.OfType(event.TypeScamDetected), 1)
	assert.Zero(t, e.locks.InFlight())
	flags, ok, err := st.GetScamFlags(context.Background(), token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, flags.IsHoneypot)
}

func TestAnalyze_RejectsZeroAddress(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	_, err := e.Analyze(context.Background(), model.ZeroAddress)
	assert.True(t, apperr.IsValidation(err))
}

func TestOverrideLists_RequireAdministrator(t *testing.T) {
	e, st, rec := newTestEngine(t, nil)
	ctx := context.Background()

	for name, op := range map[string]func(context.Context, model.Address, model.Address) error{
		"known":   e.AddKnownScam,
		"trusted": e.AddTrustedToken,
		"remove":  e.RemoveFromScamList,
	} {
		err := op(ctx, stranger, token)
		assert.True(t, apperr.IsAuthorization(err), name)
	}

	listed, err := st.IsListed(ctx, store.ListKnownScams, token)
	require.NoError(t, err)
	assert.False(t, listed)
	assert.Empty(t, rec.Events())
}

func TestOverrideLists_EventsAndIdempotence(t *testing.T) {
	e, _, rec := newTestEngine(t, nil)
	ctx := context.Background()

	require.NoError(t, e.AddKnownScam(ctx, admin, token))
	require.NoError(t, e.AddKnownScam(ctx, admin, token))
	require.NoError(t, e.AddTrustedToken(ctx, admin, token))

	scam := rec.OfType(event.TypeScamDetected)
	require.Len(t, scam, 1)
	assert.Equal(t, event.ActionAdded, scam[0].Action)
	assert.Equal(t, admin, scam[0].Actor)

	require.NoError(t, e.RemoveFromScamList(ctx, admin, token))
	require.NoError(t, e.RemoveFromScamList(ctx, admin, token))

	verified := rec.OfType(event.TypeTokenVerified)
	require.Len(t, verified, 2)
	assert.Equal(t, event.ActionAdded, verified[0].Action)
	assert.Equal(t, event.ActionRemoved, verified[1].Action)

	known, err := e.IsKnownScam(ctx, token)
	require.NoError(t, err)
	trusted, err := e.IsTrusted(ctx, token)
	require.NoError(t, err)
	assert.False(t, known)
	assert.False(t, trusted)
}

func TestScamFlags_ZeroWhenNeverAnalyzed(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	flags, err := e.ScamFlags(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, model.ScamFlags{}, flags)
}
