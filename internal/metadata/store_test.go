package metadata

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/emperorhan/chainaudit/internal/chain/evm/evmtest"
	chainmocks "github.com/emperorhan/chainaudit/internal/chain/mocks"
	"github.com/emperorhan/chainaudit/internal/domain/apperr"
	"github.com/emperorhan/chainaudit/internal/domain/event"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/store/memory"
	storemocks "github.com/emperorhan/chainaudit/internal/store/mocks"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	auditor  = common.HexToAddress("0x00000000000000000000000000000000000000B1")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000E1")
	token    = common.HexToAddress("0xAbCdEf0000000000000000000000000000000001")
	owner    = common.HexToAddress("0x0000000000000000000000000000000000000042")
)

type authSet map[model.Address]bool

func (a authSet) IsAuthorized(_ context.Context, addr model.Address) (bool, error) { return a[addr], nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *chainmocks.MockTokenReader, *chainmocks.MockCodeReader, *memory.Store, *event.Recorder) {
	t.Helper()
	ctrl := gomock.NewController(t)
	reader := chainmocks.NewMockTokenReader(ctrl)
	code := chainmocks.NewMockCodeReader(ctrl)
	st := memory.New()
	rec := &event.Recorder{}
	s := NewStore(st, reader, code, authSet{auditor: true}, rec, Config{FieldTimeout: 50 * time.Millisecond}, testLogger())
	s.nowFn = func() time.Time { return fixedNow }
	return s, reader, code, st, rec
}

func expectAllFields(reader *chainmocks.MockTokenReader, addr model.Address, ownerAddr model.Address) {
	reader.EXPECT().Name(gomock.Any(), addr).Return("Wrapped Test", nil)
	reader.EXPECT().Symbol(gomock.Any(), addr).Return("WTST", nil)
	reader.EXPECT().Decimals(gomock.Any(), addr).Return(uint8(6), nil)
	reader.EXPECT().TotalSupply(gomock.Any(), addr).Return(big.NewInt(5_000_000), nil)
	reader.EXPECT().Owner(gomock.Any(), addr).Return(ownerAddr, nil)
}

func TestAnalyze_ReadsAndPersistsEveryField(t *testing.T) {
	s, reader, code, st, rec := newTestStore(t)
	expectAllFields(reader, token, owner)
	code.EXPECT().Code(gomock.Any(), token).Return(evmtest.Dispatcher("mint(address,uint256)", "pause()", "transfer(address,uint256)"), nil)

	got, err := s.Analyze(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "Wrapped Test", got.Name)
	assert.Equal(t, "WTST", got.Symbol)
	assert.Equal(t, uint8(6), got.Decimals)
	assert.Equal(t, 0, got.TotalSupply.Cmp(big.NewInt(5_000_000)))
	assert.Equal(t, owner, got.Owner)
	assert.True(t, got.Exists)
	assert.Equal(t, fixedNow, got.AnalyzedAt)

	stored, ok, err := st.GetToken(context.Background(), token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, got.Symbol, stored.Symbol)

	flags, err := s.SecurityFlags(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, flags.HasOwner)
	assert.True(t, flags.HasMintFunction)
	assert.True(t, flags.HasPauseFunction)
	assert.False(t, flags.HasBurnFunction)
	assert.False(t, flags.HasBlacklistFunction)
	assert.False(t, flags.OwnershipRenounced)

	analyzed := rec.OfType(event.TypeTokenAnalyzed)
	require.Len(t, analyzed, 1)
	assert.Equal(t, token, analyzed[0].Token)
}

func TestAnalyze_FallsBackPerField(t *testing.T) {
	s, reader, code, _, _ := newTestStore(t)
	boom := errors.New("execution reverted")
	reader.EXPECT().Name(gomock.Any(), token).Return("", boom)
	reader.EXPECT().Symbol(gomock.Any(), token).Return("", boom)
	reader.EXPECT().Decimals(gomock.Any(), token).Return(uint8(0), boom)
	reader.EXPECT().TotalSupply(gomock.Any(), token).Return(nil, boom)
	reader.EXPECT().Owner(gomock.Any(), token).Return(model.ZeroAddress, boom)
	code.EXPECT().Code(gomock.Any(), token).Return(nil, boom)

	got, err := s.Analyze(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, token.Hex(), got.Name)
	assert.Equal(t, "abcdef", got.Symbol)
	assert.Equal(t, uint8(18), got.Decimals)
	assert.Equal(t, 0, got.TotalSupply.Cmp(model.DefaultTotalSupply()))
	assert.Equal(t, model.FallbackOwner, got.Owner)
	assert.True(t, got.Exists)

	flags, err := s.SecurityFlags(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, flags.HasOwner)
	assert.False(t, flags.OwnershipRenounced)
}

func TestAnalyze_ZeroOwnerMeansRenounced(t *testing.T) {
	s, reader, code, _, _ := newTestStore(t)
	expectAllFields(reader, token, model.ZeroAddress)
	code.EXPECT().Code(gomock.Any(), token).Return(nil, nil)

	_, err := s.Analyze(context.Background(), token)
	require.NoError(t, err)

	flags, err := s.SecurityFlags(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, flags.HasOwner)
	assert.True(t, flags.OwnershipRenounced)
}

func TestAnalyze_SlowFieldTimesOutAlone(t *testing.T) {
	s, reader, code, _, _ := newTestStore(t)
	reader.EXPECT().Name(gomock.Any(), token).DoAndReturn(func(ctx context.Context, _ model.Address) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	reader.EXPECT().Symbol(gomock.Any(), token).Return("FAST", nil)
	reader.EXPECT().Decimals(gomock.Any(), token).Return(uint8(8), nil)
	reader.EXPECT().TotalSupply(gomock.Any(), token).Return(big.NewInt(1), nil)
	reader.EXPECT().Owner(gomock.Any(), token).Return(owner, nil)
	code.EXPECT().Code(gomock.Any(), token).Return(nil, nil)

	got, err := s.Analyze(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, token.Hex(), got.Name)
	assert.Equal(t, "FAST", got.Symbol)
	assert.Equal(t, uint8(8), got.Decimals)
}

func TestAnalyze_RejectsZeroAddress(t *testing.T) {
	s, _, _, _, _ := newTestStore(t)
	_, err := s.Analyze(context.Background(), model.ZeroAddress)
	assert.True(t, apperr.IsValidation(err))
}

func TestAnalyze_StoreFailureEmitsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := storemocks.NewMockTokenRepository(ctrl)
	repo.EXPECT().SaveToken(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	rec := &event.Recorder{}
	s := NewStore(repo, nil, nil, nil, rec, Config{}, testLogger())

	_, err := s.Analyze(context.Background(), token)
	require.Error(t, err)
	assert.Empty(t, rec.Events())
}

func TestBatchAnalyze_Limits(t *testing.T) {
	s, _, _, _, _ := newTestStore(t)

	tooMany := make([]model.Address, MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = common.BigToAddress(big.NewInt(int64(i + 1)))
	}
	_, err := s.BatchAnalyze(context.Background(), tooMany)
	assert.True(t, apperr.IsValidation(err))

	_, err = s.BatchAnalyze(context.Background(), []model.Address{token, model.ZeroAddress})
	assert.True(t, apperr.IsValidation(err))
}

func TestBatchAnalyze_PreservesOrder(t *testing.T) {
	st := memory.New()
	s := NewStore(st, nil, nil, nil, nil, Config{}, testLogger())
	addrs := []model.Address{
		common.HexToAddress("0x0300000000000000000000000000000000000000"),
		common.HexToAddress("0x0100000000000000000000000000000000000000"),
		common.HexToAddress("0x0200000000000000000000000000000000000000"),
	}

	out, err := s.BatchAnalyze(context.Background(), addrs)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, a := range addrs {
		assert.Equal(t, a, out[i].Address)
	}
	assert.Equal(t, "030000", out[0].Symbol)
}

func TestBatchAnalyze_FullBatchAccepted(t *testing.T) {
	st := memory.New()
	s := NewStore(st, nil, nil, nil, nil, Config{}, testLogger())
	addrs := make([]model.Address, MaxBatchSize)
	for i := range addrs {
		addrs[i] = common.BigToAddress(big.NewInt(int64(MaxBatchSize - i)))
	}

	out, err := s.BatchAnalyze(context.Background(), addrs)
	require.NoError(t, err)
	require.Len(t, out, MaxBatchSize)
	for i, a := range addrs {
		assert.Equal(t, a, out[i].Address, "position %d", i)
	}
}

func TestBatchAnalyze_FailureReturnsNoRecords(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := storemocks.NewMockTokenRepository(ctrl)
	first := common.HexToAddress("0x0100000000000000000000000000000000000000")
	second := common.HexToAddress("0x0200000000000000000000000000000000000000")

	gomock.InOrder(
		repo.EXPECT().SaveToken(gomock.Any(), gomock.Any()).Return(nil),
		repo.EXPECT().SaveSecurityFlags(gomock.Any(), first, gomock.Any()).Return(nil),
		repo.EXPECT().SaveToken(gomock.Any(), gomock.Any()).Return(errors.New("disk full")),
	)
	s := NewStore(repo, nil, nil, nil, nil, Config{}, testLogger())

	out, err := s.BatchAnalyze(context.Background(), []model.Address{first, second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "addresses[1]")
	assert.Nil(t, out)
}

func TestSetSecurityFlags_Gated(t *testing.T) {
	s, _, _, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.SetSecurityFlags(ctx, stranger, token, model.SecurityFlags{HasMintFunction: true})
	assert.True(t, apperr.IsAuthorization(err))
	flags, err := s.SecurityFlags(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, model.SecurityFlags{}, flags)

	_, err = s.SetSecurityFlags(ctx, auditor, token, model.SecurityFlags{HasMintFunction: true})
	require.NoError(t, err)
	_, err = s.SetSecurityFlags(ctx, auditor, token, model.SecurityFlags{HasPauseFunction: true})
	require.NoError(t, err)

	flags, err = s.SecurityFlags(ctx, token)
	require.NoError(t, err)
	assert.False(t, flags.HasMintFunction, "last write wins")
	assert.True(t, flags.HasPauseFunction)
	assert.Equal(t, auditor, flags.SetBy)
	assert.Equal(t, fixedNow, flags.SetAt)
}

func TestToken_ZeroWhenAbsent(t *testing.T) {
	s, _, _, _, _ := newTestStore(t)
	rec, err := s.Token(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, model.TokenRecord{}, rec)
}
