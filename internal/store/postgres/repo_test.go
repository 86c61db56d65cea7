package postgres

import (
	"context"
	"errors"
	"math/big"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenA   = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	auditorX = common.HexToAddress("0x00000000000000000000000000000000000000B1")
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return Wrap(raw), mock
}

func TestTokenRepo_SaveTokenStoresLowercaseAddress(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tokens")).
		WithArgs("0x00000000000000000000000000000000000000a1", "Alpha", "ALP", int16(18), "1000",
			"0x000000000000000000000000000000000000dead", true, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveToken(context.Background(), model.TokenRecord{
		Address:     tokenA,
		Name:        "Alpha",
		Symbol:      "ALP",
		Decimals:    18,
		TotalSupply: big.NewInt(1000),
		Owner:       model.FallbackOwner,
		Exists:      true,
		AnalyzedAt:  now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_GetTokenMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tokens")).
		WithArgs("0x00000000000000000000000000000000000000a1").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	_, ok, err := repo.GetToken(context.Background(), tokenA)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenRepo_GetTokenDecodesSupply(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM tokens")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "symbol", "decimals", "total_supply", "owner_address", "token_exists", "analyzed_at"}).
			AddRow("Alpha", "ALP", int64(6), "1000000000000000000000000", "0x000000000000000000000000000000000000dead", true, now))

	rec, ok, err := repo.GetToken(context.Background(), tokenA)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint8(6), rec.Decimals)
	assert.Equal(t, 0, model.DefaultTotalSupply().Cmp(rec.TotalSupply))
	assert.Equal(t, model.FallbackOwner, rec.Owner)
	assert.Equal(t, tokenA, rec.Address)
}

func TestAuditRepo_ReplaceAuditRecordCommitsBoth(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepo(db)
	rec := model.AuditRecord{
		ID:             uuid.New(),
		TokenAddress:   tokenA,
		RiskScore:      40,
		AuditTimestamp: time.Now(),
		Auditor:        auditorX,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_records")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO auditor_counters")).
		WithArgs("0x00000000000000000000000000000000000000b1").
		WillReturnRows(sqlmock.NewRows([]string{"audit_count"}).AddRow("3"))
	mock.ExpectCommit()

	count, err := repo.ReplaceAuditRecord(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_ReplaceAuditRecordRollsBackOnCounterFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_records")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO auditor_counters")).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := repo.ReplaceAuditRecord(context.Background(), model.AuditRecord{TokenAddress: tokenA, Auditor: auditorX})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "increment audit counter")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_GetTokenMetrics(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM token_metrics")).
		WillReturnRows(sqlmock.NewRows([]string{"total_transactions", "unique_holders", "liquidity_usd", "liquidity_locked", "last_updated"}).
			AddRow("120", "45", "15000.50", true, now))

	m, ok, err := repo.GetTokenMetrics(context.Background(), tokenA)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(120), m.TotalTransactions)
	assert.Equal(t, uint64(45), m.UniqueHolders)
	assert.True(t, m.LiquidityUSD.Equal(decimal.RequireFromString("15000.50")))
	assert.True(t, m.LiquidityLocked)
}

func TestScamRepo_SetListedReportsRowsAffected(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScamRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO override_lists")).
		WithArgs("known_scams", "0x00000000000000000000000000000000000000a1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.SetListed(context.Background(), store.ListKnownScams, tokenA, true)
	require.NoError(t, err)
	assert.False(t, changed)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM override_lists")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	changed, err = repo.SetListed(context.Background(), store.ListKnownScams, tokenA, false)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestAuthorizationRepo_IsAuthorized(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuthorizationRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM auditors")).
		WithArgs("0x00000000000000000000000000000000000000b1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.IsAuthorized(context.Background(), auditorX)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNew_RejectsStatementTimeoutOutOfRange(t *testing.T) {
	_, err := New(Config{URL: "postgres://localhost/x", StatementTimeoutMS: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of allowed range")
}

func TestAppendStatementTimeout(t *testing.T) {
	assert.Equal(t, "postgres://h/db?options=-c%20statement_timeout%3D500", appendStatementTimeout("postgres://h/db", 500))
	assert.Equal(t, "postgres://h/db?sslmode=disable&options=-c%20statement_timeout%3D500", appendStatementTimeout("postgres://h/db?sslmode=disable", 500))
}

func TestMigrations_Embedded(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM schema_migrations")).
		WithArgs("001_audit_registry.up.sql").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	require.NoError(t, db.RunMigrations(context.Background(), Migrations(), testLogger()))
	require.NoError(t, mock.ExpectationsWereMet())
}
