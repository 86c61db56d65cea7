package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/shopspring/decimal"
)

type AuditRepo struct {
	db *DB
}

func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// ReplaceAuditRecord replaces the record and bumps the auditor counter in one transaction.
func (r *AuditRepo) ReplaceAuditRecord(ctx context.Context, rec model.AuditRecord) (uint64, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace audit record: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO audit_records (token_address, id, risk_score, is_scam, is_honeypot, audit_timestamp, auditor, report_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (token_address) DO UPDATE SET
			id = EXCLUDED.id,
			risk_score = EXCLUDED.risk_score,
			is_scam = EXCLUDED.is_scam,
			is_honeypot = EXCLUDED.is_honeypot,
			audit_timestamp = EXCLUDED.audit_timestamp,
			auditor = EXCLUDED.auditor,
			report_ref = EXCLUDED.report_ref
	`, addrKey(rec.TokenAddress), rec.ID, int16(rec.RiskScore), rec.IsScam, rec.IsHoneypot,
		rec.AuditTimestamp, addrKey(rec.Auditor), rec.ReportRef,
	); err != nil {
		return 0, fmt.Errorf("upsert audit record: %w", err)
	}

	var count string
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO auditor_counters (auditor, audit_count) VALUES ($1, 1)
		ON CONFLICT (auditor) DO UPDATE SET audit_count = auditor_counters.audit_count + 1
		RETURNING audit_count
	`, addrKey(rec.Auditor)).Scan(&count); err != nil {
		return 0, fmt.Errorf("increment audit counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit audit record: %w", err)
	}
	return numericToUint(count)
}

func (r *AuditRepo) GetAuditRecord(ctx context.Context, token model.Address) (model.AuditRecord, bool, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var (
		rec     model.AuditRecord
		score   int16
		auditor string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, risk_score, is_scam, is_honeypot, audit_timestamp, auditor, report_ref
		FROM audit_records
		WHERE token_address = $1
	`, addrKey(token)).Scan(&rec.ID, &score, &rec.IsScam, &rec.IsHoneypot, &rec.AuditTimestamp, &auditor, &rec.ReportRef)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AuditRecord{}, false, nil
	}
	if err != nil {
		return model.AuditRecord{}, false, fmt.Errorf("get audit record: %w", err)
	}
	rec.TokenAddress = token
	rec.RiskScore = uint8(score)
	rec.Auditor = parseAddr(auditor)
	return rec, true, nil
}

func (r *AuditRepo) GetAuditCount(ctx context.Context, auditor model.Address) (uint64, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var count string
	err := r.db.QueryRowContext(ctx, `
		SELECT audit_count FROM auditor_counters WHERE auditor = $1
	`, addrKey(auditor)).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get audit count: %w", err)
	}
	return numericToUint(count)
}

func (r *AuditRepo) SaveTokenMetrics(ctx context.Context, token model.Address, m model.TokenMetrics) error {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO token_metrics (token_address, total_transactions, unique_holders, liquidity_usd, liquidity_locked, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (token_address) DO UPDATE SET
			total_transactions = EXCLUDED.total_transactions,
			unique_holders = EXCLUDED.unique_holders,
			liquidity_usd = EXCLUDED.liquidity_usd,
			liquidity_locked = EXCLUDED.liquidity_locked,
			last_updated = EXCLUDED.last_updated
	`, addrKey(token), uintToNumeric(m.TotalTransactions), uintToNumeric(m.UniqueHolders),
		m.LiquidityUSD, m.LiquidityLocked, m.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("save token metrics: %w", err)
	}
	return nil
}

func (r *AuditRepo) GetTokenMetrics(ctx context.Context, token model.Address) (model.TokenMetrics, bool, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var (
		m         model.TokenMetrics
		txs       string
		holders   string
		liquidity decimal.Decimal
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT total_transactions, unique_holders, liquidity_usd, liquidity_locked, last_updated
		FROM token_metrics
		WHERE token_address = $1
	`, addrKey(token)).Scan(&txs, &holders, &liquidity, &m.LiquidityLocked, &m.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TokenMetrics{}, false, nil
	}
	if err != nil {
		return model.TokenMetrics{}, false, fmt.Errorf("get token metrics: %w", err)
	}
	if m.TotalTransactions, err = numericToUint(txs); err != nil {
		return model.TokenMetrics{}, false, fmt.Errorf("get token metrics: %w", err)
	}
	if m.UniqueHolders, err = numericToUint(holders); err != nil {
		return model.TokenMetrics{}, false, fmt.Errorf("get token metrics: %w", err)
	}
	m.LiquidityUSD = liquidity
	return m, true, nil
}
