package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/emperorhan/chainaudit/internal/domain/model"
	"github.com/emperorhan/chainaudit/internal/store"
)

type ScamRepo struct {
	db *DB
}

func NewScamRepo(db *DB) *ScamRepo {
	return &ScamRepo{db: db}
}

func (r *ScamRepo) SaveScamFlags(ctx context.Context, addr model.Address, f model.ScamFlags) error {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scam_flags (address, has_hidden_mint, has_blacklist, has_high_tax, has_liquidity_drain,
			has_ownership_issues, risk_score, raw_score, is_honeypot, source, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (address) DO UPDATE SET
			has_hidden_mint = EXCLUDED.has_hidden_mint,
			has_blacklist = EXCLUDED.has_blacklist,
			has_high_tax = EXCLUDED.has_high_tax,
			has_liquidity_drain = EXCLUDED.has_liquidity_drain,
			has_ownership_issues = EXCLUDED.has_ownership_issues,
			risk_score = EXCLUDED.risk_score,
			raw_score = EXCLUDED.raw_score,
			is_honeypot = EXCLUDED.is_honeypot,
			source = EXCLUDED.source,
			analyzed_at = EXCLUDED.analyzed_at
	`, addrKey(addr), f.HasHiddenMint, f.HasBlacklist, f.HasHighTax, f.HasLiquidityDrain,
		f.HasOwnershipIssues, int16(f.RiskScore), f.RawScore, f.IsHoneypot, string(f.Source), f.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("save scam flags: %w", err)
	}
	return nil
}

func (r *ScamRepo) GetScamFlags(ctx context.Context, addr model.Address) (model.ScamFlags, bool, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var (
		f      model.ScamFlags
		score  int16
		source string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT has_hidden_mint, has_blacklist, has_high_tax, has_liquidity_drain, has_ownership_issues,
		       risk_score, raw_score, is_honeypot, source, analyzed_at
		FROM scam_flags
		WHERE address = $1
	`, addrKey(addr)).Scan(&f.HasHiddenMint, &f.HasBlacklist, &f.HasHighTax, &f.HasLiquidityDrain,
		&f.HasOwnershipIssues, &score, &f.RawScore, &f.IsHoneypot, &source, &f.AnalyzedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScamFlags{}, false, nil
	}
	if err != nil {
		return model.ScamFlags{}, false, fmt.Errorf("get scam flags: %w", err)
	}
	f.RiskScore = uint8(score)
	f.Source = model.ScamSource(source)
	return f, true, nil
}

func (r *ScamRepo) SetListed(ctx context.Context, list store.OverrideList, addr model.Address, listed bool) (bool, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var (
		res sql.Result
		err error
	)
	if listed {
		res, err = r.db.ExecContext(ctx, `
			INSERT INTO override_lists (list_name, address) VALUES ($1, $2)
			ON CONFLICT (list_name, address) DO NOTHING
		`, string(list), addrKey(addr))
	} else {
		res, err = r.db.ExecContext(ctx, `
			DELETE FROM override_lists WHERE list_name = $1 AND address = $2
		`, string(list), addrKey(addr))
	}
	if err != nil {
		return false, fmt.Errorf("set %s membership: %w", list, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set %s membership: %w", list, err)
	}
	return n > 0, nil
}

func (r *ScamRepo) IsListed(ctx context.Context, list store.OverrideList, addr model.Address) (bool, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var listed bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM override_lists WHERE list_name = $1 AND address = $2)
	`, string(list), addrKey(addr)).Scan(&listed)
	if err != nil {
		return false, fmt.Errorf("check %s membership: %w", list, err)
	}
	return listed, nil
}
