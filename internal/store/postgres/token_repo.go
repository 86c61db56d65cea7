package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/emperorhan/chainaudit/internal/domain/model"
)

type TokenRepo struct {
	db *DB
}

func NewTokenRepo(db *DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// SaveToken overwrites the stored snapshot; there is no field-level merge.
func (r *TokenRepo) SaveToken(ctx context.Context, rec model.TokenRecord) error {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (address, name, symbol, decimals, total_supply, owner_address, token_exists, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (address) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			decimals = EXCLUDED.decimals,
			total_supply = EXCLUDED.total_supply,
			owner_address = EXCLUDED.owner_address,
			token_exists = EXCLUDED.token_exists,
			analyzed_at = EXCLUDED.analyzed_at
	`, addrKey(rec.Address), rec.Name, rec.Symbol, int16(rec.Decimals), bigToNumeric(rec.TotalSupply),
		addrKey(rec.Owner), rec.Exists, rec.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (r *TokenRepo) GetToken(ctx context.Context, addr model.Address) (model.TokenRecord, bool, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var (
		rec      model.TokenRecord
		decimals int16
		supply   string
		owner    string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT name, symbol, decimals, total_supply, owner_address, token_exists, analyzed_at
		FROM tokens
		WHERE address = $1
	`, addrKey(addr)).Scan(&rec.Name, &rec.Symbol, &decimals, &supply, &owner, &rec.Exists, &rec.AnalyzedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TokenRecord{}, false, nil
	}
	if err != nil {
		return model.TokenRecord{}, false, fmt.Errorf("get token: %w", err)
	}

	total, err := numericToBig(supply)
	if err != nil {
		return model.TokenRecord{}, false, fmt.Errorf("get token: %w", err)
	}
	rec.Address = addr
	rec.Decimals = uint8(decimals)
	rec.TotalSupply = total
	rec.Owner = parseAddr(owner)
	return rec, true, nil
}

func (r *TokenRepo) SaveSecurityFlags(ctx context.Context, addr model.Address, f model.SecurityFlags) error {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO security_flags (address, has_owner, has_mint_function, has_burn_function,
			has_pause_function, has_blacklist_function, ownership_renounced, set_by, set_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (address) DO UPDATE SET
			has_owner = EXCLUDED.has_owner,
			has_mint_function = EXCLUDED.has_mint_function,
			has_burn_function = EXCLUDED.has_burn_function,
			has_pause_function = EXCLUDED.has_pause_function,
			has_blacklist_function = EXCLUDED.has_blacklist_function,
			ownership_renounced = EXCLUDED.ownership_renounced,
			set_by = EXCLUDED.set_by,
			set_at = EXCLUDED.set_at
	`, addrKey(addr), f.HasOwner, f.HasMintFunction, f.HasBurnFunction, f.HasPauseFunction,
		f.HasBlacklistFunction, f.OwnershipRenounced, addrKey(f.SetBy), f.SetAt,
	)
	if err != nil {
		return fmt.Errorf("save security flags: %w", err)
	}
	return nil
}

func (r *TokenRepo) GetSecurityFlags(ctx context.Context, addr model.Address) (model.SecurityFlags, bool, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var (
		f     model.SecurityFlags
		setBy string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT has_owner, has_mint_function, has_burn_function, has_pause_function,
		       has_blacklist_function, ownership_renounced, set_by, set_at
		FROM security_flags
		WHERE address = $1
	`, addrKey(addr)).Scan(&f.HasOwner, &f.HasMintFunction, &f.HasBurnFunction, &f.HasPauseFunction,
		&f.HasBlacklistFunction, &f.OwnershipRenounced, &setBy, &f.SetAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SecurityFlags{}, false, nil
	}
	if err != nil {
		return model.SecurityFlags{}, false, fmt.Errorf("get security flags: %w", err)
	}
	f.SetBy = parseAddr(setBy)
	return f, true, nil
}
