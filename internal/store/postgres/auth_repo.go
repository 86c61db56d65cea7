package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/emperorhan/chainaudit/internal/domain/model"
)

type AuthorizationRepo struct {
	db *DB
}

func NewAuthorizationRepo(db *DB) *AuthorizationRepo {
	return &AuthorizationRepo{db: db}
}

func (r *AuthorizationRepo) SetAuthorized(ctx context.Context, auditor model.Address, authorized bool) (bool, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var (
		res sql.Result
		err error
	)
	if authorized {
		res, err = r.db.ExecContext(ctx, `
			INSERT INTO auditors (auditor) VALUES ($1)
			ON CONFLICT (auditor) DO NOTHING
		`, addrKey(auditor))
	} else {
		res, err = r.db.ExecContext(ctx, `DELETE FROM auditors WHERE auditor = $1`, addrKey(auditor))
	}
	if err != nil {
		return false, fmt.Errorf("set auditor authorization: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set auditor authorization: %w", err)
	}
	return n > 0, nil
}

func (r *AuthorizationRepo) IsAuthorized(ctx context.Context, auditor model.Address) (bool, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var ok bool
	if err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM auditors WHERE auditor = $1)
	`, addrKey(auditor)).Scan(&ok); err != nil {
		return false, fmt.Errorf("check auditor authorization: %w", err)
	}
	return ok, nil
}
