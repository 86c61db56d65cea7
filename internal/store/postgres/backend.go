package postgres

import "github.com/emperorhan/chainaudit/internal/store"

// Backend exposes every repository over one connection pool.
type Backend struct {
	*TokenRepo
	*ScamRepo
	*AuditRepo
	*AuthorizationRepo
	db *DB
}

var _ store.Backend = (*Backend)(nil)

func NewBackend(db *DB) *Backend {
	return &Backend{
		TokenRepo:         NewTokenRepo(db),
		ScamRepo:          NewScamRepo(db),
		AuditRepo:         NewAuditRepo(db),
		AuthorizationRepo: NewAuthorizationRepo(db),
		db:                db,
	}
}

func (b *Backend) Close() error {
	return b.db.Close()
}
