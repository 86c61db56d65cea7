package store

import (
	"context"

	"github.com/emperorhan/chainaudit/internal/domain/model"
)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks . TokenRepository,ScamRepository,AuditRepository,AuthorizationRepository

// TokenRepository persists token identity snapshots and capability flags.
// Every write replaces the stored value for the address wholesale.
type TokenRepository interface {
	SaveToken(ctx context.Context, rec model.TokenRecord) error
	GetToken(ctx context.Context, addr model.Address) (model.TokenRecord, bool, error)
	SaveSecurityFlags(ctx context.Context, addr model.Address, flags model.SecurityFlags) error
	GetSecurityFlags(ctx context.Context, addr model.Address) (model.SecurityFlags, bool, error)
}

// OverrideList names one of the heuristic engine's override lists.
type OverrideList string

const (
	ListKnownScams    OverrideList = "known_scams"
	ListTrustedTokens OverrideList = "trusted_tokens"
)

// ScamRepository persists heuristic verdicts and override list membership.
type ScamRepository interface {
	SaveScamFlags(ctx context.Context, addr model.Address, flags model.ScamFlags) error
	GetScamFlags(ctx context.Context, addr model.Address) (model.ScamFlags, bool, error)
	// SetListed adds or removes addr from list and reports whether membership changed.
	SetListed(ctx context.Context, list OverrideList, addr model.Address, listed bool) (bool, error)
	IsListed(ctx context.Context, list OverrideList, addr model.Address) (bool, error)
}

// AuditRepository persists audit records, per-auditor counters and token metrics.
type AuditRepository interface {
	// ReplaceAuditRecord atomically replaces the token's record and increments the
	// auditor's counter, returning the new count.
	ReplaceAuditRecord(ctx context.Context, rec model.AuditRecord) (uint64, error)
	GetAuditRecord(ctx context.Context, token model.Address) (model.AuditRecord, bool, error)
	GetAuditCount(ctx context.Context, auditor model.Address) (uint64, error)
	SaveTokenMetrics(ctx context.Context, token model.Address, tm model.TokenMetrics) error
	GetTokenMetrics(ctx context.Context, token model.Address) (model.TokenMetrics, bool, error)
}

// AuthorizationRepository persists the explicit auditor grants.
type AuthorizationRepository interface {
	// SetAuthorized grants or revokes and reports whether the stored value changed.
	SetAuthorized(ctx context.Context, auditor model.Address, authorized bool) (bool, error)
	IsAuthorized(ctx context.Context, auditor model.Address) (bool, error)
}

// Backend bundles every repository a deployment needs.
type Backend interface {
	TokenRepository
	ScamRepository
	AuditRepository
	AuthorizationRepository
	Close() error
}
