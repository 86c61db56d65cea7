package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxRiskScore is the inclusive upper bound of every persisted risk score.
const MaxRiskScore = 100

// AuditRecord is the latest authoritative audit decision for a token.
type AuditRecord struct {
	ID             uuid.UUID `json:"id"`
	TokenAddress   Address   `json:"token_address"`
	RiskScore      uint8     `json:"risk_score"`
	IsScam         bool      `json:"is_scam"`
	IsHoneypot     bool      `json:"is_honeypot"`
	AuditTimestamp time.Time `json:"audit_timestamp"`
	Auditor        Address   `json:"auditor"`
	ReportRef      string    `json:"report_ref,omitempty"`
}

// Audited reports whether the record represents a real submission.
func (r AuditRecord) Audited() bool {
	return !r.AuditTimestamp.IsZero()
}

// TokenMetrics is a complete snapshot of rolling per-token statistics.
type TokenMetrics struct {
	TotalTransactions uint64          `json:"total_transactions"`
	UniqueHolders     uint64          `json:"unique_holders"`
	LiquidityUSD      decimal.Decimal `json:"liquidity_usd"`
	LiquidityLocked   bool            `json:"liquidity_locked"`
	LastUpdated       time.Time       `json:"last_updated"`
}

// AuditorStats summarises an auditor's authorization and productivity.
type AuditorStats struct {
	Auditor    Address `json:"auditor"`
	Authorized bool    `json:"authorized"`
	AuditCount uint64  `json:"audit_count"`
}
