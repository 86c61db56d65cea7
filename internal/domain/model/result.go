package model

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// MetadataTier identifies which fallback tier produced the token metadata of an audit.
type MetadataTier string

const (
	MetadataTierOnChain   MetadataTier = "on_chain"
	MetadataTierDirect    MetadataTier = "direct_read"
	MetadataTierSynthetic MetadataTier = "synthetic"
)

// SecurityAnalysis is the scored view of a token's risk.
type SecurityAnalysis struct {
	RiskScore uint8     `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`
	IsScam    bool      `json:"is_scam"`
	Honeypot  bool      `json:"is_honeypot"`
	Issues    []string  `json:"issues"`
	Source    string    `json:"source"`
}

// LiquidityAnalysis describes a token's on-market liquidity.
type LiquidityAnalysis struct {
	LiquidityUSD decimal.Decimal `json:"liquidity_usd"`
	Volume24hUSD decimal.Decimal `json:"volume_24h_usd"`
	PairCount    int             `json:"pair_count"`
	Locked       bool            `json:"locked"`
	Source       string          `json:"source"`
}

// OwnerReputation describes the account that controls a token.
type OwnerReputation struct {
	Owner            Address `json:"owner"`
	Renounced        bool    `json:"renounced"`
	IsContract       bool    `json:"is_contract"`
	TransactionCount uint64  `json:"transaction_count"`
	// BalanceWei is the owner's native balance; nil when unread.
	BalanceWei *big.Int `json:"balance_wei,omitempty"`
	// SupplyShare is the fraction of total supply the owner holds.
	SupplyShare decimal.Decimal `json:"supply_share"`
	Score       uint8           `json:"score"`
	Source      string          `json:"source"`
}

// TransactionStats summarises token activity.
type TransactionStats struct {
	TotalTransactions uint64 `json:"total_transactions"`
	UniqueHolders     uint64 `json:"unique_holders"`
	Source            string `json:"source"`
}

// WriteBackStatus reports the outcome of persisting an audit to the registry.
type WriteBackStatus struct {
	Attempted bool   `json:"attempted"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

// AuditResult is the composed output of one pipeline run.
type AuditResult struct {
	Token        TokenRecord       `json:"token"`
	MetadataTier MetadataTier      `json:"metadata_tier"`
	Security     SecurityAnalysis  `json:"security"`
	Liquidity    LiquidityAnalysis `json:"liquidity"`
	Owner        OwnerReputation   `json:"owner"`
	Transactions TransactionStats  `json:"transactions"`
	PriorAudit   *AuditRecord      `json:"prior_audit,omitempty"`
	Enrichments  map[string]any    `json:"enrichments,omitempty"`
	WriteBack    WriteBackStatus   `json:"write_back"`
	// Degraded lists the stages that fell back to defaults.
	Degraded  []string  `json:"degraded,omitempty"`
	AuditedAt time.Time `json:"audited_at"`
}
