package model

import "time"

// ScamSource records which path of the heuristic engine produced a ScamFlags value.
type ScamSource string

const (
	ScamSourceNone              ScamSource = ""
	ScamSourceKnownScam         ScamSource = "known_scam"
	ScamSourceTrusted           ScamSource = "trusted"
	ScamSourceBytecode          ScamSource = "bytecode"
	ScamSourceSeededPlaceholder ScamSource = "seeded_placeholder"
)

// ScamFlags is the heuristic engine's verdict for a token.
type ScamFlags struct {
	HasHiddenMint      bool `json:"has_hidden_mint"`
	HasBlacklist       bool `json:"has_blacklist"`
	HasHighTax         bool `json:"has_high_tax"`
	HasLiquidityDrain  bool `json:"has_liquidity_drain"`
	HasOwnershipIssues bool `json:"has_ownership_issues"`
	// RiskScore is RawScore clamped to [0, 100].
	RiskScore  uint8      `json:"risk_score"`
	RawScore   int        `json:"raw_score"`
	IsHoneypot bool       `json:"is_honeypot"`
	Source     ScamSource `json:"source"`
	AnalyzedAt time.Time  `json:"analyzed_at"`
}

// Issues lists a human readable description for every raised flag.
func (f ScamFlags) Issues() []string {
	var issues []string
	if f.Source == ScamSourceKnownScam {
		issues = append(issues, "token is on the known scam list")
	}
	if f.HasHiddenMint {
		issues = append(issues, "uncapped mint function")
	}
	if f.HasBlacklist {
		issues = append(issues, "holder blacklist function")
	}
	if f.HasHighTax {
		issues = append(issues, "owner-adjustable transfer tax")
	}
	if f.HasLiquidityDrain {
		issues = append(issues, "liquidity can be withdrawn by a privileged account")
	}
	if f.HasOwnershipIssues {
		issues = append(issues, "ownership not renounced or contract upgradeable")
	}
	if f.IsHoneypot {
		issues = append(issues, "honeypot risk")
	}
	return issues
}
