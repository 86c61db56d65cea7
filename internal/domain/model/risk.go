package model

type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// RiskLevelFor buckets a score: [0,25) LOW, [25,50) MEDIUM, [50,75) HIGH, [75,100] CRITICAL.
// Scores outside [0,100] are clamped first.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score < 25:
		return RiskLevelLow
	case score < 50:
		return RiskLevelMedium
	case score < 75:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// ClampScore bounds score to [0, MaxRiskScore].
func ClampScore(score int) uint8 {
	if score < 0 {
		return 0
	}
	if score > MaxRiskScore {
		return MaxRiskScore
	}
	return uint8(score)
}
