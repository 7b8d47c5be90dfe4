package aggregate

// RiskLevel is a human-readable label derived from a risk score.
type RiskLevel string

const (
	RiskExcellent RiskLevel = "EXCELLENT"
	RiskGood      RiskLevel = "GOOD"
	RiskModerate  RiskLevel = "MODERATE"
	RiskHigh      RiskLevel = "HIGH"
	RiskCritical  RiskLevel = "CRITICAL"
)

// Score computes the bounded risk score from interaction rates, all
// expressed as percentages of delivered. Data submission weighs twice
// as heavily as a bare click; reporting subtracts risk. The result is
// clamped to [0, 100].
func Score(clickRate, dataSubmitRate, reportRate float64) float64 {
	score := clickRate*0.6 + dataSubmitRate*0.3*2 - reportRate*0.1
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Level maps a risk score to its label. The same thresholds apply to
// daily snapshots and whole-campaign reporting.
func Level(score float64) RiskLevel {
	switch {
	case score < 10:
		return RiskExcellent
	case score < 25:
		return RiskGood
	case score < 50:
		return RiskModerate
	case score < 75:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// Rate returns count as a percentage of delivered, zero when nothing
// was delivered.
func Rate(count, delivered int) float64 {
	if delivered <= 0 {
		return 0
	}
	return float64(count) / float64(delivered) * 100
}
