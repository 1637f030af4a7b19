package assessment

// RiskLevel is the ordinal tier derived from a continuous risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Valid reports whether l is a known tier.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// Thresholds holds the inclusive lower bounds of the upper three tiers.
type Thresholds struct {
	Critical float64 `json:"critical" yaml:"critical"`
	High     float64 `json:"high" yaml:"high"`
	Medium   float64 `json:"medium" yaml:"medium"`
}

// DefaultThresholds returns the fixed 0.90 / 0.70 / 0.40 tier boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Critical: 0.90, High: 0.70, Medium: 0.40}
}

// Categorize maps score onto a tier. Lower bounds are inclusive.
func (t Thresholds) Categorize(score float64) RiskLevel {
	switch {
	case score >= t.Critical:
		return RiskCritical
	case score >= t.High:
		return RiskHigh
	case score >= t.Medium:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Clamp restricts v to [0,1].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
