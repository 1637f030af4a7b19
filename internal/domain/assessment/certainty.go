// Package assessment defines the domain model for coordinated phishing-risk
// assessments: per-agent verdicts, the fused result, remediation actions
// and the policy that drives them.
package assessment

import "strings"

// Certainty is an ordinal label describing how sure an agent is about its
// own verdict, independent of the magnitude of the risk it reports.
type Certainty string

const (
	CertaintyDefinitive   Certainty = "DEFINITIVE"
	CertaintyHigh         Certainty = "HIGH"
	CertaintyMedium       Certainty = "MEDIUM"
	CertaintyLow          Certainty = "LOW"
	CertaintyInconclusive Certainty = "INCONCLUSIVE"
)

// Certainties lists all labels from strongest to weakest.
var Certainties = []Certainty{
	CertaintyDefinitive,
	CertaintyHigh,
	CertaintyMedium,
	CertaintyLow,
	CertaintyInconclusive,
}

// ParseCertainty matches s case-insensitively against the known labels.
func ParseCertainty(s string) (Certainty, bool) {
	c := Certainty(strings.ToUpper(strings.TrimSpace(s)))
	if c.Valid() {
		return c, true
	}
	return "", false
}

// Valid reports whether c is one of the five known labels.
func (c Certainty) Valid() bool {
	switch c {
	case CertaintyDefinitive, CertaintyHigh, CertaintyMedium, CertaintyLow, CertaintyInconclusive:
		return true
	}
	return false
}

// Rank returns the ordinal rank used when averaging certainty labels.
// Unknown labels rank as MEDIUM.
func (c Certainty) Rank() float64 {
	switch c {
	case CertaintyDefinitive:
		return 4
	case CertaintyHigh:
		return 3
	case CertaintyMedium:
		return 2
	case CertaintyLow:
		return 1
	case CertaintyInconclusive:
		return 0
	}
	return 2
}

// CertaintyFromRank buckets a weighted rank average back into a label.
func CertaintyFromRank(score float64) Certainty {
	switch {
	case score >= 3.5:
		return CertaintyDefinitive
	case score >= 2.5:
		return CertaintyHigh
	case score >= 1.5:
		return CertaintyMedium
	case score >= 0.5:
		return CertaintyLow
	default:
		return CertaintyInconclusive
	}
}

// Uncertainty maps the label onto the analysis-uncertainty scale, where
// 0 means fully certain and 1 means no usable signal. It feeds the
// diagnostic uncertainty score of a coordination result.
func (c Certainty) Uncertainty() float64 {
	switch c {
	case CertaintyDefinitive:
		return 0.0
	case CertaintyHigh:
		return 0.1
	case CertaintyMedium:
		return 0.3
	case CertaintyLow:
		return 0.6
	case CertaintyInconclusive:
		return 1.0
	}
	return 0.5
}

// ActionConfidence maps the label onto the confidence attached to a
// recommended remediation action. It is unrelated to Uncertainty: the two
// scales answer different questions and are not complements of each other.
func (c Certainty) ActionConfidence() float64 {
	switch c {
	case CertaintyDefinitive:
		return 0.95
	case CertaintyHigh:
		return 0.85
	case CertaintyMedium:
		return 0.70
	case CertaintyLow:
		return 0.50
	case CertaintyInconclusive:
		return 0.30
	}
	return 0.70
}
