package assessment

// Explanation is the human-readable account of a coordination result.
// Everything except Narrative is derived deterministically.
type Explanation struct {
	Summary       string            `json:"summary"`
	Narrative     string            `json:"narrative"`
	KeyFindings   []string          `json:"key_findings"`
	RiskBreakdown map[string]string `json:"risk_breakdown"`
	TopIndicators []Indicator       `json:"top_indicators"`
}

// Indicator is a single finding ranked by the contribution of its agent.
type Indicator struct {
	Source       Agent     `json:"source"`
	Severity     RiskLevel `json:"severity"`
	Description  string    `json:"description"`
	Certainty    Certainty `json:"certainty"`
	Contribution float64   `json:"contribution"`
}
