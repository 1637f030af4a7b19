package assessment

import (
	"strings"
	"unicode"
)

// Agent identifies one of the three upstream analysis agents.
type Agent string

const (
	AgentLinguistic          Agent = "linguistic"
	AgentTechnicalValidation Agent = "technical_validation"
	AgentThreatIntelligence  Agent = "threat_intelligence"
)

// Agents lists the upstream agents in reporting order.
var Agents = []Agent{AgentLinguistic, AgentTechnicalValidation, AgentThreatIntelligence}

// DisplayName renders the agent identifier in title case, e.g.
// "threat_intelligence" becomes "Threat Intelligence".
func (a Agent) DisplayName() string {
	words := strings.Split(string(a), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// AgentAssessment is the normalized verdict of a single upstream agent.
type AgentAssessment struct {
	Agent       Agent     `json:"agent_name"`
	RiskScore   float64   `json:"risk_score"`
	Certainty   Certainty `json:"certainty_level"`
	Reasoning   string    `json:"analysis_reasoning"`
	Weight      float64   `json:"weight"`
	KeyFindings []string  `json:"key_findings"`
}

// AgentContribution is an assessment together with its share of the
// fused score.
type AgentContribution struct {
	AgentAssessment
	WeightedContribution float64 `json:"weighted_contribution"`
}

// Weights holds the fusion weight of each agent.
type Weights struct {
	Linguistic          float64 `json:"linguistic" yaml:"linguistic"`
	TechnicalValidation float64 `json:"technical_validation" yaml:"technical_validation"`
	ThreatIntelligence  float64 `json:"threat_intelligence" yaml:"threat_intelligence"`
}

// DefaultWeights returns the fixed 60-20-20 distribution.
func DefaultWeights() Weights {
	return Weights{Linguistic: 0.60, TechnicalValidation: 0.20, ThreatIntelligence: 0.20}
}

// OverrideWeights returns the distribution reported while the threat
// intelligence override is active.
func OverrideWeights() Weights {
	return Weights{ThreatIntelligence: 1.0}
}

// For returns the weight of agent a.
func (w Weights) For(a Agent) float64 {
	switch a {
	case AgentLinguistic:
		return w.Linguistic
	case AgentTechnicalValidation:
		return w.TechnicalValidation
	case AgentThreatIntelligence:
		return w.ThreatIntelligence
	}
	return 0
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Linguistic + w.TechnicalValidation + w.ThreatIntelligence
}

// Map renders the weights keyed by agent identifier.
func (w Weights) Map() map[string]float64 {
	return map[string]float64{
		string(AgentLinguistic):          w.Linguistic,
		string(AgentTechnicalValidation): w.TechnicalValidation,
		string(AgentThreatIntelligence):  w.ThreatIntelligence,
	}
}
