package assessment

// Request is one coordination job: the email envelope plus the raw output
// of each upstream agent.
type Request struct {
	EmailID           string         `json:"email_id"`
	Email             EmailData      `json:"email_data"`
	LinguisticResult  map[string]any `json:"linguistic_result"`
	TechnicalResult   map[string]any `json:"technical_result"`
	ThreatIntelResult map[string]any `json:"threat_intel_result"`
}

// Raw returns the raw output of agent a.
func (r Request) Raw(a Agent) map[string]any {
	switch a {
	case AgentLinguistic:
		return r.LinguisticResult
	case AgentTechnicalValidation:
		return r.TechnicalResult
	case AgentThreatIntelligence:
		return r.ThreatIntelResult
	}
	return nil
}
