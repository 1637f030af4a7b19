package assessment

import "time"

// SystemVersion is reported in the metadata of every result.
const SystemVersion = "4.0.0"

// EmailData carries the envelope fields used for context and actions.
type EmailData struct {
	Subject   string `json:"subject,omitempty" mapstructure:"subject"`
	Sender    string `json:"sender,omitempty" mapstructure:"sender"`
	Recipient string `json:"recipient,omitempty" mapstructure:"recipient"`
	Date      string `json:"date,omitempty" mapstructure:"date"`
}

// Metadata describes how a result was produced.
type Metadata struct {
	RequestID             string             `json:"request_id"`
	AnalysisTimestamp     time.Time          `json:"analysis_timestamp"`
	TotalProcessingTimeMs int64              `json:"total_processing_time_ms"`
	SystemVersion         string             `json:"system_version"`
	AgentsUsed            []Agent            `json:"agents_used"`
	AgentWeights          map[string]float64 `json:"agent_weights"`
	OverrideActive        bool               `json:"override_active"`
	NarrativeFallback     bool               `json:"narrative_fallback"`
	Fallback              bool               `json:"fallback"`
	Error                 string             `json:"error,omitempty"`
}

// CoordinationResult is the fused verdict for one email. It is built once
// by the coordinator and not modified afterwards.
type CoordinationResult struct {
	FinalRiskScore      float64             `json:"final_risk_score"`
	RiskLevel           RiskLevel           `json:"risk_level"`
	AggregatedCertainty Certainty           `json:"aggregated_certainty"`
	DetailedReasoning   string              `json:"detailed_reasoning"`
	Uncertainty         float64             `json:"uncertainty"`
	AgentContributions  []AgentContribution `json:"agent_contributions"`
	Explanation         Explanation         `json:"explanation"`
	RecommendedActions  []RecommendedAction `json:"recommended_actions"`
	UserRecommendations []string            `json:"user_recommendations"`
	Metadata            Metadata            `json:"metadata"`
	Timestamp           time.Time           `json:"timestamp"`
	ProcessingTime      time.Duration       `json:"processing_time"`
}

// FinalAction is the coarse verdict recorded against the email.
type FinalAction string

const (
	FinalActionQuarantine FinalAction = "QUARANTINE"
	FinalActionAllow      FinalAction = "ALLOW"
)

// FinalActionFor returns QUARANTINE for scores of at least 0.5.
func FinalActionFor(score float64) FinalAction {
	if score >= 0.5 {
		return FinalActionQuarantine
	}
	return FinalActionAllow
}

// Status tags an Outcome.
type Status string

const (
	StatusOK       Status = "ok"
	StatusFallback Status = "fallback"
)

// Outcome is what the coordinator hands back to its caller: either the
// regular result, or a conservative fallback result plus the reason the
// regular path could not complete. Result is always populated.
type Outcome struct {
	Status Status             `json:"status"`
	Reason string             `json:"reason,omitempty"`
	Result CoordinationResult `json:"result"`
}

// Ok wraps a successfully assembled result.
func Ok(r CoordinationResult) Outcome {
	return Outcome{Status: StatusOK, Result: r}
}

// Fallback wraps a fallback result together with the failure reason.
func Fallback(reason string, r CoordinationResult) Outcome {
	return Outcome{Status: StatusFallback, Reason: reason, Result: r}
}

// IsFallback reports whether the outcome carries a fallback result.
func (o Outcome) IsFallback() bool {
	return o.Status == StatusFallback
}
