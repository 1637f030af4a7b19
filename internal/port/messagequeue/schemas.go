package messagequeue

import "github.com/Strob0t/MailWarden/internal/domain/assessment"

// CoordinationRequestPayload is the schema for coordination.request
// messages. It mirrors the HTTP analyze body.
type CoordinationRequestPayload = assessment.Request

// CoordinationCompletedPayload is the schema for coordination.completed messages.
type CoordinationCompletedPayload struct {
	EmailID        string                 `json:"email_id"`
	EmailUID       string                 `json:"email_uid,omitempty"`
	RequestID      string                 `json:"request_id"`
	RiskLevel      assessment.RiskLevel   `json:"risk_level"`
	FinalRiskScore float64                `json:"final_risk_score"`
	Certainty      assessment.Certainty   `json:"aggregated_certainty"`
	FinalAction    assessment.FinalAction `json:"final_action"`
	OverrideActive bool                   `json:"override_active"`
	Fallback       bool                   `json:"fallback"`
}
