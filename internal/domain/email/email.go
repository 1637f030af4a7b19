// Package email defines the stored view of analyzed emails.
package email

import (
	"time"

	"github.com/Strob0t/MailWarden/internal/domain/assessment"
)

// Email is an analyzed message and its latest verdict.
type Email struct {
	ID             string                 `json:"id"`
	EmailUID       string                 `json:"email_uid"`
	Subject        string                 `json:"subject"`
	Sender         string                 `json:"sender"`
	Recipient      string                 `json:"recipient"`
	ReceivedAt     time.Time              `json:"received_at"`
	FinalRiskScore *float64               `json:"final_risk_score,omitempty"`
	FinalRiskLevel assessment.RiskLevel   `json:"final_threat_level,omitempty"`
	FinalAction    assessment.FinalAction `json:"final_action,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// Detail is an email together with its most recent coordination result.
type Detail struct {
	Email        Email                          `json:"email"`
	Coordination *assessment.CoordinationResult `json:"coordination,omitempty"`
	Fallback     bool                           `json:"fallback"`
	AnalyzedAt   *time.Time                     `json:"analyzed_at,omitempty"`
}

// Default and maximum page sizes for ListFilter.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListFilter selects a page of recent emails.
type ListFilter struct {
	Limit     int
	Offset    int
	RiskLevel assessment.RiskLevel
}

// Normalize clamps the page bounds into their allowed ranges.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
