package assessment

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// OverrideRule describes when a threat intelligence verdict preempts
// weighted fusion and what score is reported when it does.
type OverrideRule struct {
	Certainty   Certainty `json:"certainty" yaml:"certainty"`
	MinRisk     float64   `json:"min_risk" yaml:"min_risk"`
	ForcedScore float64   `json:"forced_score" yaml:"forced_score"`
}

// Matches reports whether an assessment satisfies the rule.
func (r OverrideRule) Matches(a AgentAssessment) bool {
	return a.Certainty == r.Certainty && a.RiskScore >= r.MinRisk
}

// RetentionDays holds the audit log retention per tier.
type RetentionDays struct {
	Critical int `json:"critical" yaml:"critical"`
	High     int `json:"high" yaml:"high"`
	Medium   int `json:"medium" yaml:"medium"`
	Low      int `json:"low" yaml:"low"`
}

// ActionSettings parameterizes the remediation decision table.
type ActionSettings struct {
	QuarantineFolder      string        `json:"quarantine_folder" yaml:"quarantine_folder"`
	CriticalAlertChannels []string      `json:"critical_alert_channels" yaml:"critical_alert_channels"`
	HighAlertChannels     []string      `json:"high_alert_channels" yaml:"high_alert_channels"`
	AlertRecipients       []string      `json:"alert_recipients" yaml:"alert_recipients"`
	Retention             RetentionDays `json:"retention_days" yaml:"retention_days"`
	MinLogRisk            float64       `json:"min_log_risk" yaml:"min_log_risk"`
}

// Policy is the immutable set of constants the coordination pipeline runs
// on. It is built once at startup and passed by value; Clone detaches the
// slice fields so callers cannot alter a policy already handed out.
type Policy struct {
	Weights    Weights        `json:"weights" yaml:"weights"`
	Thresholds Thresholds     `json:"thresholds" yaml:"thresholds"`
	Override   OverrideRule   `json:"override" yaml:"override"`
	Escalation float64        `json:"escalation_min_risk" yaml:"escalation_min_risk"`
	Actions    ActionSettings `json:"actions" yaml:"actions"`
}

// DefaultPolicy returns the production policy.
func DefaultPolicy() Policy {
	return Policy{
		Weights:    DefaultWeights(),
		Thresholds: DefaultThresholds(),
		Override: OverrideRule{
			Certainty:   CertaintyDefinitive,
			MinRisk:     0.90,
			ForcedScore: 0.95,
		},
		Escalation: 0.90,
		Actions: ActionSettings{
			QuarantineFolder:      "Quarantine/Phishing",
			CriticalAlertChannels: []string{"email", "slack"},
			HighAlertChannels:     []string{"email"},
			AlertRecipients:       []string{"security-team@company.com"},
			Retention: RetentionDays{
				Critical: 365,
				High:     180,
				Medium:   90,
				Low:      30,
			},
			MinLogRisk: 0.10,
		},
	}
}

// Clone returns a deep copy of p.
func (p Policy) Clone() Policy {
	c := p
	c.Actions.CriticalAlertChannels = slices.Clone(p.Actions.CriticalAlertChannels)
	c.Actions.HighAlertChannels = slices.Clone(p.Actions.HighAlertChannels)
	c.Actions.AlertRecipients = slices.Clone(p.Actions.AlertRecipients)
	return c
}

// Validate checks the internal consistency of the policy.
func (p Policy) Validate() error {
	if math.Abs(p.Weights.Sum()-1.0) > 1e-9 {
		return fmt.Errorf("weights must sum to 1.0, got %.4f", p.Weights.Sum())
	}
	for _, w := range []float64{p.Weights.Linguistic, p.Weights.TechnicalValidation, p.Weights.ThreatIntelligence} {
		if w < 0 {
			return errors.New("weights must be non-negative")
		}
	}
	t := p.Thresholds
	if t.Medium <= 0 || t.Critical > 1 || t.Medium >= t.High || t.High >= t.Critical {
		return fmt.Errorf("thresholds must satisfy 0 < medium < high < critical <= 1, got %.2f/%.2f/%.2f",
			t.Medium, t.High, t.Critical)
	}
	if !p.Override.Certainty.Valid() {
		return fmt.Errorf("override certainty %q is not a known label", p.Override.Certainty)
	}
	if p.Override.MinRisk <= 0 || p.Override.MinRisk > 1 {
		return errors.New("override min_risk must be in (0,1]")
	}
	if p.Override.ForcedScore < t.Critical || p.Override.ForcedScore > 1 {
		return errors.New("override forced_score must fall in the critical tier")
	}
	if p.Escalation <= 0 || p.Escalation > 1 {
		return errors.New("escalation_min_risk must be in (0,1]")
	}
	if p.Actions.QuarantineFolder == "" {
		return errors.New("actions.quarantine_folder is required")
	}
	r := p.Actions.Retention
	if r.Critical < 1 || r.High < 1 || r.Medium < 1 || r.Low < 1 {
		return errors.New("actions.retention_days must all be >= 1")
	}
	return nil
}
