package service

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Strob0t/MailWarden/internal/domain/assessment"
)

// ErrEmptyReasoning is returned when an action would be emitted without
// an explanation.
var ErrEmptyReasoning = errors.New("recommended action has empty reasoning")

// ActionRecommender maps a verdict onto remediation actions using the
// tiered decision table of a Policy.
type ActionRecommender struct {
	policy assessment.Policy
	log    *slog.Logger
}

// NewActionRecommender creates an ActionRecommender bound to a copy of policy.
func NewActionRecommender(policy assessment.Policy, log *slog.Logger) *ActionRecommender {
	if log == nil {
		log = slog.Default()
	}
	return &ActionRecommender{policy: policy.Clone(), log: log}
}

// Recommend returns the actions for v. The override path short-circuits the
// tier table: an externally confirmed threat blocks the sender without
// approval, while a block derived from weighted fusion always needs sign-off.
func (r *ActionRecommender) Recommend(v Verdict, mail assessment.EmailData) ([]assessment.RecommendedAction, error) {
	sender := mail.Sender
	if sender == "" {
		sender = "unknown"
	}

	var actions []assessment.RecommendedAction
	switch {
	case v.OverrideActive:
		r.log.Warn("override active, applying definitive threat actions", "sender", sender)
		actions = r.overrideActions(sender)
	case v.FinalRiskScore >= r.policy.Thresholds.Critical &&
		(v.Certainty == assessment.CertaintyDefinitive || v.Certainty == assessment.CertaintyHigh):
		actions = r.criticalActions(v, sender)
	case v.FinalRiskScore >= r.policy.Thresholds.High:
		actions = r.highActions(v)
	case v.FinalRiskScore >= r.policy.Thresholds.Medium:
		actions = r.mediumActions(v)
	default:
		actions = r.lowActions(v)
	}

	for i := range actions {
		if strings.TrimSpace(actions[i].Reasoning) == "" {
			return nil, fmt.Errorf("%s action: %w", actions[i].ActionType, ErrEmptyReasoning)
		}
	}
	r.log.Debug("actions recommended", "count", len(actions), "risk_level", v.RiskLevel)
	return actions, nil
}

func (r *ActionRecommender) overrideActions(sender string) []assessment.RecommendedAction {
	conf := assessment.CertaintyDefinitive.ActionConfidence()
	return []assessment.RecommendedAction{
		{
			ActionType: assessment.ActionQuarantine,
			Priority:   assessment.PriorityCritical,
			Confidence: conf,
			Parameters: map[string]any{
				"reason": "DEFINITIVE threat detected by authoritative threat intelligence sources",
				"folder": r.policy.Actions.QuarantineFolder,
			},
			Reasoning: "Threat intelligence flagged this email with DEFINITIVE certainty. " +
				"This is a confirmed threat from authoritative sources - immediate quarantine required.",
		},
		{
			ActionType: assessment.ActionBlockSender,
			Priority:   assessment.PriorityCritical,
			Confidence: conf,
			Parameters: map[string]any{
				"scope":          "email",
				"sender_email":   sender,
				"block_duration": "permanent",
			},
			Reasoning: fmt.Sprintf("Sender '%s' confirmed malicious by threat intelligence databases. Blocking immediately.", sender),
		},
	}
}

func (r *ActionRecommender) criticalActions(v Verdict, sender string) []assessment.RecommendedAction {
	conf := v.Certainty.ActionConfidence()
	domain := senderDomain(sender)
	days := r.policy.Actions.Retention.Critical
	return []assessment.RecommendedAction{
		{
			ActionType: assessment.ActionQuarantine,
			Priority:   assessment.PriorityCritical,
			Confidence: conf,
			Parameters: map[string]any{
				"reason": fmt.Sprintf("High-certainty phishing detection with critical risk indicators (%s)", v.Certainty),
				"folder": r.policy.Actions.QuarantineFolder,
			},
			Reasoning: fmt.Sprintf("Email exhibits multiple critical phishing indicators with %s certainty. "+
				"Immediate quarantine protects user from potential harm.", v.Certainty),
		},
		{
			ActionType: assessment.ActionBlockSender,
			Priority:   assessment.PriorityCritical,
			Confidence: conf,
			Parameters: map[string]any{
				"scope":          "domain",
				"sender_domain":  domain,
				"sender_email":   sender,
				"block_duration": "permanent",
			},
			RequiresApproval: true,
			Reasoning: fmt.Sprintf("Sender domain '%s' shows malicious patterns with %s certainty. "+
				"Blocking entire domain recommended, but requires admin approval due to impact.", domain, v.Certainty),
		},
		{
			ActionType: assessment.ActionAlert,
			Priority:   assessment.PriorityCritical,
			Confidence: conf,
			Parameters: map[string]any{
				"channels":         slices.Clone(r.policy.Actions.CriticalAlertChannels),
				"recipients":       slices.Clone(r.policy.Actions.AlertRecipients),
				"message":          fmt.Sprintf("CRITICAL phishing email detected with %.1f%% confidence", conf*100),
				"include_analysis": true,
			},
			Reasoning: "Security team must be notified immediately about critical phishing attempt.",
		},
		{
			ActionType: assessment.ActionTag,
			Priority:   assessment.PriorityCritical,
			Confidence: conf,
			Parameters: map[string]any{"label": "PHISHING_CRITICAL", "color": "red"},
			Reasoning:  "Visual indicator for any user who might encounter this email.",
		},
		{
			ActionType: assessment.ActionLog,
			Priority:   assessment.PriorityCritical,
			Confidence: conf,
			Parameters: logParams(days, true, "security_incident"),
			Reasoning: fmt.Sprintf("Comprehensive audit trail for security review and incident response (%d day retention).",
				days),
		},
	}
}

func (r *ActionRecommender) highActions(v Verdict) []assessment.RecommendedAction {
	conf := v.Certainty.ActionConfidence()
	days := r.policy.Actions.Retention.High
	return []assessment.RecommendedAction{
		{
			ActionType: assessment.ActionQuarantine,
			Priority:   assessment.PriorityHigh,
			Confidence: conf,
			Parameters: map[string]any{
				"reason": "Suspected phishing with multiple risk indicators",
				"folder": r.policy.Actions.QuarantineFolder,
			},
			Reasoning: "Multiple risk indicators detected. Quarantine for user safety.",
		},
		{
			ActionType: assessment.ActionTag,
			Priority:   assessment.PriorityHigh,
			Confidence: conf,
			Parameters: map[string]any{"label": "SUSPECTED_PHISHING", "color": "orange"},
			Reasoning:  "Flag for user awareness and tracking.",
		},
		{
			ActionType: assessment.ActionAlert,
			Priority:   assessment.PriorityHigh,
			Confidence: conf,
			Parameters: map[string]any{
				"channels":         slices.Clone(r.policy.Actions.HighAlertChannels),
				"recipients":       slices.Clone(r.policy.Actions.AlertRecipients),
				"message":          fmt.Sprintf("High-risk phishing email detected (%.1f%% confidence)", conf*100),
				"include_analysis": true,
			},
			Reasoning: "Notify security team of high-risk detection for monitoring.",
		},
		{
			ActionType: assessment.ActionLog,
			Priority:   assessment.PriorityHigh,
			Confidence: conf,
			Parameters: logParams(days, true, "security_warning"),
			Reasoning:  fmt.Sprintf("Audit trail for security review (%d day retention).", days),
		},
	}
}

func (r *ActionRecommender) mediumActions(v Verdict) []assessment.RecommendedAction {
	conf := v.Certainty.ActionConfidence()
	days := r.policy.Actions.Retention.Medium
	return []assessment.RecommendedAction{
		{
			ActionType: assessment.ActionTag,
			Priority:   assessment.PriorityMedium,
			Confidence: conf,
			Parameters: map[string]any{"label": "REVIEW_REQUIRED", "color": "yellow"},
			Reasoning:  "Some suspicious indicators present. User should review before taking action on email.",
		},
		{
			ActionType: assessment.ActionLog,
			Priority:   assessment.PriorityMedium,
			Confidence: conf,
			Parameters: logParams(days, false, "info"),
			Reasoning:  fmt.Sprintf("Track for pattern analysis (%d day retention).", days),
		},
	}
}

func (r *ActionRecommender) lowActions(v Verdict) []assessment.RecommendedAction {
	conf := v.Certainty.ActionConfidence()
	actions := []assessment.RecommendedAction{{
		ActionType: assessment.ActionNone,
		Priority:   assessment.PriorityLow,
		Confidence: conf,
		Parameters: map[string]any{},
		Reasoning:  "Email appears legitimate with no significant risk indicators.",
	}}
	if v.FinalRiskScore > r.policy.Actions.MinLogRisk {
		days := r.policy.Actions.Retention.Low
		actions = append(actions, assessment.RecommendedAction{
			ActionType: assessment.ActionLog,
			Priority:   assessment.PriorityLow,
			Confidence: conf,
			Parameters: logParams(days, false, "debug"),
			Reasoning:  fmt.Sprintf("Minimal logging for baseline analysis (%d day retention).", days),
		})
	}
	return actions
}

// UserRecommendations returns plain-language guidance for the mailbox owner.
func UserRecommendations(level assessment.RiskLevel, actions []assessment.RecommendedAction) []string {
	quarantined := assessment.HasAction(actions, assessment.ActionQuarantine)

	switch level {
	case assessment.RiskCritical:
		recs := []string{
			"DO NOT click any links or open attachments in this email",
			"DO NOT provide any credentials or sensitive information",
			"DO NOT reply to this email or engage with the sender",
		}
		if quarantined {
			recs = append(recs, "This email has been automatically quarantined for your protection")
		}
		return append(recs,
			"Security team has been notified and is investigating",
			"If you believe this is a false positive, contact security team immediately for review",
		)
	case assessment.RiskHigh:
		recs := []string{
			"Exercise extreme caution with this email",
			"Do not click links or download attachments unless verified",
		}
		if quarantined {
			recs = append(recs, "This email has been quarantined as a precaution")
		}
		return append(recs,
			"Verify sender authenticity through a separate channel before responding",
			"Report suspicious emails to your security team",
		)
	case assessment.RiskMedium:
		return []string{
			"This email has some suspicious characteristics",
			"Verify sender identity before clicking links or providing information",
			"Check if you were expecting this email",
			"When in doubt, contact the supposed sender through known contact methods",
		}
	default:
		return []string{
			"Email appears legitimate with no significant risk indicators",
			"Always verify unexpected requests, even from known senders",
		}
	}
}

func logParams(days int, full bool, level string) map[string]any {
	return map[string]any{
		"retention_days":        days,
		"include_full_analysis": full,
		"log_level":             level,
	}
}

// senderDomain returns the part after the last "@", or the whole sender
// when it carries no "@".
func senderDomain(sender string) string {
	if i := strings.LastIndexByte(sender, '@'); i >= 0 {
		return sender[i+1:]
	}
	return sender
}
