package service

import (
	"fmt"
	"log/slog"

	"github.com/Strob0t/MailWarden/internal/domain/assessment"
	"github.com/Strob0t/MailWarden/internal/domain/extraction"
)

// Defaults substituted for missing or malformed upstream fields.
const (
	defaultRiskScore = 0.5
	defaultCertainty = assessment.CertaintyMedium
	defaultReasoning = "No analysis reasoning provided"
)

func identity(v any) (any, bool) { return v, true }

// Upstream agents have shipped several layouts over time; the first path
// that resolves wins.
var (
	riskScorePaths = []extraction.Rule[any]{
		{Path: "risk_score", Transform: identity},
		{Path: "score", Transform: identity},
		{Path: "result.risk_score", Transform: identity},
	}
	certaintyPaths = []extraction.Rule[any]{
		{Path: "certainty_level", Transform: identity},
		{Path: "certainty", Transform: identity},
		{Path: "result.certainty_level", Transform: identity},
	}
	reasoningPaths = []extraction.Rule[string]{
		{Path: "analysis_reasoning", Transform: extraction.String},
		{Path: "reasoning", Transform: extraction.String},
		{Path: "result.analysis_reasoning", Transform: extraction.String},
	}
)

// Normalizer canonicalizes raw agent output into an AgentAssessment.
// Malformed input never fails: every field degrades to a safe default and
// the substitution is logged.
type Normalizer struct {
	log *slog.Logger
}

// NewNormalizer creates a Normalizer that logs substitutions to log.
func NewNormalizer(log *slog.Logger) *Normalizer {
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{log: log}
}

// Normalize converts the raw output of agent into an assessment. Weight is
// left at zero; fusion assigns it.
func (n *Normalizer) Normalize(agent assessment.Agent, raw map[string]any) (a assessment.AgentAssessment) {
	a = assessment.AgentAssessment{
		Agent:       agent,
		RiskScore:   defaultRiskScore,
		Certainty:   defaultCertainty,
		Reasoning:   defaultReasoning,
		KeyFindings: []string{},
	}

	defer func() {
		if r := recover(); r != nil {
			n.log.Error("normalize agent result panicked, using defaults", "agent", agent, "panic", fmt.Sprint(r))
			a = assessment.AgentAssessment{
				Agent:       agent,
				RiskScore:   defaultRiskScore,
				Certainty:   defaultCertainty,
				Reasoning:   fmt.Sprintf("Error extracting data: %v", r),
				KeyFindings: []string{},
			}
		}
	}()

	if raw == nil {
		n.log.Warn("agent result missing, using defaults", "agent", agent)
		return a
	}

	if v, ok := extraction.First(raw, riskScorePaths...); ok {
		if f, ok := extraction.Float(v); ok {
			a.RiskScore = assessment.Clamp(f)
		} else {
			n.log.Warn("invalid risk score, using default", "agent", agent, "value", fmt.Sprint(v))
		}
	} else {
		n.log.Warn("risk score missing, using default", "agent", agent)
	}

	if v, ok := extraction.First(raw, certaintyPaths...); ok {
		s, _ := extraction.String(v)
		if c, ok := assessment.ParseCertainty(s); ok {
			a.Certainty = c
		} else {
			n.log.Warn("invalid certainty level, using MEDIUM", "agent", agent, "value", fmt.Sprint(v))
		}
	} else {
		n.log.Warn("certainty level missing, using MEDIUM", "agent", agent)
	}

	if s, ok := extraction.First(raw, reasoningPaths...); ok {
		a.Reasoning = s
	}

	a.KeyFindings = extraction.Findings(agent, raw)

	n.log.Debug("agent result normalized",
		"agent", agent,
		"risk_score", a.RiskScore,
		"certainty", a.Certainty,
		"findings", len(a.KeyFindings),
	)
	return a
}
