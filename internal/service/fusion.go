package service

import (
	"fmt"
	"strings"

	"github.com/Strob0t/MailWarden/internal/domain/assessment"
)

// Verdict is the fused outcome of the three assessments before explanation
// and action selection.
type Verdict struct {
	FinalRiskScore    float64
	RiskLevel         assessment.RiskLevel
	Certainty         assessment.Certainty
	Uncertainty       float64
	OverrideActive    bool
	Weights           assessment.Weights
	Contributions     []assessment.AgentContribution
	DetailedReasoning string
}

// Contribution returns the contribution of agent a.
func (v Verdict) Contribution(a assessment.Agent) (assessment.AgentContribution, bool) {
	for _, c := range v.Contributions {
		if c.Agent == a {
			return c, true
		}
	}
	return assessment.AgentContribution{}, false
}

// Fuser combines the three agent assessments into a Verdict according to
// a Policy.
type Fuser struct {
	policy assessment.Policy
}

// NewFuser creates a Fuser bound to a copy of policy.
func NewFuser(policy assessment.Policy) *Fuser {
	return &Fuser{policy: policy.Clone()}
}

// Fuse runs override detection, weighted aggregation, certainty
// aggregation, categorization and uncertainty estimation.
func (f *Fuser) Fuse(ling, tech, ti assessment.AgentAssessment) Verdict {
	if f.OverrideActive(ti) {
		return f.override(ling, tech, ti)
	}

	w := f.policy.Weights
	contribs := contributions(w, ling, tech, ti)
	final := 0.0
	for _, c := range contribs {
		final += c.WeightedContribution
	}
	final = assessment.Clamp(final)
	certainty := f.AggregateCertainty(ling, tech, ti)

	return Verdict{
		FinalRiskScore:    final,
		RiskLevel:         f.policy.Thresholds.Categorize(final),
		Certainty:         certainty,
		Uncertainty:       EstimateUncertainty(ling.Certainty, tech.Certainty, ti.Certainty),
		Weights:           w,
		Contributions:     contribs,
		DetailedReasoning: weightedReasoning(w, final, certainty, ling, tech, ti),
	}
}

// OverrideActive reports whether the threat intelligence verdict is
// authoritative enough to bypass weighted fusion.
func (f *Fuser) OverrideActive(ti assessment.AgentAssessment) bool {
	return f.policy.Override.Matches(ti)
}

func (f *Fuser) override(ling, tech, ti assessment.AgentAssessment) Verdict {
	w := assessment.OverrideWeights()
	final := f.policy.Override.ForcedScore
	return Verdict{
		FinalRiskScore:    final,
		RiskLevel:         f.policy.Thresholds.Categorize(final),
		Certainty:         assessment.CertaintyDefinitive,
		Uncertainty:       EstimateUncertainty(ling.Certainty, tech.Certainty, ti.Certainty),
		OverrideActive:    true,
		Weights:           w,
		Contributions:     contributions(w, ling, tech, ti),
		DetailedReasoning: overrideReasoning(ling, tech, ti),
	}
}

// AggregateCertainty fuses the three certainty labels. A DEFINITIVE
// high-risk verdict from threat intelligence or the linguistic agent
// escalates immediately; otherwise the weighted rank average is bucketed.
func (f *Fuser) AggregateCertainty(ling, tech, ti assessment.AgentAssessment) assessment.Certainty {
	gate := f.policy.Escalation
	for _, a := range []assessment.AgentAssessment{ti, ling} {
		if a.Certainty == assessment.CertaintyDefinitive && a.RiskScore >= gate {
			return assessment.CertaintyDefinitive
		}
	}

	w := f.policy.Weights
	score := ling.Certainty.Rank()*w.Linguistic +
		tech.Certainty.Rank()*w.TechnicalValidation +
		ti.Certainty.Rank()*w.ThreatIntelligence
	return assessment.CertaintyFromRank(score)
}

// EstimateUncertainty returns the unweighted mean analysis uncertainty.
func EstimateUncertainty(levels ...assessment.Certainty) float64 {
	if len(levels) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, c := range levels {
		sum += c.Uncertainty()
	}
	return assessment.Clamp(sum / float64(len(levels)))
}

func contributions(w assessment.Weights, as ...assessment.AgentAssessment) []assessment.AgentContribution {
	out := make([]assessment.AgentContribution, 0, len(as))
	for _, a := range as {
		a.Weight = w.For(a.Agent)
		out = append(out, assessment.AgentContribution{
			AgentAssessment:      a,
			WeightedContribution: a.RiskScore * a.Weight,
		})
	}
	return out
}

func weightedReasoning(w assessment.Weights, final float64, certainty assessment.Certainty, ling, tech, ti assessment.AgentAssessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "COORDINATED ASSESSMENT (Risk: %.2f, Certainty: %s):\n\n", final, certainty)
	for _, sec := range []struct {
		title string
		a     assessment.AgentAssessment
	}{
		{"LINGUISTIC ANALYSIS", ling},
		{"TECHNICAL VALIDATION", tech},
		{"THREAT INTELLIGENCE", ti},
	} {
		fmt.Fprintf(&b, "%s (%s, %.2f):\n%s\n\n", sec.title, sec.a.Certainty, sec.a.RiskScore, sec.a.Reasoning)
	}
	fmt.Fprintf(&b, "FINAL ASSESSMENT: Weighted aggregation (%.0f-%.0f-%.0f) produces %.2f risk with %s certainty.",
		w.Linguistic*100, w.TechnicalValidation*100, w.ThreatIntelligence*100, final, certainty)
	return b.String()
}

func overrideReasoning(ling, tech, ti assessment.AgentAssessment) string {
	return "CRITICAL THREAT DETECTED - Threat Intelligence Override Activated:\n\n" +
		ti.Reasoning + "\n\n" +
		"When authoritative threat databases flag content as malicious with DEFINITIVE certainty, " +
		"this overrides all other analysis. This is a confirmed threat that requires immediate action.\n\n" +
		"Supporting Analysis:\n" +
		"- Linguistic: " + ling.Reasoning + "\n" +
		"- Technical: " + tech.Reasoning
}
